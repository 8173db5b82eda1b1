// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/splitcap/internal/domain"
	"github.com/ManuGH/splitcap/internal/log"
)

// problem is the error body of every non-2xx response.
type problem struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, kind, detail string) {
	writeJSON(w, code, problem{Error: kind, Detail: detail, RequestID: log.RequestIDFromContext(r.Context())})
}

// writeDomainError maps a pipeline error to its HTTP status.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case domain.KindBusy:
		code = http.StatusConflict
	case domain.KindPermissionDenied:
		code = http.StatusForbidden
	case domain.KindDeviceUnavailable:
		code = http.StatusServiceUnavailable
	}
	writeProblem(w, r, code, string(kind), err.Error())
}
