// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/splitcap/internal/export"
	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/preview"
	"github.com/ManuGH/splitcap/internal/recorder"
)

const (
	defaultExportLimit = 20
	maxExportLimit     = 200
)

type startResponse struct {
	SessionID string `json:"session_id"`
}

type assetResponse struct {
	Path         string `json:"path"`
	DurationMS   int64  `json:"duration_ms"`
	ExportJobID  string `json:"export_job_id,omitempty"`
	HasThumbnail bool   `json:"has_thumbnail"`
}

type recordingResponse struct {
	SessionID string             `json:"session_id,omitempty"`
	State     recorder.State     `json:"state"`
	Progress  *recorder.Progress `json:"progress,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	Asset     *assetResponse     `json:"asset,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toRecordingResponse(s recorder.Snapshot) recordingResponse {
	out := recordingResponse{
		SessionID: s.SessionID,
		State:     s.State,
		Progress:  s.Progress,
		ErrorKind: string(s.ErrorKind),
		Error:     s.Error,
		UpdatedAt: s.UpdatedAt,
	}
	if a := s.Asset; a != nil {
		out.Asset = &assetResponse{
			Path:         a.Path,
			DurationMS:   a.Duration.Milliseconds(),
			ExportJobID:  a.ExportJobID,
			HasThumbnail: len(a.Thumbnail) > 0,
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			writeProblem(w, r, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Recorder.StartRecording(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "api.recording_started").
		Str(log.FieldSessionID, id).
		Msg("recording requested")
	w.Header().Set("Location", "/api/v1/recordings/current")
	writeJSON(w, http.StatusAccepted, startResponse{SessionID: id})
}

func (s *Server) handleCurrentRecording(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toRecordingResponse(s.deps.Recorder.Snapshot()))
}

func (s *Server) handleCancelRecording(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Recorder.Cancel(); err != nil {
		if errors.Is(err, recorder.ErrNotActive) {
			writeProblem(w, r, http.StatusConflict, "not_active", err.Error())
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toRecordingResponse(s.deps.Recorder.Snapshot()))
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Recorder.Snapshot()
	if snap.Asset == nil || len(snap.Asset.Thumbnail) == 0 {
		writeProblem(w, r, http.StatusNotFound, "not_found", "no thumbnail available")
		return
	}
	writeImage(w, snap.Asset.Thumbnail)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preview == nil {
		writeProblem(w, r, http.StatusNotFound, "not_found", "preview disabled")
		return
	}
	img, err := s.deps.Preview.JPEG(s.cfg.PreviewQuality)
	if errors.Is(err, preview.ErrNoFrame) {
		w.Header().Set("Retry-After", "1")
		writeProblem(w, r, http.StatusServiceUnavailable, "no_frame", err.Error())
		return
	}
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeImage(w, img)
}

func writeImage(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeJSON(w, http.StatusOK, []export.Record{})
		return
	}
	limit := defaultExportLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxExportLimit)
	}
	recs, err := s.deps.Jobs.List(r.Context(), limit)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if recs == nil {
		recs = []export.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.deps.Jobs == nil {
		writeProblem(w, r, http.StatusNotFound, "not_found", "export job not found")
		return
	}
	rec, err := s.deps.Jobs.Get(r.Context(), id)
	if errors.Is(err, export.ErrNotFound) {
		writeProblem(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
