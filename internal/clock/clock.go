// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package clock provides the wall-clock implementation of domain.Clock.
package clock

import (
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Real is backed by the time package. Durations measured via Since use the
// monotonic reading embedded in time.Time.
type Real struct{}

var _ domain.Clock = Real{}

func (Real) Now() time.Time                         { return time.Now() }
func (Real) Since(t time.Time) time.Duration        { return time.Since(t) }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (Real) NewTicker(d time.Duration) domain.Ticker {
	return &ticker{t: time.NewTicker(d)}
}

type ticker struct {
	t *time.Ticker
}

func (k *ticker) C() <-chan time.Time { return k.t.C }
func (k *ticker) Stop()               { k.t.Stop() }
