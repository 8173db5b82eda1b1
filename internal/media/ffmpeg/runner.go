// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ffmpeg builds ffmpeg/ffprobe command lines for capture, composition,
// transcoding and thumbnails, and supervises the resulting processes.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/log"
	"github.com/ManuGH/splitcap/internal/metrics"
	"github.com/ManuGH/splitcap/internal/procgroup"
)

const (
	stderrLines = 64
	// interruptedExitCode is ffmpeg's status after a clean shutdown on SIGINT.
	interruptedExitCode = 255
)

// ExitError describes an ffmpeg process that ended unsuccessfully.
type ExitError struct {
	Role string
	Code int
	Err  error
	// Tail holds the last stderr lines for diagnostics.
	Tail []string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg %s exited with code %d", e.Role, e.Code)
	if len(e.Tail) > 0 {
		msg += ": " + e.Tail[len(e.Tail)-1]
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Job is one ffmpeg invocation.
type Job struct {
	// Role labels the process in logs and metrics (record, preview, export, ...).
	Role string
	Args []string
	// Stdout receives the process' standard output, e.g. rawvideo frames.
	Stdout io.Writer
}

// Runner starts ffmpeg processes in their own process group.
type Runner struct {
	Bin         string
	KillTimeout time.Duration
	logger      zerolog.Logger
}

// NewRunner creates a runner for the given ffmpeg binary.
func NewRunner(bin string, killTimeout time.Duration) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	if killTimeout <= 0 {
		killTimeout = 5 * time.Second
	}
	return &Runner{Bin: bin, KillTimeout: killTimeout, logger: log.WithComponent("ffmpeg")}
}

// Start launches job and returns immediately.
func (r *Runner) Start(ctx context.Context, job Job) (*Process, error) {
	// exec.Command rather than CommandContext: shutdown is signalled to the
	// whole group through procgroup, not a bare SIGKILL to the leader.
	cmd := exec.Command(r.Bin, job.Args...) // #nosec G204 -- args are built by this package
	procgroup.Set(cmd)

	ring := NewLineRing(stderrLines)
	cmd.Stderr = ring
	if job.Stdout != nil {
		cmd.Stdout = job.Stdout
	}

	logger := log.WithContext(ctx, r.logger).With().Str("role", job.Role).Logger()
	if err := cmd.Start(); err != nil {
		metrics.IncProcessStart(job.Role, "error")
		return nil, fmt.Errorf("ffmpeg %s start failed: %w", job.Role, err)
	}
	metrics.IncProcessStart(job.Role, "ok")
	logger.Debug().
		Str(log.FieldEvent, "ffmpeg.started").
		Int("pid", cmd.Process.Pid).
		Str("args", strings.Join(job.Args, " ")).
		Msg("ffmpeg process started")

	p := &Process{
		role:   job.Role,
		cmd:    cmd,
		ring:   ring,
		done:   make(chan struct{}),
		logger: logger,
	}
	go p.wait()
	return p, nil
}

// Run starts job and waits for it. Cancelling ctx terminates the process
// group and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, job Job) error {
	p, err := r.Start(ctx, job)
	if err != nil {
		return err
	}
	select {
	case <-p.Done():
		return p.Err()
	case <-ctx.Done():
		_ = p.Terminate(r.KillTimeout)
		return ctx.Err()
	}
}

// Process is a running ffmpeg instance.
type Process struct {
	role   string
	cmd    *exec.Cmd
	ring   *LineRing
	logger zerolog.Logger

	done chan struct{}
	err  error

	stopMu sync.Mutex
}

func (p *Process) wait() {
	waitErr := p.cmd.Wait()
	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		p.err = &ExitError{Role: p.role, Code: code, Err: waitErr, Tail: p.ring.LastN(8)}
		p.logger.Debug().Err(p.err).Str(log.FieldEvent, "ffmpeg.exited").Msg("ffmpeg process exited with error")
	} else {
		p.logger.Debug().Str(log.FieldEvent, "ffmpeg.exited").Msg("ffmpeg process exited")
	}
	close(p.done)
}

// Done is closed once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error. Only valid after Done is closed.
func (p *Process) Err() error { return p.err }

// LastLogLines returns up to n trailing stderr lines.
func (p *Process) LastLogLines(n int) []string { return p.ring.LastN(n) }

// Finalize asks ffmpeg to close its outputs cleanly (SIGINT) and waits up to
// grace before killing the group. The interrupted exit status is not an error.
func (p *Process) Finalize(grace time.Duration) error {
	err := p.stop(grace, procgroup.Finalize)
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == interruptedExitCode {
		return nil
	}
	return err
}

// Terminate stops the process group with SIGTERM, escalating after grace.
func (p *Process) Terminate(grace time.Duration) error {
	return p.stop(grace, procgroup.Terminate)
}

func (p *Process) stop(grace time.Duration, fn func(*exec.Cmd, <-chan error, time.Duration) error) error {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	select {
	case <-p.done:
		return p.err
	default:
	}

	waitCh := make(chan error, 1)
	go func() {
		<-p.done
		waitCh <- p.err
	}()
	return fn(p.cmd, waitCh, grace)
}
