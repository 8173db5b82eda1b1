// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package procgroup

import (
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/splitcap/internal/metrics"
)

// Terminate gracefully stops a process group.
// It sends SIGTERM, waits for the process to exit (via the provided wait channel),
// and if it doesn't exit within grace, sends SIGKILL.
// It consumes and returns the error from waitCh.
// It is safe to call on nil commands (returns nil).
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	return stop(cmd, waitCh, syscall.SIGTERM, grace)
}

// Finalize asks a muxing process to flush and close its outputs.
// ffmpeg treats SIGINT like pressing 'q': trailers (e.g. the mp4 moov atom) are written.
// Escalates to SIGKILL after grace.
func Finalize(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	return stop(cmd, waitCh, syscall.SIGINT, grace)
}

func stop(cmd *exec.Cmd, waitCh <-chan error, first syscall.Signal, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	name := signalName(first)
	// If the process already finished normally, Kill is a no-op (ESRCH).
	metrics.IncProcTerminate(name, classify(Kill(cmd, first)))

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-time.After(grace):
		metrics.IncProcTerminate("SIGKILL", classify(Kill(cmd, syscall.SIGKILL)))

		// Always drain waitCh; SIGKILL frees a blocked process.
		err := <-waitCh
		if err == nil {
			metrics.IncProcWait("forced_exit0")
		} else {
			metrics.IncProcWait("forced_error")
		}
		return err
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return "sent"
	case strings.Contains(err.Error(), "process already finished") || strings.Contains(err.Error(), "no such process"):
		return "esrch"
	default:
		return "error"
	}
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	default:
		return sig.String()
	}
}
