// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package tempstore hands out unique scratch file paths for segments and
// exports under a process-scoped root directory.
package tempstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/splitcap/internal/log"
)

// ErrOutsideRoot is returned by Release for paths not allocated by the store.
var ErrOutsideRoot = errors.New("tempstore: path outside store root")

// Store implements domain.TemporaryFileStore.
type Store struct {
	root   string
	logger zerolog.Logger
}

// New creates a fresh root directory below baseDir.
func New(baseDir string) (*Store, error) {
	root := filepath.Join(baseDir, "run-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("tempstore: create root: %w", err)
	}
	return &Store{root: root, logger: log.WithComponent("tempstore")}, nil
}

// Root returns the directory all allocations live under.
func (s *Store) Root() string { return s.root }

// Allocate returns a unique, not yet existing path such as
// <root>/segment-A-<uuid>.mp4. The file itself is not created.
func (s *Store) Allocate(prefix, ext string) (string, error) {
	if strings.ContainsAny(prefix, `/\`) {
		return "", fmt.Errorf("tempstore: invalid prefix %q", prefix)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := uuid.NewString() + ext
	if prefix != "" {
		name = prefix + "-" + name
	}
	return filepath.Join(s.root, name), nil
}

// Release removes one allocated file. Missing files are not an error.
func (s *Store) Release(path string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tempstore: release: %w", err)
	}
	s.logger.Debug().Str(log.FieldEvent, "tempstore.released").Str(log.FieldPath, path).Msg("released temporary file")
	return nil
}

// Cleanup removes the root and everything in it.
func (s *Store) Cleanup() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("tempstore: cleanup: %w", err)
	}
	return nil
}
