// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blob stores deck artifacts for the backend, on the local
// filesystem or in a MinIO/S3 bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("blob not found")

// Store is an object store keyed by slash-separated paths.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// PresentationKey returns the object key of a presentation artifact.
func PresentationKey(id, ext string) string {
	return "presentations/" + id + "." + ext
}

// New returns the store selected by cfg.
func New(ctx context.Context, cfg types.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case types.BlobMinio:
		return NewMinioStore(ctx, cfg)
	case types.BlobFilesystem, "":
		return NewFSStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// DefaultDir is the filesystem store root used when none is configured.
const DefaultDir = "data/blobs"

// FSStore keeps objects as files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates root if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		root = DefaultDir
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &FSStore{root: root}, nil
}

// path maps a key inside root, rejecting keys that escape it.
func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes data under key, replacing any previous object.
func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Get reads the object under key.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the object under key. Deleting a missing key succeeds.
func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// readAll is io.ReadAll with the key in the error.
func readAll(key string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}
