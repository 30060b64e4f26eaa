package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrTooLarge   = errors.New("storage: file too large")
	ErrInvalidKey = errors.New("storage: invalid key")
)

// FileStore stages uploaded files on the local filesystem until they have
// been forwarded to the pinning service.
type FileStore struct {
	basePath string
}

// Staged describes a file written by Stage.
type Staged struct {
	Key  string
	Path string
	Size int64
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Stage copies r into a uniquely named file, keeping the extension of
// filename. A maxBytes of zero or less disables the size check. Partial
// files are removed on failure.
func (s *FileStore) Stage(ctx context.Context, filename string, r io.Reader, maxBytes int64) (Staged, error) {
	if s == nil {
		return Staged{}, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return Staged{}, err
	}
	key := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(filename)))
	full := filepath.Join(s.basePath, key)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Staged{}, fmt.Errorf("storage: create file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(full)
		return Staged{}, fmt.Errorf("storage: write file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(full)
		return Staged{}, fmt.Errorf("storage: close file: %w", closeErr)
	case maxBytes > 0 && n > maxBytes:
		_ = os.Remove(full)
		return Staged{}, ErrTooLarge
	}
	return Staged{Key: key, Path: full, Size: n}, nil
}

// Open returns a reader for a staged key.
func (s *FileStore) Open(key string) (*os.File, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes a staged key. Missing files are not an error.
func (s *FileStore) Remove(key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	return nil
}

func (s *FileStore) resolve(key string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
