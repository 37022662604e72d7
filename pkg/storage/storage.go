package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrInvalidPath is returned for paths that would escape the storage root.
var ErrInvalidPath = errors.New("invalid path")

// Storage is a flat key/blob store. Paths use "/" separators; List returns
// the direct children of a prefix only.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Join builds a storage path from segments, dropping empty ones.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

func validatePath(path string) error {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}
