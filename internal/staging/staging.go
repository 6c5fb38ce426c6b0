// Package staging holds uploaded recordings until a pipeline run consumes them.
package staging

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidRef is returned for references that were not produced by a Stager.
var ErrInvalidRef = errors.New("invalid staged file reference")

// ErrNotFound is returned when a reference no longer resolves to a staged file.
var ErrNotFound = errors.New("staged file not found")

// Staged is an opened staged upload. Exactly one of Reader and FileURI is set.
type Staged struct {
	Ref     string
	Reader  io.ReadCloser
	FileURI string
	Size    int64
}

// Close releases the reader, if any.
func (s *Staged) Close() error {
	if s.Reader != nil {
		return s.Reader.Close()
	}
	return nil
}

// Stager stores raw uploads and hands them back by reference.
type Stager interface {
	Stage(ctx context.Context, originalName string, r io.Reader) (ref string, size int64, err error)
	Open(ctx context.Context, ref string) (*Staged, error)
	Remove(ctx context.Context, ref string) error
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// newName returns a collision-free file name that keeps a sane extension of
// originalName, so the media type can still be derived from it.
func newName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// validName reports whether name looks like something newName produced.
func validName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	id := strings.TrimSuffix(name, filepath.Ext(name))
	_, err := uuid.Parse(id)
	return err == nil
}
