package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStager keeps uploads in a directory on local disk.
type LocalStager struct {
	Dir string
}

// NewLocalStager creates the upload directory if needed.
func NewLocalStager(dir string) (*LocalStager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStager{Dir: dir}, nil
}

func (s *LocalStager) Stage(ctx context.Context, originalName string, r io.Reader) (string, int64, error) {
	name := newName(originalName)
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create staging file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(s.Dir, name))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to stage upload: %w", err)
	}
	return name, n, nil
}

func (s *LocalStager) Open(ctx context.Context, ref string) (*Staged, error) {
	if !validName(ref) {
		return nil, ErrInvalidRef
	}
	f, err := os.Open(filepath.Join(s.Dir, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat staged file: %w", err)
	}
	return &Staged{Ref: ref, Reader: f, Size: info.Size()}, nil
}

func (s *LocalStager) Remove(ctx context.Context, ref string) error {
	if !validName(ref) {
		return ErrInvalidRef
	}
	if err := os.Remove(filepath.Join(s.Dir, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
