package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStager_StageOpenRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewLocalStager(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	ref, n, err := s.Stage(ctx, "Recording.WAV", strings.NewReader("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, ".wav", filepath.Ext(ref))
	assert.Equal(t, ref, filepath.Base(ref))

	staged, err := s.Open(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, staged.FileURI)
	assert.Equal(t, int64(8), staged.Size)
	b, err := io.ReadAll(staged.Reader)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(b))
	require.NoError(t, staged.Close())

	require.NoError(t, s.Remove(ctx, ref))
	require.NoError(t, s.Remove(ctx, ref))
	_, err = s.Open(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStager_DropsOddExtensions(t *testing.T) {
	t.Parallel()

	s, err := NewLocalStager(t.TempDir())
	require.NoError(t, err)
	ref, _, err := s.Stage(context.Background(), "weird.ext with space", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Empty(t, filepath.Ext(ref))
}

func TestLocalStager_RejectsForeignRefs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	s, err := NewLocalStager(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("x"), 0o600))

	for _, ref := range []string{"", "../secret.txt", "/etc/passwd", "secret.txt", ".upload-123"} {
		_, err := s.Open(ctx, ref)
		assert.ErrorIs(t, err, ErrInvalidRef, ref)
	}
}
