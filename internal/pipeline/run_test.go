package pipeline

import (
	"testing"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunForwardOnly(t *testing.T) {
	t.Parallel()

	r := NewRun()
	assert.Equal(t, models.StageUploading, r.Stage())
	assert.Equal(t, 10, r.Snapshot().ProgressPercent)
	assert.NotEmpty(t, r.ID())

	assert.ErrorIs(t, r.Advance(models.StageComplete), ErrInvalidTransition)
	assert.ErrorIs(t, r.Advance(models.StageRendering), ErrInvalidTransition)
	assert.Equal(t, models.StageUploading, r.Stage())
	assert.Equal(t, 10, r.Snapshot().ProgressPercent)

	require.NoError(t, r.Advance(models.StageTranscribing))
	assert.ErrorIs(t, r.Advance(models.StageUploading), ErrInvalidTransition)
	assert.ErrorIs(t, r.Advance(models.StageTranscribing), ErrInvalidTransition)
	assert.ErrorIs(t, r.Advance(models.StageFailed), ErrInvalidTransition)

	require.NoError(t, r.Advance(models.StageRendering))
	assert.ErrorIs(t, r.Advance(models.StageComplete), ErrInvalidTransition)
	require.NoError(t, r.Advance(models.StageStoring))
	require.NoError(t, r.Advance(models.StageComplete))
	assert.Equal(t, 100, r.Snapshot().ProgressPercent)
	assert.True(t, r.Terminal())

	assert.ErrorIs(t, r.Advance(models.StageComplete), ErrInvalidTransition)
	assert.ErrorIs(t, r.Fail(apperr.Internal, "late"), ErrInvalidTransition)
	assert.Equal(t, models.StageComplete, r.Stage())
}

func TestRunProgressIsMonotonic(t *testing.T) {
	t.Parallel()

	r := NewRun()
	last := r.Snapshot().ProgressPercent
	for _, s := range []models.Stage{models.StageTranscribing, models.StageRendering, models.StageStoring, models.StageComplete} {
		require.NoError(t, r.Advance(s))
		p := r.Snapshot().ProgressPercent
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
}

func TestRunFail(t *testing.T) {
	t.Parallel()

	r := NewRun()
	require.NoError(t, r.Advance(models.StageTranscribing))
	require.NoError(t, r.Fail(apperr.TranscriptionFailed, "empty"))

	snap := r.Snapshot()
	assert.Equal(t, models.StageFailed, snap.Stage)
	assert.Equal(t, "TranscriptionFailed", snap.ErrorKind)
	assert.Equal(t, "empty", snap.Message)
	assert.Equal(t, 30, snap.ProgressPercent)

	assert.ErrorIs(t, r.Fail(apperr.Internal, "again"), ErrInvalidTransition)
	assert.ErrorIs(t, r.Advance(models.StageRendering), ErrInvalidTransition)
}
