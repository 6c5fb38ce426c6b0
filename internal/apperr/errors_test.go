package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	base := Wrap(RenderFailed, "write docx", errors.New("disk full"))
	wrapped := fmt.Errorf("pipeline: %w", base)

	assert.Equal(t, RenderFailed, KindOf(base))
	assert.Equal(t, RenderFailed, KindOf(wrapped))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.True(t, Is(wrapped, RenderFailed))
	assert.ErrorContains(t, wrapped, "disk full")
}

func TestMessageOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ReauthMessage, MessageOf(Wrap(StorageAuthFailed, "list folders", errors.New("401"))))
	assert.Equal(t, "upload: boom", MessageOf(Wrap(StorageUploadFailed, "upload", errors.New("boom"))))
	assert.Equal(t, "gone", MessageOf(New(NotFound, "gone")))
	assert.Equal(t, "An unexpected error occurred.", MessageOf(errors.New("x")))
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		InvalidInput:        http.StatusBadRequest,
		UploadFailed:        http.StatusBadRequest,
		Unauthorized:        http.StatusUnauthorized,
		StorageAuthFailed:   http.StatusUnauthorized,
		NotFound:            http.StatusNotFound,
		TranscriptionFailed: http.StatusBadGateway,
		StorageRenameFailed: http.StatusBadGateway,
		RenderFailed:        http.StatusInternalServerError,
		HistoryWriteFailed:  http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}
