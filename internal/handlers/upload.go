package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/voicedocflow/internal/models"
)

// handleUpload stages the multipart field "file" and returns its reference.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	logCtx := slog.With("ownerId", session(r).OwnerID)
	r.Body = http.MaxBytesReader(w, r.Body, a.deps.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.UploadResponse{Error: "file is too large"})
			return
		}
		if errors.Is(err, http.ErrMissingFile) {
			writeJSON(w, http.StatusBadRequest, models.UploadResponse{Error: "no file uploaded"})
			return
		}
		logCtx.Warn("Could not read upload", "error", err)
		writeJSON(w, http.StatusBadRequest, models.UploadResponse{Error: "could not read upload"})
		return
	}
	defer file.Close()

	ref, size, err := a.deps.Stager.Stage(r.Context(), header.Filename, file)
	if err != nil {
		logCtx.Error("Failed to stage upload", "fileName", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.UploadResponse{Error: "failed to save uploaded file"})
		return
	}
	logCtx.Info("Staged upload.", "fileName", header.Filename, "ref", ref, "bytes", size)
	writeJSON(w, http.StatusOK, models.UploadResponse{Success: true, FilePath: ref})
}
