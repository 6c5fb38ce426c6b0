package handlers

import (
	"net/http"

	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/Lllllllleong/voicedocflow/internal/pipeline"
)

func (a *API) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req models.TranscribeRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s := session(r)

	res, err := a.deps.Pipeline.Process(r.Context(), pipeline.Submission{
		OwnerID:      s.OwnerID,
		Credential:   s.Credential,
		StagedRef:    req.FilePath,
		OriginalName: req.OriginalName,
		MediaType:    req.FileType,
		ByteSize:     req.FileSize,
		FolderID:     req.FolderID,
	})
	if err != nil {
		status, msg, kind := errorStatus(err)
		out := models.TranscribeResponse{Error: msg, ErrorKind: string(kind)}
		if res != nil {
			run := res.Run
			out.Run = &run
			out.Stage = res.FailedAt
		}
		writeJSON(w, status, out)
		return
	}

	run := res.Run
	out := models.TranscribeResponse{
		Success:       true,
		Transcription: res.Transcript,
		HistoryID:     res.HistoryID,
		Run:           &run,
	}
	if res.Document != nil {
		out.DocxURL = res.Document.URL
	}
	writeJSON(w, http.StatusOK, out)
}
