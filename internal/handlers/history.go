package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/models"
)

func (a *API) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	items, err := a.deps.History.ListByOwner(r.Context(), session(r).OwnerID)
	if err != nil {
		slog.Error("Failed to list history", "error", err)
		writeError(w, apperr.Wrap(apperr.Internal, "failed to fetch history", err))
		return
	}
	writeJSON(w, http.StatusOK, models.HistoryListResponse{Success: true, Items: items})
}

// handleHistoryDelete removes the local entry only; the remote document stays.
func (a *API) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	var req models.HistoryDeleteRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ok, err := a.deps.History.Delete(r.Context(), req.ID, session(r).OwnerID)
	if err != nil {
		slog.Error("Failed to delete history entry", "id", req.ID, "error", err)
		writeError(w, apperr.Wrap(apperr.Internal, "failed to delete history entry", err))
		return
	}
	if !ok {
		writeError(w, apperr.New(apperr.NotFound, "history entry not found"))
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Success: true})
}

// handleHistoryRename renames the local entry, then the remote document it
// records. The two writes are not reconciled: if the remote rename fails the
// local name stays changed and the divergence is logged.
func (a *API) handleHistoryRename(w http.ResponseWriter, r *http.Request) {
	var req models.HistoryRenameRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	newName := strings.TrimSpace(req.NewName)
	if newName == "" {
		writeError(w, apperr.New(apperr.InvalidInput, "newName: is required"))
		return
	}
	s := session(r)
	logCtx := slog.With("ownerId", s.OwnerID, "historyId", req.HistoryID, "remoteDocId", req.RemoteDocID)

	entry, ok, err := a.deps.History.Get(r.Context(), req.HistoryID, s.OwnerID)
	if err != nil {
		logCtx.Error("Failed to load history entry", "error", err)
		writeError(w, apperr.Wrap(apperr.Internal, "failed to rename history entry", err))
		return
	}
	if !ok {
		writeError(w, apperr.New(apperr.NotFound, "history entry not found"))
		return
	}
	if entry.RemoteDocID != req.RemoteDocID {
		logCtx.Warn("Rename rejected: remote document does not belong to the entry.", "storedRemoteDocId", entry.RemoteDocID)
		writeError(w, apperr.New(apperr.InvalidInput, "remoteDocId: does not match the history entry"))
		return
	}

	ok, err = a.deps.History.RenameDisplayName(r.Context(), req.HistoryID, s.OwnerID, newName)
	if err != nil {
		logCtx.Error("Failed to rename history entry", "error", err)
		writeError(w, apperr.Wrap(apperr.Internal, "failed to rename history entry", err))
		return
	}
	if !ok {
		writeError(w, apperr.New(apperr.NotFound, "history entry not found"))
		return
	}

	if _, err := a.deps.Remote.Rename(r.Context(), entry.RemoteDocID, newName, s.Credential); err != nil {
		logCtx.Error("History renamed but remote rename failed; names have diverged.", "newName", newName, "error", err)
		writeError(w, err)
		return
	}
	logCtx.Info("Renamed document.", "newName", newName)
	writeJSON(w, http.StatusOK, models.StatusResponse{Success: true})
}
