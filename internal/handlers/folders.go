package handlers

import (
	"net/http"
	"strings"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/models"
)

func (a *API) handleFolderList(w http.ResponseWriter, r *http.Request) {
	folders, err := a.deps.Remote.ListFolders(r.Context(), session(r).Credential)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.FolderListResponse{Success: true, Folders: folders})
}

func (a *API) handleFolderCreate(w http.ResponseWriter, r *http.Request) {
	var req models.FolderCreateRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, apperr.New(apperr.InvalidInput, "name: is required"))
		return
	}
	folder, err := a.deps.Remote.CreateFolder(r.Context(), name, req.ParentID, session(r).Credential)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.FolderCreateResponse{Success: true, Folder: folder})
}
