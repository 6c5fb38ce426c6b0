package models

// These structs define the JSON payloads of the public HTTP surface.

// UploadResponse is the output of POST /upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filePath,omitempty"`
	Error    string `json:"error,omitempty"`
}

// TranscribeRequest is the input for POST /transcribe.
type TranscribeRequest struct {
	FilePath     string `json:"filePath" validate:"required"`
	OriginalName string `json:"originalName" validate:"required,max=255"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize" validate:"gte=0"`
	FolderID     string `json:"folderId"`
}

// TranscribeResponse is the output of POST /transcribe.
type TranscribeResponse struct {
	Success       bool         `json:"success"`
	Transcription string       `json:"transcription,omitempty"`
	DocxURL       string       `json:"docxUrl,omitempty"`
	HistoryID     int64        `json:"historyId,omitempty"`
	Run           *PipelineRun `json:"run,omitempty"`
	Error         string       `json:"error,omitempty"`
	ErrorKind     string       `json:"errorKind,omitempty"`
	Stage         Stage        `json:"stage,omitempty"`
}

// HistoryListResponse is the output of GET /history.
type HistoryListResponse struct {
	Success bool           `json:"success"`
	Items   []HistoryEntry `json:"items"`
}

// HistoryDeleteRequest is the input for DELETE /history.
type HistoryDeleteRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// HistoryRenameRequest is the input for PATCH /history.
type HistoryRenameRequest struct {
	HistoryID   int64  `json:"historyId" validate:"required,gt=0"`
	NewName     string `json:"newName" validate:"required,max=255"`
	RemoteDocID string `json:"remoteDocId" validate:"required"`
}

// FolderListResponse is the output of GET /drive/folders.
type FolderListResponse struct {
	Success bool     `json:"success"`
	Folders []Folder `json:"folders"`
}

// FolderCreateRequest is the input for POST /drive/folders.
type FolderCreateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	ParentID string `json:"parentId"`
}

// FolderCreateResponse is the output of POST /drive/folders.
type FolderCreateResponse struct {
	Success bool    `json:"success"`
	Folder  *Folder `json:"folder,omitempty"`
}

// StatusResponse is the generic {success, error} envelope.
type StatusResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}
