package models

import "time"

// HistoryEntry is the durable record of one completed pipeline run.
// Only DisplayName changes after creation.
type HistoryEntry struct {
	ID             int64     `json:"id" firestore:"id"`
	OwnerID        string    `json:"ownerId" firestore:"ownerId"`
	DisplayName    string    `json:"displayName" firestore:"displayName"`
	OriginalName   string    `json:"originalName" firestore:"originalName"`
	MediaType      string    `json:"mediaType" firestore:"mediaType"`
	ByteSize       int64     `json:"byteSize" firestore:"byteSize"`
	TranscriptText string    `json:"transcriptText" firestore:"transcriptText"`
	RemoteDocID    string    `json:"remoteDocId" firestore:"remoteDocId"`
	RemoteDocURL   string    `json:"remoteDocUrl" firestore:"remoteDocUrl"`
	CreatedAt      time.Time `json:"createdAt" firestore:"createdAt"`
}

// Folder is a folder in the user's remote storage.
type Folder struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Parents []string `json:"parents,omitempty"`
}

// RemoteDocument identifies an uploaded or renamed remote file.
type RemoteDocument struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"webViewLink,omitempty"`
}
