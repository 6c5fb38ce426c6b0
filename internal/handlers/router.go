// Package handlers is the JSON-over-HTTP surface of the service.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/auth"
	"github.com/Lllllllleong/voicedocflow/internal/history"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/Lllllllleong/voicedocflow/internal/notify"
	"github.com/Lllllllleong/voicedocflow/internal/pipeline"
	"github.com/Lllllllleong/voicedocflow/internal/staging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Processor runs the transcription pipeline.
type Processor interface {
	Process(ctx context.Context, sub pipeline.Submission) (*pipeline.Result, error)
}

// RemoteStore is the part of the Drive client the handlers call directly.
type RemoteStore interface {
	ListFolders(ctx context.Context, cred auth.Credential) ([]models.Folder, error)
	CreateFolder(ctx context.Context, name, parentID string, cred auth.Credential) (*models.Folder, error)
	Rename(ctx context.Context, remoteID, newName string, cred auth.Credential) (*models.RemoteDocument, error)
}

// Deps are everything the API needs. Login and Broker may be nil.
type Deps struct {
	Sessions       *auth.SessionCodec
	Login          *auth.GoogleLogin
	Stager         staging.Stager
	Pipeline       Processor
	History        history.Repository
	Remote         RemoteStore
	Broker         *notify.Broker
	MaxUploadBytes int64
	// MaxEventStreams caps open /events streams. Zero means no cap.
	MaxEventStreams int
}

// API holds the handlers.
type API struct {
	deps      Deps
	keepAlive time.Duration
}

const defaultMaxUploadBytes = 100 << 20

func NewAPI(deps Deps) *API {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &API{deps: deps, keepAlive: 25 * time.Second}
}

// Routes registers every endpoint on a new mux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	protect := a.deps.Sessions.Require

	mux.HandleFunc("GET /healthz", a.handleHealth)

	if a.deps.Login != nil {
		mux.HandleFunc("GET /auth/login", a.deps.Login.HandleLogin)
		mux.HandleFunc("GET /auth/callback", a.deps.Login.HandleCallback)
		mux.HandleFunc("POST /auth/logout", a.deps.Login.HandleLogout)
	}

	mux.Handle("POST /upload", protect(http.HandlerFunc(a.handleUpload)))
	mux.Handle("POST /transcribe", protect(http.HandlerFunc(a.handleTranscribe)))
	mux.Handle("GET /history", protect(http.HandlerFunc(a.handleHistoryList)))
	mux.Handle("DELETE /history", protect(http.HandlerFunc(a.handleHistoryDelete)))
	mux.Handle("PATCH /history", protect(http.HandlerFunc(a.handleHistoryRename)))
	mux.Handle("GET /drive/folders", protect(http.HandlerFunc(a.handleFolderList)))
	mux.Handle("POST /drive/folders", protect(http.HandlerFunc(a.handleFolderCreate)))
	mux.Handle("GET /events", protect(http.HandlerFunc(a.handleEvents)))
	return mux
}

// Handler is Routes wrapped with request logging and tracing.
func (a *API) Handler() http.Handler {
	return otelhttp.NewHandler(logRequests(a.Routes()), "voicedocflow")
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatusResponse{Success: true})
}
