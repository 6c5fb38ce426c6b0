package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/gcp"
)

// History backends.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// TranscriberConfig holds all configuration for the transcription service.
type TranscriberConfig struct {
	Port string

	ProjectID             string
	VertexAIRegion        string
	GeminiModel           string
	TranscriptionLanguage string

	UploadDir      string
	StagingBucket  string
	OutputDir      string
	MaxUploadBytes int64
	Location       *time.Location

	HistoryBackend      string
	DatabaseDSN         string
	FirestoreCollection string

	SessionSecret      string
	SessionTTL         time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	DriveFolderID      string

	EventsSinkURL        string
	EventsPublishTimeout time.Duration
	MaxEventStreams      int64
	WorkflowID           string
	WorkflowLocation     string
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *TranscriberConfig) SecureCookies() bool {
	return strings.HasPrefix(c.OAuthRedirectURL, "https://")
}

// loadConfig loads and validates all necessary environment variables for this service.
func loadConfig() (*TranscriberConfig, error) {
	cfg := &TranscriberConfig{
		Port:                  gcp.GetEnv("PORT", "8080"),
		ProjectID:             gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion:        gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiModel:           gcp.GetEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		TranscriptionLanguage: gcp.GetEnv("TRANSCRIPTION_LANGUAGE", "Japanese"),
		UploadDir:             gcp.GetEnv("UPLOAD_DIR", "uploads"),
		StagingBucket:         gcp.GetEnv("STAGING_BUCKET", ""),
		OutputDir:             gcp.GetEnv("OUTPUT_DIR", "temp"),
		HistoryBackend:        strings.ToLower(gcp.GetEnv("HISTORY_BACKEND", BackendMemory)),
		DatabaseDSN:           gcp.GetEnv("DATABASE_DSN", ""),
		FirestoreCollection:   gcp.GetEnv("FIRESTORE_COLLECTION", "history"),
		SessionSecret:         gcp.GetEnv("SESSION_SECRET", ""),
		GoogleClientID:        gcp.GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    gcp.GetEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectURL:      gcp.GetEnv("OAUTH_REDIRECT_URL", ""),
		DriveFolderID:         gcp.GetEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		EventsSinkURL:         gcp.GetEnv("EVENTS_SINK_URL", ""),
		WorkflowID:            gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:      gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}

	var err error
	if cfg.MaxUploadBytes, err = gcp.GetEnvInt64("MAX_UPLOAD_BYTES", 100<<20); err != nil {
		return nil, err
	}
	if cfg.MaxEventStreams, err = gcp.GetEnvInt64("MAX_EVENT_STREAMS", 256); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = gcp.GetEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EventsPublishTimeout, err = gcp.GetEnvDuration("EVENTS_PUBLISH_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	for _, req := range []struct{ key, value string }{
		{"PROJECT_ID", cfg.ProjectID},
		{"SESSION_SECRET", cfg.SessionSecret},
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"OAUTH_REDIRECT_URL", cfg.OAuthRedirectURL},
	} {
		if req.value == "" {
			return nil, fmt.Errorf("%s environment variable must be set", req.key)
		}
	}
	if len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}

	switch cfg.HistoryBackend {
	case BackendMemory, BackendFirestore:
	case BackendPostgres:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN environment variable must be set for the postgres history backend")
		}
	default:
		return nil, fmt.Errorf("unknown HISTORY_BACKEND %q", cfg.HistoryBackend)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.EventsPublishTimeout <= 0 {
		return nil, fmt.Errorf("EVENTS_PUBLISH_TIMEOUT must be positive")
	}
	if cfg.MaxEventStreams < 0 {
		return nil, fmt.Errorf("MAX_EVENT_STREAMS must not be negative")
	}

	loc, err := time.LoadLocation(gcp.GetEnv("DOCUMENT_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOCUMENT_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}
