package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/voicedocflow/internal/auth"
	"github.com/Lllllllleong/voicedocflow/internal/drive"
	"github.com/Lllllllleong/voicedocflow/internal/gcp"
	"github.com/Lllllllleong/voicedocflow/internal/handlers"
	"github.com/Lllllllleong/voicedocflow/internal/history"
	"github.com/Lllllllleong/voicedocflow/internal/notify"
	"github.com/Lllllllleong/voicedocflow/internal/pipeline"
	"github.com/Lllllllleong/voicedocflow/internal/render"
	"github.com/Lllllllleong/voicedocflow/internal/staging"
	"github.com/Lllllllleong/voicedocflow/internal/transcribe"
)

// TranscriberService is the fully wired application.
type TranscriberService struct {
	config  TranscriberConfig
	handler http.Handler
	closers []func() error
}

// NewTranscriberService loads configuration from the environment and builds
// every client the service needs.
func NewTranscriberService(ctx context.Context) (*TranscriberService, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s := &TranscriberService{config: *config}
	if err := s.build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *TranscriberService) build(ctx context.Context) error {
	cfg := s.config

	vertexClient, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	s.closers = append(s.closers, vertexClient.Close)

	stager, err := s.newStager(ctx)
	if err != nil {
		return err
	}

	repo, err := s.newHistory(ctx)
	if err != nil {
		return err
	}

	broker := notify.NewBroker()
	publisher, err := s.newPublisher(ctx, broker)
	if err != nil {
		return err
	}

	oauthCfg := auth.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	driveClient := drive.NewClient(oauthCfg, cfg.DriveFolderID)

	orchestrator := pipeline.New(pipeline.Deps{
		Stager:      stager,
		Transcriber: transcribe.NewClient(vertexClient.TranscriberModel, cfg.TranscriptionLanguage),
		Renderer:    render.NewRenderer(cfg.OutputDir, cfg.Location),
		Uploader:    driveClient,
		History:     repo,
		Publisher:   publisher,
	})

	sessions := auth.NewSessionCodec([]byte(cfg.SessionSecret), cfg.SessionTTL)
	api := handlers.NewAPI(handlers.Deps{
		Sessions:        sessions,
		Login:           auth.NewGoogleLogin(oauthCfg, sessions, auth.GoogleUserinfo, cfg.SecureCookies()),
		Stager:          stager,
		Pipeline:        orchestrator,
		History:         repo,
		Remote:          driveClient,
		Broker:          broker,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		MaxEventStreams: int(cfg.MaxEventStreams),
	})
	s.handler = api.Handler()

	slog.Info("Transcriber service initialized.",
		"historyBackend", cfg.HistoryBackend,
		"stagingBucket", cfg.StagingBucket,
		"model", cfg.GeminiModel,
	)
	return nil
}

func (s *TranscriberService) newStager(ctx context.Context) (staging.Stager, error) {
	if s.config.StagingBucket == "" {
		stager, err := staging.NewLocalStager(s.config.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
		}
		return stager, nil
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s.closers = append(s.closers, storageClient.Close)
	return staging.NewGCSStager(storageClient, s.config.StagingBucket, "uploads"), nil
}

func (s *TranscriberService) newHistory(ctx context.Context) (history.Repository, error) {
	switch s.config.HistoryBackend {
	case BackendPostgres:
		repo, db, err := history.OpenPostgres(ctx, s.config.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		return repo, nil
	case BackendFirestore:
		client, err := gcp.NewFirestoreClient(ctx, s.config.ProjectID)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		return history.NewFirestoreRepository(client, s.config.FirestoreCollection), nil
	default:
		slog.Warn("Using in-memory history; entries are lost on restart.")
		return history.NewMemoryRepository(), nil
	}
}

func (s *TranscriberService) newPublisher(ctx context.Context, broker *notify.Broker) (notify.Publisher, error) {
	publishers := notify.Multi{broker}
	if s.config.EventsSinkURL != "" {
		sink, err := notify.NewHTTPSink(s.config.EventsSinkURL)
		if err != nil {
			return nil, err
		}
		sink.Timeout = s.config.EventsPublishTimeout
		publishers = append(publishers, sink)
	}
	if s.config.WorkflowID != "" {
		executionsClient, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, executionsClient.Close)
		parent := gcp.WorkflowParent(s.config.ProjectID, s.config.WorkflowLocation, s.config.WorkflowID)
		workflow := notify.NewWorkflowSink(executionsClient, parent)
		workflow.Timeout = s.config.EventsPublishTimeout
		publishers = append(publishers, workflow)
	}
	return publishers, nil
}

// Handler returns the HTTP surface.
func (s *TranscriberService) Handler() http.Handler {
	return s.handler
}

// Addr is the listen address.
func (s *TranscriberService) Addr() string {
	return ":" + s.config.Port
}

// Close releases every client in reverse creation order.
func (s *TranscriberService) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
