// Package pipeline runs one submission through transcription, rendering,
// remote upload and history recording, publishing every stage change.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/auth"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/Lllllllleong/voicedocflow/internal/notify"
	"github.com/Lllllllleong/voicedocflow/internal/render"
	"github.com/Lllllllleong/voicedocflow/internal/staging"
	"github.com/Lllllllleong/voicedocflow/internal/transcribe"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Lllllllleong/voicedocflow/internal/pipeline"

type Transcriber interface {
	Transcribe(ctx context.Context, src transcribe.Source) (string, error)
}

type Renderer interface {
	Render(transcript, originalName string) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, localPath, displayName, mimeType string, cred auth.Credential, folderID string) (*models.RemoteDocument, error)
}

type HistoryAppender interface {
	Append(ctx context.Context, entry models.HistoryEntry) (int64, error)
}

// Deps are the collaborators of an Orchestrator. Publisher may be nil.
type Deps struct {
	Stager      staging.Stager
	Transcriber Transcriber
	Renderer    Renderer
	Uploader    Uploader
	History     HistoryAppender
	Publisher   notify.Publisher
}

// Orchestrator drives pipeline runs. It holds no per-run state and is safe
// for concurrent use.
type Orchestrator struct {
	deps   Deps
	tracer trace.Tracer
}

func New(deps Deps) *Orchestrator {
	if deps.Publisher == nil {
		deps.Publisher = notify.Nop{}
	}
	return &Orchestrator{deps: deps, tracer: otel.Tracer(tracerName)}
}

// Submission is one request to run the pipeline.
type Submission struct {
	OwnerID      string
	Credential   auth.Credential
	StagedRef    string
	OriginalName string
	MediaType    string
	// ByteSize is the client-reported size. History records the staged size.
	ByteSize int64
	FolderID string
}

// Result describes a finished run. It is returned for failed runs too.
type Result struct {
	Run models.PipelineRun
	// FailedAt is the stage that was running when the run failed.
	FailedAt   models.Stage
	Transcript string
	HistoryID  int64
	Document   *models.RemoteDocument
}

// Process runs sub to a terminal stage. On failure it returns the failed
// Result together with an *apperr.Error carrying the failing stage's kind.
// There are no retries.
func (o *Orchestrator) Process(ctx context.Context, sub Submission) (*Result, error) {
	if sub.OwnerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "missing owner")
	}
	if sub.Credential.IsZero() {
		return nil, apperr.New(apperr.Unauthorized, "missing storage credential")
	}
	if sub.StagedRef == "" || sub.OriginalName == "" {
		return nil, apperr.New(apperr.InvalidInput, "filePath and originalName are required")
	}

	run := NewRun()
	res := &Result{}
	logCtx := slog.With("runId", run.ID(), "ownerId", sub.OwnerID, "originalName", sub.OriginalName)
	logCtx.Info("Pipeline run started.")
	o.publish(ctx, logCtx, run, sub.OwnerID, res)

	// uploading
	staged, err := stageCall(o, ctx, run, func(ctx context.Context) (*staging.Staged, error) {
		s, err := o.deps.Stager.Open(ctx, sub.StagedRef)
		if err != nil {
			return nil, apperr.Wrap(apperr.UploadFailed, "uploaded file is not available", err)
		}
		return s, nil
	})
	if err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	defer o.cleanupStaged(logCtx, sub.StagedRef, staged)

	// transcribing
	if err := o.advance(ctx, logCtx, run, sub.OwnerID, res, models.StageTranscribing); err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	text, err := stageCall(o, ctx, run, func(ctx context.Context) (string, error) {
		if staged.Size == 0 {
			return "", apperr.New(apperr.TranscriptionFailed, "uploaded audio is empty")
		}
		t, err := o.deps.Transcriber.Transcribe(ctx, transcribe.Source{
			FileName: sub.OriginalName,
			Reader:   staged.Reader,
			FileURI:  staged.FileURI,
		})
		return t, ensureKind(err, apperr.TranscriptionFailed, "transcription failed")
	})
	if err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	res.Transcript = text

	// rendering
	if err := o.advance(ctx, logCtx, run, sub.OwnerID, res, models.StageRendering); err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	docPath, err := stageCall(o, ctx, run, func(ctx context.Context) (string, error) {
		p, err := o.deps.Renderer.Render(text, sub.OriginalName)
		return p, ensureKind(err, apperr.RenderFailed, "document rendering failed")
	})
	if err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	defer func() {
		if err := os.Remove(docPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logCtx.Warn("Failed to remove rendered document.", "path", docPath, "error", err)
		}
	}()

	// storing
	if err := o.advance(ctx, logCtx, run, sub.OwnerID, res, models.StageStoring); err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	displayName := render.DocumentName(sub.OriginalName)
	doc, err := stageCall(o, ctx, run, func(ctx context.Context) (*models.RemoteDocument, error) {
		d, err := o.deps.Uploader.Upload(ctx, docPath, displayName, render.DocxMIMEType, sub.Credential, sub.FolderID)
		return d, ensureKind(err, apperr.StorageUploadFailed, "document upload failed")
	})
	if err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	res.Document = doc

	mediaType := sub.MediaType
	if mediaType == "" {
		mediaType = transcribe.MIMETypeFor(sub.OriginalName)
	}
	id, err := o.deps.History.Append(ctx, models.HistoryEntry{
		OwnerID:        sub.OwnerID,
		DisplayName:    displayName,
		OriginalName:   sub.OriginalName,
		MediaType:      mediaType,
		ByteSize:       staged.Size,
		TranscriptText: text,
		RemoteDocID:    doc.ID,
		RemoteDocURL:   doc.URL,
	})
	if err != nil {
		// The document now exists remotely with no history entry pointing at it.
		logCtx.Error("Orphaned remote document: history write failed.", "remoteDocId", doc.ID, "remoteDocUrl", doc.URL, "error", err)
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, apperr.Wrap(apperr.HistoryWriteFailed, "failed to record history", err))
	}
	res.HistoryID = id

	if err := o.advance(ctx, logCtx, run, sub.OwnerID, res, models.StageComplete); err != nil {
		return o.fail(ctx, logCtx, run, sub.OwnerID, res, err)
	}
	logCtx.Info("Pipeline run complete.", "historyId", id, "remoteDocId", doc.ID)
	return res, nil
}

func (o *Orchestrator) advance(ctx context.Context, logCtx *slog.Logger, run *Run, ownerID string, res *Result, stage models.Stage) error {
	if err := run.Advance(stage); err != nil {
		return apperr.Wrap(apperr.Internal, "pipeline state error", err)
	}
	logCtx.Info("Pipeline stage changed.", "stage", stage, "progress", run.Snapshot().ProgressPercent)
	o.publish(ctx, logCtx, run, ownerID, res)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, logCtx *slog.Logger, run *Run, ownerID string, res *Result, err error) (*Result, error) {
	kind := apperr.KindOf(err)
	failedAt := run.Stage()
	res.FailedAt = failedAt
	if ferr := run.Fail(kind, apperr.MessageOf(err)); ferr != nil {
		logCtx.Error("Pipeline state error.", "error", ferr)
	}
	logCtx.Error("Pipeline run failed.", "stage", failedAt, "errorKind", kind, "error", err)
	o.publish(ctx, logCtx, run, ownerID, res)
	res.Run = run.Snapshot()
	return res, err
}

// publish sends the current state. Errors are logged only.
func (o *Orchestrator) publish(ctx context.Context, logCtx *slog.Logger, run *Run, ownerID string, res *Result) {
	snap := run.Snapshot()
	res.Run = snap
	data := notify.StageData{
		RunID:           snap.ID,
		OwnerID:         ownerID,
		Stage:           snap.Stage,
		ProgressPercent: snap.ProgressPercent,
		ErrorKind:       snap.ErrorKind,
		Message:         snap.Message,
		HistoryID:       res.HistoryID,
	}
	if res.Document != nil {
		data.DocumentURL = res.Document.URL
	}
	e, err := notify.NewStageEvent(data)
	if err != nil {
		logCtx.Warn("Failed to build stage event.", "error", err)
		return
	}
	if err := o.deps.Publisher.Publish(ctx, e); err != nil {
		logCtx.Warn("Failed to publish stage event.", "stage", snap.Stage, "error", err)
	}
}

// stageCall runs fn inside a span named after the run's current stage.
func stageCall[T any](o *Orchestrator, ctx context.Context, run *Run, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline."+string(run.Stage()),
		trace.WithAttributes(attribute.String("run.id", run.ID())))
	defer span.End()

	v, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	return v, err
}

func (o *Orchestrator) cleanupStaged(logCtx *slog.Logger, ref string, staged *staging.Staged) {
	if err := staged.Close(); err != nil {
		logCtx.Warn("Failed to close staged upload.", "error", err)
	}
	// The request context may already be done; cleanup is not tied to it.
	if err := o.deps.Stager.Remove(context.Background(), ref); err != nil {
		logCtx.Warn("Failed to remove staged upload.", "ref", ref, "error", err)
	}
}

// ensureKind keeps err if it already carries kind, and wraps it otherwise.
func ensureKind(err error, kind apperr.Kind, message string) error {
	if err == nil || apperr.Is(err, kind) {
		return err
	}
	return apperr.Wrap(kind, message, err)
}
