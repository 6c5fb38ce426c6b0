// Package notify carries pipeline stage changes to interested parties as
// CloudEvents. Publishing is fire-and-forget from the pipeline's point of
// view: a failed publish is logged by the caller and never fails a run.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/models"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const (
	// StageEventType is the CloudEvents type of every stage change.
	StageEventType = "com.voicedocflow.pipeline.stage"
	// Source is the CloudEvents source of events emitted by this service.
	Source = "/voicedocflow/pipeline"
	// OwnerExtension names the extension attribute holding the run's owner.
	OwnerExtension = "ownerid"
)

// StageData is the payload of a stage event.
type StageData struct {
	RunID           string       `json:"runId"`
	OwnerID         string       `json:"ownerId"`
	Stage           models.Stage `json:"stage"`
	ProgressPercent int          `json:"progressPercent"`
	ErrorKind       string       `json:"errorKind,omitempty"`
	Message         string       `json:"message,omitempty"`
	HistoryID       int64        `json:"historyId,omitempty"`
	DocumentURL     string       `json:"docxUrl,omitempty"`
}

// Publisher delivers an event somewhere.
type Publisher interface {
	Publish(ctx context.Context, e cloudevents.Event) error
}

// NewStageEvent wraps data in a CloudEvent.
func NewStageEvent(data StageData) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(Source)
	e.SetType(StageEventType)
	e.SetSubject(data.RunID)
	e.SetTime(time.Now().UTC())
	e.SetExtension(OwnerExtension, data.OwnerID)
	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, fmt.Errorf("encoding stage data: %w", err)
	}
	return e, nil
}

// DecodeStage extracts StageData from a stage event.
func DecodeStage(e cloudevents.Event) (StageData, error) {
	var data StageData
	if e.Type() != StageEventType {
		return data, fmt.Errorf("unexpected event type %q", e.Type())
	}
	if err := e.DataAs(&data); err != nil {
		return data, fmt.Errorf("decoding stage data: %w", err)
	}
	return data, nil
}

// OwnerOf returns the owner extension of e, or "".
func OwnerOf(e cloudevents.Event) string {
	v, ok := e.Extensions()[OwnerExtension]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e cloudevents.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, cloudevents.Event) error { return nil }
