package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/googleapis/gax-go/v2"
)

// ExecutionCreator is the part of the Workflows executions client used here.
type ExecutionCreator interface {
	CreateExecution(ctx context.Context, req *executionspb.CreateExecutionRequest, opts ...gax.CallOption) (*executionspb.Execution, error)
}

// WorkflowSink starts one Workflow execution per completed run.
// Events for any other stage are ignored.
type WorkflowSink struct {
	client  ExecutionCreator
	parent  string
	Timeout time.Duration
}

func NewWorkflowSink(client ExecutionCreator, parent string) *WorkflowSink {
	return &WorkflowSink{client: client, parent: parent, Timeout: DefaultPublishTimeout}
}

func (w *WorkflowSink) Publish(ctx context.Context, e cloudevents.Event) error {
	data, err := DecodeStage(e)
	if err != nil {
		return err
	}
	if data.Stage != models.StageComplete {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"runId":     data.RunID,
		"ownerId":   data.OwnerID,
		"historyId": data.HistoryID,
		"docxUrl":   data.DocumentURL,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	ctx, cancel := withPublishTimeout(ctx, w.Timeout)
	defer cancel()
	exec, err := w.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent:    w.parent,
		Execution: &executionspb.Execution{Argument: string(payload)},
	})
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	slog.Info("Triggered workflow execution.", "runId", data.RunID, "execution", exec.GetName())
	return nil
}
