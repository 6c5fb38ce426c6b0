package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// TranscriberSystemPrompt frames the model as a transcription engine.
const TranscriberSystemPrompt = "You are a speech transcription engine. You receive a single audio recording and return only what was said, as plain text."

// VertexClient holds the pre-configured generative model used for transcription.
type VertexClient struct {
	TranscriberModel *genai.GenerativeModel
	baseClient       *genai.Client
}

// NewVertexClient creates a new client holding the transcription model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("NewVertexClient: modelName cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	transcriberModel := baseClient.GenerativeModel(modelName)
	transcriberModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(TranscriberSystemPrompt)},
	}
	// Transcripts should be faithful, not creative.
	transcriberModel.GenerationConfig.Temperature = genai.Ptr[float32](0.0)

	return &VertexClient{
		TranscriberModel: transcriberModel,
		baseClient:       baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
