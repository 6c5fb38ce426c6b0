// Package transcribe turns recorded audio into plain-text transcripts using a
// Gemini model on Vertex AI.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/voicedocflow/internal/apperr"
)

// DefaultMIMEType is used for any extension outside the allow-list.
const DefaultMIMEType = "audio/webm"

var mimeTypes = map[string]string{
	"mp3": "audio/mp3",
	"m4a": "audio/mp4",
	"wav": "audio/wav",
	"ogg": "audio/ogg",
}

// MIMETypeFor maps a file name's extension to a MIME type the model accepts.
// Unknown or missing extensions fall back to DefaultMIMEType.
func MIMETypeFor(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return DefaultMIMEType
}

// Source is the audio to transcribe. When FileURI is set (a gs:// object) the
// model reads it directly; otherwise Reader is sent inline.
type Source struct {
	FileName string
	Reader   io.Reader
	FileURI  string
}

// Generator is the part of *genai.GenerativeModel the client needs.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client sends audio plus a fixed instruction to the model. It makes exactly
// one attempt per call.
type Client struct {
	model  Generator
	prompt string
}

// NewClient creates a transcription client. language names the spoken
// language the transcript is written in, e.g. "Japanese".
func NewClient(model Generator, language string) *Client {
	return &Client{model: model, prompt: Prompt(language)}
}

// Prompt builds the instruction sent alongside the audio.
func Prompt(language string) string {
	if language == "" {
		language = "the language spoken in the recording"
	}
	return fmt.Sprintf("Transcribe the audio in %s. Add appropriate punctuation and output it as easy-to-read natural prose. Return only the transcript.", language)
}

// Transcribe returns the transcript of src. An empty transcript is a failure.
func (c *Client) Transcribe(ctx context.Context, src Source) (string, error) {
	mimeType := MIMETypeFor(src.FileName)
	logCtx := slog.With("fileName", src.FileName, "mimeType", mimeType)

	var audio genai.Part
	if src.FileURI != "" {
		audio = genai.FileData{MIMEType: mimeType, FileURI: src.FileURI}
	} else {
		if src.Reader == nil {
			return "", apperr.New(apperr.TranscriptionFailed, "no audio source")
		}
		data, err := io.ReadAll(src.Reader)
		if err != nil {
			return "", apperr.Wrap(apperr.TranscriptionFailed, "failed to read audio", err)
		}
		if len(data) == 0 {
			return "", apperr.New(apperr.TranscriptionFailed, "audio is empty")
		}
		audio = genai.Blob{MIMEType: mimeType, Data: data}
	}

	resp, err := c.model.GenerateContent(ctx, audio, genai.Text(c.prompt))
	if err != nil {
		logCtx.Error("Call to Vertex AI for transcription failed", "error", err)
		return "", apperr.Wrap(apperr.TranscriptionFailed, "speech model call failed", err)
	}

	text := extractText(resp)
	if text == "" {
		logCtx.Warn("Model returned an empty transcript")
		return "", apperr.New(apperr.TranscriptionFailed, "transcription result is empty")
	}
	if isRefusal(text) {
		logCtx.Error("Model refused to transcribe", "response", text)
		return "", apperr.New(apperr.TranscriptionFailed, "speech model refused to transcribe the audio")
	}
	logCtx.Info("Transcription complete.", "chars", len(text))
	return text, nil
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot transcribe",
	"i'm sorry, but i can",
	"as a large language model",
}

// isRefusal reports whether the response opens with a known refusal. Only
// the opening is checked so that speech containing these words survives.
func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return true
		}
	}
	return false
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
