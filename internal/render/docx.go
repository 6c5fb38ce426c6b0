// Package render writes transcripts out as Word (.docx) documents.
package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	docx "github.com/fumiama/go-docx"
	"github.com/google/uuid"
)

// DocxMIMEType is the media type of the rendered artifact.
const DocxMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Labels are the fixed strings placed around the transcript.
type Labels struct {
	Title       string
	SourceFile  string
	GeneratedAt string
	Body        string
}

// DefaultLabels matches the Japanese-language documents the service produces.
var DefaultLabels = Labels{
	Title:       "音声文字起こし結果",
	SourceFile:  "元ファイル",
	GeneratedAt: "作成日時",
	Body:        "文字起こし内容",
}

// Renderer produces one .docx file per call under Dir.
type Renderer struct {
	Dir      string
	Labels   Labels
	Location *time.Location
	Now      func() time.Time
}

// NewRenderer creates a renderer writing to dir with timestamps in loc.
func NewRenderer(dir string, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{Dir: dir, Labels: DefaultLabels, Location: loc, Now: time.Now}
}

// Render writes the document and returns its path. The file only appears at
// the returned path once it is completely written.
func (r *Renderer) Render(transcript, originalName string) (string, error) {
	now := r.Now().In(r.Location)

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.RenderFailed, "failed to create output directory", err)
	}

	var buf bytes.Buffer
	if _, err := r.build(transcript, originalName, now).WriteTo(&buf); err != nil {
		return "", apperr.Wrap(apperr.RenderFailed, "failed to build document", err)
	}

	name := fmt.Sprintf("transcription_%d_%s.docx", now.UnixMilli(), uuid.NewString()[:8])
	finalPath := filepath.Join(r.Dir, name)
	if err := writeFileAtomically(finalPath, buf.Bytes()); err != nil {
		return "", apperr.Wrap(apperr.RenderFailed, "failed to write document", err)
	}

	slog.Info("Rendered transcript document.", "path", finalPath, "bytes", buf.Len())
	return finalPath, nil
}

// DocumentName is the remote/display name for a document rendered from originalName.
func DocumentName(originalName string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "transcription"
	}
	return base + ".docx"
}

func writeFileAtomically(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docx-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Half-point run sizes for the two heading levels.
const (
	titleSize   = "32"
	headingSize = "28"
)

func (r *Renderer) build(transcript, originalName string, now time.Time) *docx.Docx {
	doc := docx.New().WithDefaultTheme()

	title := doc.AddParagraph().Justification("center")
	preserve(title.AddText(r.Labels.Title).Bold().Size(titleSize))

	source := spaced(doc.AddParagraph(), 400)
	preserve(source.AddText(fmt.Sprintf("%s: %s", r.Labels.SourceFile, originalName)).Bold())

	generated := spaced(doc.AddParagraph(), 200)
	preserve(generated.AddText(fmt.Sprintf("%s: %s", r.Labels.GeneratedAt, now.Format("2006/1/2 15:04:05"))).Italic())

	body := spaced(doc.AddParagraph(), 400)
	preserve(body.AddText(r.Labels.Body).Bold().Size(headingSize))

	for _, line := range strings.Split(strings.ReplaceAll(transcript, "\r\n", "\n"), "\n") {
		preserve(spaced(doc.AddParagraph(), 100).AddText(line))
	}

	// The section properties must follow the last paragraph.
	return doc.WithA4Page()
}

func spaced(p *docx.Paragraph, before int) *docx.Paragraph {
	if p.Properties == nil {
		p.Properties = &docx.ParagraphProperties{}
	}
	p.Properties.Spacing = &docx.Spacing{Before: before}
	return p
}

// preserve keeps leading and trailing whitespace in transcript lines.
func preserve(run *docx.Run) {
	for _, c := range run.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
}
