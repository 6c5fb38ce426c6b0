package render

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	docx "github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPart(t *testing.T, path, part string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("part %s not found in %s", part, path)
	return ""
}

func fixedRenderer(dir string) *Renderer {
	r := NewRenderer(dir, time.UTC)
	r.Now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return r
}

func TestRender_Contents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := fixedRenderer(dir).Render("こんにちは\n二行目 <&>", "rec.wav")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "transcription_"))
	assert.Equal(t, ".docx", filepath.Ext(path))

	doc := readPart(t, path, "word/document.xml")
	assert.Contains(t, doc, "音声文字起こし結果")
	assert.Contains(t, doc, "元ファイル: rec.wav")
	assert.Contains(t, doc, "作成日時: 2025/3/4 05:06:07")
	assert.Contains(t, doc, "こんにちは")
	assert.Contains(t, doc, "二行目 &lt;&amp;&gt;")
	// title, source, timestamp, body heading, then one paragraph per line
	assert.Equal(t, 6, strings.Count(doc, "<w:p>"))

	assert.Contains(t, doc, `<w:jc w:val="center">`)
	assert.Contains(t, readPart(t, path, "[Content_Types].xml"), "wordprocessingml.document.main+xml")
}

func TestRender_ParsesBack(t *testing.T) {
	t.Parallel()

	path, err := fixedRenderer(t.TempDir()).Render("  indented line\nsecond", "rec.wav")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	doc, err := docx.Parse(f, info.Size())
	require.NoError(t, err)

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			paragraphs = append(paragraphs, p.String())
		}
	}
	require.Len(t, paragraphs, 6)
	assert.Equal(t, "音声文字起こし結果", paragraphs[0])
	assert.Equal(t, "  indented line", paragraphs[4])
	assert.Equal(t, "second", paragraphs[5])
}

func TestRender_NoTempFilesLeft(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := fixedRenderer(dir).Render("a", "a.mp3")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".docx", filepath.Ext(entries[0].Name()))
}

func TestRender_ConcurrentCallsDoNotCollide(t *testing.T) {
	t.Parallel()

	r := fixedRenderer(t.TempDir())
	const n = 16
	paths := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := r.Render("text", "a.wav")
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
}

func TestRender_OutputDirFailure(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	path, err := fixedRenderer(filepath.Join(blocker, "out")).Render("a", "a.wav")
	require.Error(t, err)
	assert.Empty(t, path)
	assert.Equal(t, apperr.RenderFailed, apperr.KindOf(err))
}

func TestDocumentName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "meeting.docx", DocumentName("meeting.m4a"))
	assert.Equal(t, "recording.docx", DocumentName("dir/recording.webm"))
	assert.Equal(t, "voice.docx", DocumentName("voice"))
	assert.Equal(t, "transcription.docx", DocumentName(""))
}
