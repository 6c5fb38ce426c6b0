package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeDrive is a minimal stand-in for the Drive v3 REST surface.
type fakeDrive struct {
	mu         sync.Mutex
	status     int
	lastMeta   map[string]any
	lastMedia  string
	authHeader string
	queries    []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeader = r.Header.Get("Authorization")
	w.Header().Set("Content-Type", "application/json")

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s"}}`, f.status, http.StatusText(f.status))
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		f.readCreateBody(r)
		if f.lastMeta["mimeType"] == folderMIMEType {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "folder-1", "name": f.lastMeta["name"], "parents": f.lastMeta["parents"]})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "f1", "webViewLink": "https://drive.example.com/f1"})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"nextPageToken":"p2","files":[{"id":"b","name":"Beta"},{"id":"z","name":"Zulu"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"files":[{"id":"a","name":"Alpha","parents":["root"]}]}`)
	case r.Method == http.MethodPatch && strings.Contains(r.URL.Path, "/files/"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "name": body["name"], "webViewLink": "https://drive.example.com/" + id})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeDrive) readCreateBody(r *http.Request) {
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		_ = json.NewDecoder(r.Body).Decode(&f.lastMeta)
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := mr.NextPart()
	if err != nil {
		return
	}
	_ = json.NewDecoder(metaPart).Decode(&f.lastMeta)
	if mediaPart, err := mr.NextPart(); err == nil {
		b, _ := io.ReadAll(mediaPart)
		f.lastMedia = string(b)
	}
}

func newTestClient(t *testing.T, defaultFolder string) (*Client, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(nil, defaultFolder, option.WithEndpoint(srv.URL+"/drive/v3/")), fake
}

var cred = auth.Credential{AccessToken: "tok"}

func writeDoc(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(p, []byte("PK-docx"), 0o644))
	return p
}

func TestUpload(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	doc, err := c.Upload(context.Background(), writeDoc(t), "rec.docx", "application/octet-stream", cred, "folder-9")
	require.NoError(t, err)
	assert.Equal(t, "f1", doc.ID)
	assert.Equal(t, "https://drive.example.com/f1", doc.URL)

	assert.Equal(t, "Bearer tok", fake.authHeader)
	assert.Equal(t, "rec.docx", fake.lastMeta["name"])
	assert.Equal(t, []any{"folder-9"}, fake.lastMeta["parents"])
	assert.Equal(t, "PK-docx", fake.lastMedia)
}

func TestUpload_DefaultFolderAndRoot(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "default-folder")
	_, err := c.Upload(context.Background(), writeDoc(t), "a.docx", "application/octet-stream", cred, "")
	require.NoError(t, err)
	assert.Equal(t, []any{"default-folder"}, fake.lastMeta["parents"])

	c, fake = newTestClient(t, "")
	_, err = c.Upload(context.Background(), writeDoc(t), "a.docx", "application/octet-stream", cred, "")
	require.NoError(t, err)
	assert.Nil(t, fake.lastMeta["parents"])
}

func TestUpload_Failures(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	fake.status = http.StatusUnauthorized
	_, err := c.Upload(context.Background(), writeDoc(t), "a.docx", "application/octet-stream", cred, "")
	require.Error(t, err)
	assert.Equal(t, apperr.StorageUploadFailed, apperr.KindOf(err))
	assert.True(t, IsAuthError(err))

	_, err = c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.docx"), "a.docx", "application/octet-stream", cred, "")
	assert.Equal(t, apperr.StorageUploadFailed, apperr.KindOf(err))
	assert.False(t, IsAuthError(err))
}

func TestListFolders_SortedAcrossPages(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	folders, err := c.ListFolders(context.Background(), cred)
	require.NoError(t, err)

	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Alpha", "Beta", "Zulu"}, names)
	assert.Equal(t, []string{"root"}, folders[0].Parents)
	require.NotEmpty(t, fake.queries)
	assert.Equal(t, folderQuery, fake.queries[0])
}

func TestListFolders_AuthFailure(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	fake.status = http.StatusUnauthorized
	_, err := c.ListFolders(context.Background(), cred)
	require.Error(t, err)
	assert.Equal(t, apperr.StorageAuthFailed, apperr.KindOf(err))
}

func TestListFolders_QueryFailure(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	fake.status = http.StatusBadRequest
	_, err := c.ListFolders(context.Background(), cred)
	require.Error(t, err)
	assert.Equal(t, apperr.StorageQueryFailed, apperr.KindOf(err))
}

func TestCreateFolder(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	folder, err := c.CreateFolder(context.Background(), "Minutes", "parent-1", cred)
	require.NoError(t, err)
	assert.Equal(t, "folder-1", folder.ID)
	assert.Equal(t, "Minutes", folder.Name)
	assert.Equal(t, []string{"parent-1"}, folder.Parents)
	assert.Equal(t, folderMIMEType, fake.lastMeta["mimeType"])

	fake.status = http.StatusForbidden
	_, err = c.CreateFolder(context.Background(), "Minutes", "", cred)
	assert.Equal(t, apperr.StorageCreateFailed, apperr.KindOf(err))
}

func TestRename(t *testing.T) {
	t.Parallel()

	c, fake := newTestClient(t, "")
	doc, err := c.Rename(context.Background(), "f1", "new.docx", cred)
	require.NoError(t, err)
	assert.Equal(t, "f1", doc.ID)
	assert.Equal(t, "new.docx", doc.Name)

	fake.status = http.StatusUnauthorized
	_, err = c.Rename(context.Background(), "f1", "new.docx", cred)
	assert.Equal(t, apperr.StorageRenameFailed, apperr.KindOf(err))
	assert.True(t, IsAuthError(err))
}
