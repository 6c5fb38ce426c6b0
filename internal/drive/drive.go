// Package drive is the remote storage client: it uploads rendered documents to
// the user's Google Drive and manages folders and file names there.
//
// Every call authenticates with the credential it is given. Nothing is cached
// between calls, and nothing is retried.
package drive

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/Lllllllleong/voicedocflow/internal/apperr"
	"github.com/Lllllllleong/voicedocflow/internal/auth"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMIMEType = "application/vnd.google-apps.folder"
	folderQuery    = "mimeType='" + folderMIMEType + "' and trashed=false"
	listPageSize   = 100
)

// Client talks to the Drive v3 API on behalf of one caller at a time.
type Client struct {
	oauth         *oauth2.Config
	defaultFolder string
	opts          []option.ClientOption
}

// NewClient creates a Drive client. oauthCfg enables refreshing expired
// credentials; defaultFolder is used when an upload names no folder. Extra
// options (such as option.WithEndpoint) are applied to every service.
func NewClient(oauthCfg *oauth2.Config, defaultFolder string, opts ...option.ClientOption) *Client {
	return &Client{oauth: oauthCfg, defaultFolder: defaultFolder, opts: opts}
}

func (c *Client) service(ctx context.Context, cred auth.Credential) (*drive.Service, error) {
	httpClient := oauth2.NewClient(ctx, cred.TokenSource(ctx, c.oauth))
	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.opts...)
	return drive.NewService(ctx, opts...)
}

// Upload places the document at localPath in folderID, or in the default
// folder, or in the Drive root.
func (c *Client) Upload(ctx context.Context, localPath, displayName, mimeType string, cred auth.Credential, folderID string) (*models.RemoteDocument, error) {
	logCtx := slog.With("displayName", displayName, "folderId", folderID)

	f, err := os.Open(localPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageUploadFailed, "failed to open rendered document", err)
	}
	defer f.Close()

	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageUploadFailed, "failed to create drive service", err)
	}

	meta := &drive.File{Name: displayName}
	switch {
	case folderID != "":
		meta.Parents = []string{folderID}
	case c.defaultFolder != "":
		meta.Parents = []string{c.defaultFolder}
	}

	created, err := svc.Files.Create(meta).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		logCtx.Error("Drive upload failed", "error", err)
		return nil, apperr.Wrap(apperr.StorageUploadFailed, "Google Drive upload failed", err)
	}
	logCtx.Info("Uploaded document to Drive.", "remoteId", created.Id)
	return &models.RemoteDocument{ID: created.Id, Name: displayName, URL: created.WebViewLink}, nil
}

// ListFolders returns every non-trashed folder visible to the credential,
// sorted by name.
func (c *Client) ListFolders(ctx context.Context, cred auth.Credential) ([]models.Folder, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageQueryFailed, "failed to create drive service", err)
	}

	folders := []models.Folder{}
	err = svc.Files.List().
		Q(folderQuery).
		Fields("nextPageToken, files(id, name, parents)").
		OrderBy("name").
		PageSize(listPageSize).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				folders = append(folders, models.Folder{ID: f.Id, Name: f.Name, Parents: f.Parents})
			}
			return nil
		})
	if err != nil {
		slog.Error("Drive folder listing failed", "error", err)
		if IsAuthError(err) {
			return nil, apperr.Wrap(apperr.StorageAuthFailed, "Google Drive rejected the credential", err)
		}
		return nil, apperr.Wrap(apperr.StorageQueryFailed, "failed to list folders", err)
	}

	sort.SliceStable(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// CreateFolder creates a folder under parentID, or in the root. Names are not
// de-duplicated.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string, cred auth.Credential) (*models.Folder, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageCreateFailed, "failed to create drive service", err)
	}

	meta := &drive.File{Name: name, MimeType: folderMIMEType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := svc.Files.Create(meta).Fields("id, name, parents").Context(ctx).Do()
	if err != nil {
		slog.Error("Drive folder creation failed", "name", name, "error", err)
		return nil, apperr.Wrap(apperr.StorageCreateFailed, "failed to create folder", err)
	}
	return &models.Folder{ID: created.Id, Name: created.Name, Parents: created.Parents}, nil
}

// Rename changes the name of a remote file. No local copy is touched.
func (c *Client) Rename(ctx context.Context, remoteID, newName string, cred auth.Credential) (*models.RemoteDocument, error) {
	svc, err := c.service(ctx, cred)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageRenameFailed, "failed to create drive service", err)
	}
	updated, err := svc.Files.Update(remoteID, &drive.File{Name: newName}).
		Fields("id, name, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("Drive rename failed", "remoteId", remoteID, "error", err)
		return nil, apperr.Wrap(apperr.StorageRenameFailed, "failed to rename file", err)
	}
	return &models.RemoteDocument{ID: updated.Id, Name: updated.Name, URL: updated.WebViewLink}, nil
}

// IsAuthError reports whether err was caused by Drive rejecting the
// credential (HTTP 401) or by a failed token refresh. Only ListFolders turns
// this into StorageAuthFailed; the other operations keep their own kind and
// callers use this to ask the user to sign in again.
func IsAuthError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return true
	}
	var rerr *oauth2.RetrieveError
	return errors.As(err, &rerr)
}
