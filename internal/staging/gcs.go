package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/voicedocflow/internal/gcp"
)

// GCSStager keeps uploads in a Cloud Storage bucket. Opened uploads are
// handed to the speech model by gs:// URI, so the audio never passes back
// through this service.
type GCSStager struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStager stages under gs://bucket/prefix/.
func NewGCSStager(client *storage.Client, bucket, prefix string) *GCSStager {
	return &GCSStager{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *GCSStager) objectName(ref string) string {
	if s.prefix == "" {
		return ref
	}
	return path.Join(s.prefix, ref)
}

func (s *GCSStager) Stage(ctx context.Context, originalName string, r io.Reader) (string, int64, error) {
	name := newName(originalName)
	contentType := "application/octet-stream"
	n, err := gcp.WriteObjectAtomically(ctx, s.client.Bucket(s.bucket), s.objectName(name), contentType, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stage upload to GCS: %w", err)
	}
	return name, n, nil
}

func (s *GCSStager) Open(ctx context.Context, ref string) (*Staged, error) {
	if !validName(ref) {
		return nil, ErrInvalidRef
	}
	object := s.objectName(ref)
	attrs, err := s.client.Bucket(s.bucket).Object(object).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read attrs for gs://%s/%s: %w", s.bucket, object, err)
	}
	return &Staged{
		Ref:     ref,
		FileURI: fmt.Sprintf("gs://%s/%s", s.bucket, object),
		Size:    attrs.Size,
	}, nil
}

func (s *GCSStager) Remove(ctx context.Context, ref string) error {
	if !validName(ref) {
		return ErrInvalidRef
	}
	err := s.client.Bucket(s.bucket).Object(s.objectName(ref)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}
