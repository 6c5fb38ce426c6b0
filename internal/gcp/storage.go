package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists is returned when an atomic write targets an existing object.
var ErrObjectExists = errors.New("object already exists")

// WriteObjectAtomically streams r into a new GCS object. The write is
// conditional on the object not existing, so a finished object is never
// overwritten and a failed write leaves nothing behind.
func WriteObjectAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, r io.Reader) (int64, error) {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	n, err := io.Copy(writer, r)
	if err != nil {
		_ = writer.Close()
		slog.Error("Failed to copy content to GCS object", "object", objectName, "error", err)
		return 0, fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return 0, fmt.Errorf("gs://%s/%s: %w", writer.Bucket, objectName, ErrObjectExists)
		}
		slog.Error("Failed to close GCS writer", "object", objectName, "error", err)
		return 0, fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return n, nil
}
