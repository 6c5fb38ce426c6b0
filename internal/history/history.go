// Package history is the ownership-scoped log of completed pipeline runs.
//
// Every read and write is filtered by owner. An id that belongs to someone
// else behaves exactly like an id that does not exist.
package history

import (
	"context"
	"errors"

	"github.com/Lllllllleong/voicedocflow/internal/models"
)

// ErrEmptyOwner is returned when an entry or query has no owner.
var ErrEmptyOwner = errors.New("history: owner id must not be empty")

// Repository is implemented by every history backend.
type Repository interface {
	// Append stores entry and returns its assigned id. entry.ID is ignored;
	// CreatedAt is set by the store so it increases with the id.
	Append(ctx context.Context, entry models.HistoryEntry) (int64, error)
	// ListByOwner returns the owner's entries, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.HistoryEntry, error)
	// Get returns the entry if ownerID owns it.
	Get(ctx context.Context, id int64, ownerID string) (models.HistoryEntry, bool, error)
	// Delete removes the entry if ownerID owns it. It never touches remote storage.
	Delete(ctx context.Context, id int64, ownerID string) (bool, error)
	// RenameDisplayName updates DisplayName only, if ownerID owns the entry.
	RenameDisplayName(ctx context.Context, id int64, ownerID, newName string) (bool, error)
}
