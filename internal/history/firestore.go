package history

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/voicedocflow/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type historyCounter struct {
	Next          int64     `firestore:"next"`
	LastCreatedAt time.Time `firestore:"lastCreatedAt"`
}

// FirestoreRepository stores each entry as a document keyed by its numeric id.
// Ids come from a counter document updated in the same transaction as the write.
type FirestoreRepository struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestoreRepository(client *firestore.Client, collection string) *FirestoreRepository {
	return &FirestoreRepository{client: client, collection: collection, now: time.Now}
}

func (r *FirestoreRepository) doc(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(strconv.FormatInt(id, 10))
}

func (r *FirestoreRepository) Append(ctx context.Context, entry models.HistoryEntry) (int64, error) {
	if entry.OwnerID == "" {
		return 0, ErrEmptyOwner
	}
	counterRef := r.client.Collection("_meta").Doc(r.collection + "Counter")

	var id int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		counter := historyCounter{Next: 1}
		snap, err := tx.Get(counterRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return fmt.Errorf("reading history counter: %w", err)
		default:
			if err := snap.DataTo(&counter); err != nil {
				return fmt.Errorf("decoding history counter: %w", err)
			}
		}

		e := entry
		e.ID = counter.Next
		e.CreatedAt = r.now().UTC()
		if !e.CreatedAt.After(counter.LastCreatedAt) {
			e.CreatedAt = counter.LastCreatedAt.Add(time.Microsecond)
		}

		if err := tx.Create(r.doc(e.ID), e); err != nil {
			return err
		}
		id = e.ID
		return tx.Set(counterRef, historyCounter{Next: e.ID + 1, LastCreatedAt: e.CreatedAt})
	})
	if err != nil {
		return 0, fmt.Errorf("firestore append: %w", err)
	}
	return id, nil
}

func (r *FirestoreRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.HistoryEntry, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	iter := r.client.Collection(r.collection).Where("ownerId", "==", ownerID).Documents(ctx)
	defer iter.Stop()

	out := []models.HistoryEntry{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list: %w", err)
		}
		var e models.HistoryEntry
		if err := snap.DataTo(&e); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", snap.Ref.ID, err)
		}
		out = append(out, e)
	}
	// Sorted here so the query needs no composite index.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *FirestoreRepository) Get(ctx context.Context, id int64, ownerID string) (models.HistoryEntry, bool, error) {
	snap, err := r.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.HistoryEntry{}, false, nil
	}
	if err != nil {
		return models.HistoryEntry{}, false, fmt.Errorf("firestore get %d: %w", id, err)
	}
	var e models.HistoryEntry
	if err := snap.DataTo(&e); err != nil {
		return models.HistoryEntry{}, false, fmt.Errorf("decoding %s: %w", snap.Ref.ID, err)
	}
	if e.OwnerID != ownerID {
		return models.HistoryEntry{}, false, nil
	}
	return e, true, nil
}

func (r *FirestoreRepository) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	return r.ownedUpdate(ctx, id, ownerID, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		return tx.Delete(ref)
	})
}

func (r *FirestoreRepository) RenameDisplayName(ctx context.Context, id int64, ownerID, newName string) (bool, error) {
	return r.ownedUpdate(ctx, id, ownerID, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		return tx.Update(ref, []firestore.Update{{Path: "displayName", Value: newName}})
	})
}

func (r *FirestoreRepository) ownedUpdate(ctx context.Context, id int64, ownerID string, apply func(*firestore.Transaction, *firestore.DocumentRef) error) (bool, error) {
	ref := r.doc(id)
	var found bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		found = false
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}
		owner, err := snap.DataAt("ownerId")
		if err != nil || owner != ownerID {
			return nil
		}
		found = true
		return apply(tx, ref)
	})
	if err != nil {
		return false, fmt.Errorf("firestore update %d: %w", id, err)
	}
	return found, nil
}
