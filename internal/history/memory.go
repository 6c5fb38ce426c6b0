package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lllllllleong/voicedocflow/internal/models"
)

// MemoryRepository keeps history in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	entries map[int64]models.HistoryEntry
	nextID  int64
	last    time.Time
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[int64]models.HistoryEntry), nextID: 1, now: time.Now}
}

func (r *MemoryRepository) Append(ctx context.Context, entry models.HistoryEntry) (int64, error) {
	if entry.OwnerID == "" {
		return 0, ErrEmptyOwner
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = r.now()
	if !entry.CreatedAt.After(r.last) {
		entry.CreatedAt = r.last.Add(time.Microsecond)
	}
	r.last = entry.CreatedAt
	r.entries[entry.ID] = entry
	return entry.ID, nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.HistoryEntry, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.HistoryEntry{}
	for _, e := range r.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int64, ownerID string) (models.HistoryEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.OwnerID != ownerID {
		return models.HistoryEntry{}, false, nil
	}
	return e, true, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.OwnerID != ownerID {
		return false, nil
	}
	delete(r.entries, id)
	return true, nil
}

func (r *MemoryRepository) RenameDisplayName(ctx context.Context, id int64, ownerID, newName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.OwnerID != ownerID {
		return false, nil
	}
	e.DisplayName = newName
	r.entries[id] = e
	return true, nil
}
