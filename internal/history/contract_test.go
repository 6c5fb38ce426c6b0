package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Lllllllleong/voicedocflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(owner, name string) models.HistoryEntry {
	return models.HistoryEntry{
		OwnerID:        owner,
		DisplayName:    name + ".docx",
		OriginalName:   name + ".wav",
		MediaType:      "audio/wav",
		ByteSize:       1024,
		TranscriptText: "こんにちは",
		RemoteDocID:    "doc-" + name,
		RemoteDocURL:   "https://docs.example/" + name,
	}
}

// runRepositoryContract exercises behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("append assigns increasing ids and lists newest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Append(ctx, sampleEntry("alice", "one"))
		require.NoError(t, err)
		second, err := repo.Append(ctx, sampleEntry("alice", "two"))
		require.NoError(t, err)
		assert.Greater(t, second, first)

		items, err := repo.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, second, items[0].ID)
		assert.Equal(t, first, items[1].ID)
		assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
		assert.Equal(t, "こんにちは", items[0].TranscriptText)
	})

	t.Run("empty owner is rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Append(context.Background(), sampleEntry("", "x"))
		assert.ErrorIs(t, err, ErrEmptyOwner)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Append(ctx, sampleEntry("alice", "private"))
		require.NoError(t, err)

		items, err := repo.ListByOwner(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, items)

		ok, err := repo.Delete(ctx, id, "bob")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.RenameDisplayName(ctx, id, "bob", "stolen.docx")
		require.NoError(t, err)
		assert.False(t, ok)

		items, err = repo.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "private.docx", items[0].DisplayName)
	})

	t.Run("get is scoped by owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Append(ctx, sampleEntry("alice", "memo"))
		require.NoError(t, err)

		e, ok, err := repo.Get(ctx, id, "alice")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, id, e.ID)
		assert.Equal(t, "doc-memo", e.RemoteDocID)

		_, ok, err = repo.Get(ctx, id, "bob")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = repo.Get(ctx, id+1000, "alice")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rename changes only the display name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Append(ctx, sampleEntry("alice", "meeting"))
		require.NoError(t, err)
		before, err := repo.ListByOwner(ctx, "alice")
		require.NoError(t, err)

		ok, err := repo.RenameDisplayName(ctx, id, "alice", "議事録.docx")
		require.NoError(t, err)
		assert.True(t, ok)

		after, err := repo.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, after, 1)

		want := before[0]
		want.DisplayName = "議事録.docx"
		assert.Equal(t, want.ID, after[0].ID)
		assert.Equal(t, want.DisplayName, after[0].DisplayName)
		assert.Equal(t, want.RemoteDocID, after[0].RemoteDocID)
		assert.Equal(t, want.OriginalName, after[0].OriginalName)
		assert.True(t, want.CreatedAt.Equal(after[0].CreatedAt))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Append(ctx, sampleEntry("alice", "gone"))
		require.NoError(t, err)

		ok, err := repo.Delete(ctx, id, "alice")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Delete(ctx, id, "alice")
		require.NoError(t, err)
		assert.False(t, ok)

		items, err := repo.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("concurrent appends keep ids unique", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		var wg sync.WaitGroup
		ids := make(chan int64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				owner := "alice"
				if i%2 == 1 {
					owner = "bob"
				}
				id, err := repo.Append(ctx, sampleEntry(owner, fmt.Sprintf("f%d", i)))
				if assert.NoError(t, err) {
					ids <- id
				}
			}(i)
		}
		wg.Wait()
		close(ids)

		seen := map[int64]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)

		for _, owner := range []string{"alice", "bob"} {
			items, err := repo.ListByOwner(ctx, owner)
			require.NoError(t, err)
			assert.Len(t, items, n/2)
			for _, it := range items {
				assert.Equal(t, owner, it.OwnerID)
			}
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}
