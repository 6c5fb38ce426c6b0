package history

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Runs only against the Firestore emulator.
func TestFirestoreRepository(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "voicedocflow-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	runRepositoryContract(t, func(t *testing.T) Repository {
		return NewFirestoreRepository(client, "history_"+uuid.NewString()[:8])
	})
}
