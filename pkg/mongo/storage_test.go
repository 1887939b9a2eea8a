package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/datx24/storefront/pkg/storage"
)

func setupTestDB(t *testing.T) *mongo.Database {
	if testing.Short() {
		t.Skip("skipping mongodb container test in short mode")
	}
	ctx := context.Background()

	// change streams need a replica set
	mongoContainer, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := Connect(uri)
	require.NoError(t, err)
	t.Cleanup(func() { Disconnect(client) })

	db := client.Database("storefront_test")
	require.NoError(t, EnsureIndexes(ctx, db, time.Hour))
	return db
}

func TestMongoStorage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := NewStorage(db)

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "sess-1", storage.KeyCart)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "sess-1", storage.KeyToken, []byte("abc")))
		require.NoError(t, s.Set(ctx, "sess-1", storage.KeyToken, []byte("def")))
		got, err := s.Get(ctx, "sess-1", storage.KeyToken)
		require.NoError(t, err)
		assert.Equal(t, "def", string(got))
	})

	t.Run("update increments", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, err := storage.UpdateJSON(ctx, s, "sess-1", "counter", func(v *int) error {
				*v++
				return nil
			})
			require.NoError(t, err)
		}
		var n int
		_, err := storage.LoadJSON(ctx, s, "sess-1", "counter", &n)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("update retries after concurrent write", func(t *testing.T) {
		calls := 0
		err := s.Update(ctx, "sess-1", storage.KeyToken, func(old []byte) ([]byte, error) {
			calls++
			if calls == 1 {
				require.NoError(t, s.Set(ctx, "sess-1", storage.KeyToken, []byte("zzz")))
			}
			return append(old, '!'), nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		got, err := s.Get(ctx, "sess-1", storage.KeyToken)
		require.NoError(t, err)
		assert.Equal(t, "zzz!", string(got))
	})

	t.Run("update nil deletes", func(t *testing.T) {
		require.NoError(t, s.Update(ctx, "sess-1", storage.KeyToken, func([]byte) ([]byte, error) {
			return nil, nil
		}))
		_, err := s.Get(ctx, "sess-1", storage.KeyToken)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("activity", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "sess-2", storage.KeyCart, []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "sess-3", storage.KeyCart, []byte(`[]`)))

		activity, err := s.Activity(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, activity.ActiveSessions)
		require.NotEmpty(t, activity.Keys)
		assert.Equal(t, storage.KeyCart, activity.Keys[0].Key)
		assert.Equal(t, 2, activity.Keys[0].Sessions)
	})
}

func TestMongoStorageSubscribe(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewStorage(db)

	changes, err := s.Subscribe(ctx, "sess-1")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "sess-9", storage.KeyCart, []byte(`[]`)))
	require.NoError(t, s.Set(ctx, "sess-1", storage.KeyCart, []byte(`[]`)))
	require.NoError(t, s.Delete(ctx, "sess-1", storage.KeyCart))

	var got []storage.Change
	timeout := time.After(10 * time.Second)
	for len(got) < 2 {
		select {
		case change := <-changes:
			got = append(got, change)
		case <-timeout:
			t.Fatalf("received %d changes", len(got))
		}
	}
	assert.Equal(t, []storage.Change{
		{Scope: "sess-1", Key: storage.KeyCart},
		{Scope: "sess-1", Key: storage.KeyCart, Deleted: true},
	}, got)
}
