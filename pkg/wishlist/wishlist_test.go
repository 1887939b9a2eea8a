package wishlist

import (
	"context"
	"testing"

	"github.com/datx24/storefront/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggle(t *testing.T) {
	svc := NewService(storage.NewMemory())
	ctx := context.Background()

	ids, saved, err := svc.Toggle(ctx, "s1", 5)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, []int64{5}, ids)

	ids, saved, err = svc.Toggle(ctx, "s1", 5)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, ids)
}

func TestAddIsIdempotent(t *testing.T) {
	svc := NewService(storage.NewMemory())
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "s1", 2)
	require.NoError(t, err)
	ids, err := svc.Add(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	ok, err := svc.Contains(ctx, "s1", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err = svc.Remove(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}

func TestIDs_Malformed(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Set(context.Background(), "s1", storage.KeyWishlist, []byte(`"x"`)))

	ids, err := NewService(store).IDs(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
