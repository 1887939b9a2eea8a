package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "s1", KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SetGetIsolatedByScope(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "s1", KeyCart, []byte(`[1]`)))
	require.NoError(t, m.Set(ctx, "s2", KeyCart, []byte(`[2]`)))

	v1, err := m.Get(ctx, "s1", KeyCart)
	require.NoError(t, err)
	v2, err := m.Get(ctx, "s2", KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(v1))
	assert.Equal(t, `[2]`, string(v2))
}

func TestMemory_UpdateNilDeletes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "s1", KeyToken, []byte("abc")))

	err := m.Update(ctx, "s1", KeyToken, func(old []byte) ([]byte, error) {
		assert.Equal(t, "abc", string(old))
		return nil, nil
	})
	require.NoError(t, err)

	_, err = m.Get(ctx, "s1", KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateErrorKeepsValue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "s1", KeyToken, []byte("abc")))

	boom := errors.New("boom")
	err := m.Update(ctx, "s1", KeyToken, func([]byte) ([]byte, error) { return []byte("x"), boom })
	assert.ErrorIs(t, err, boom)

	v, err := m.Get(ctx, "s1", KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestMemory_ConcurrentUpdatesAreSerialized(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := UpdateJSON(ctx, m, "s1", "counter", func(n *int) error {
				*n++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int
	ok, err := LoadJSON(ctx, m, "s1", "counter", &n)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 50, n)
}

func TestMemory_Subscribe(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := m.Subscribe(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, m.Set(context.Background(), "s1", KeyCart, []byte(`[]`)))
	require.NoError(t, m.Set(context.Background(), "other", KeyCart, []byte(`[]`)))
	require.NoError(t, m.Delete(context.Background(), "s1", KeyCart))

	select {
	case c := <-changes:
		assert.Equal(t, Change{Scope: "s1", Key: KeyCart}, c)
	case <-time.After(time.Second):
		t.Fatal("no change received")
	}
	select {
	case c := <-changes:
		assert.Equal(t, Change{Scope: "s1", Key: KeyCart, Deleted: true}, c)
	case <-time.After(time.Second):
		t.Fatal("no delete received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-changes
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestLoadJSON_MalformedIsEmpty(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "s1", KeyWishlist, []byte(`{not json`)))

	var ids []int64
	ok, err := LoadJSON(ctx, m, "s1", KeyWishlist, &ids)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, ids)
}
