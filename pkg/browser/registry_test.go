package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ReusesBrowser(t *testing.T) {
	cat := newMockCatalog(0, 100000)
	r := NewRegistry(cat, time.Hour)
	ctx := context.Background()

	b1, err := r.Get(ctx, "s1", "phu-kien")
	require.NoError(t, err)
	b2, err := r.Get(ctx, "s1", "phu-kien")
	require.NoError(t, err)
	b3, err := r.Get(ctx, "s2", "phu-kien")
	require.NoError(t, err)

	assert.Same(t, b1, b2)
	assert.NotSame(t, b1, b3)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConcurrentGetInitsOnce(t *testing.T) {
	cat := newMockCatalog(0, 100000)
	r := NewRegistry(cat, time.Hour)

	var wg sync.WaitGroup
	browsers := make([]*Browser, 20)
	for i := range browsers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := r.Get(context.Background(), "s1", "phu-kien")
			assert.NoError(t, err)
			browsers[i] = b
		}(i)
	}
	wg.Wait()

	for _, b := range browsers {
		assert.Same(t, browsers[0], b)
	}
	assert.Equal(t, 1, cat.rangeCalls)
}

func TestRegistry_FailedInitIsNotKept(t *testing.T) {
	cat := newMockCatalog(0, 100000)
	cat.rangeErr = errors.New("down")
	r := NewRegistry(cat, time.Hour)

	_, err := r.Get(context.Background(), "s1", "phu-kien")
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())

	cat.m.Lock()
	cat.rangeErr = nil
	cat.m.Unlock()

	b, err := r.Get(context.Background(), "s1", "phu-kien")
	require.NoError(t, err)
	assert.Equal(t, StateReady, b.State())
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(newMockCatalog(0, 100000), time.Minute)
	_, err := r.Get(context.Background(), "s1", "a")
	require.NoError(t, err)

	assert.Equal(t, 0, r.Sweep(time.Now()))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Minute)))
	_, ok := r.Lookup("s1", "a")
	assert.False(t, ok)
}

func TestRegistry_InitSurvivesFirstCallerCancel(t *testing.T) {
	cat := newMockCatalog(0, 100000)
	gate := make(chan struct{})
	cat.rangeGate = gate
	r := NewRegistry(cat, time.Hour)

	first, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() {
		_, err := r.Get(first, "s1", "phu-kien")
		errs <- err
	}()
	require.Eventually(t, func() bool {
		cat.m.Lock()
		defer cat.m.Unlock()
		return cat.rangeCalls == 1
	}, time.Second, 5*time.Millisecond)

	go func() {
		_, err := r.Get(context.Background(), "s1", "phu-kien")
		errs <- err
	}()
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	assert.NoError(t, <-errs)
	assert.NoError(t, <-errs)
	b, ok := r.Lookup("s1", "phu-kien")
	require.True(t, ok)
	assert.Equal(t, StateReady, b.State())
}

func TestRegistry_GetKeepsBrowserAlive(t *testing.T) {
	r := NewRegistry(newMockCatalog(0, 100000), time.Minute)
	b, err := r.Get(context.Background(), "s1", "a")
	require.NoError(t, err)

	b.mu.Lock()
	b.lastUsed = time.Now().Add(-2 * time.Minute)
	b.mu.Unlock()

	_, err = r.Get(context.Background(), "s1", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Sweep(time.Now()))
	_, ok := r.Lookup("s1", "a")
	assert.True(t, ok)
}
