package browser

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultInitTimeout bounds one shared Init, which outlives the request that started it
const DefaultInitTimeout = 10 * time.Second

// Registry keeps one Browser per (session, category) so slider and page state
// survive between requests.
type Registry struct {
	catalog     Catalog
	idleTTL     time.Duration
	initTimeout time.Duration
	opts        []Option

	mu       sync.Mutex
	browsers map[string]*Browser
	sfg      singleflight.Group // one Init per key
}

func NewRegistry(catalog Catalog, idleTTL time.Duration, opts ...Option) *Registry {
	return &Registry{
		catalog:     catalog,
		idleTTL:     idleTTL,
		initTimeout: DefaultInitTimeout,
		opts:        opts,
		browsers:    make(map[string]*Browser),
	}
}

// Get returns the session's browser for slug, initializing it on first use, and
// marks it as used. A browser whose price range failed to load is not kept, so
// the next visit retries.
func (r *Registry) Get(ctx context.Context, sessionID, slug string) (*Browser, error) {
	key := registryKey(sessionID, slug)
	if b := r.lookup(key); b != nil {
		b.markUsed()
		return b, nil
	}

	v, err, _ := r.sfg.Do(key, func() (interface{}, error) {
		if b := r.lookup(key); b != nil {
			return b, nil
		}

		// every waiter on key shares this Init; detach it from the first caller's request
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.initTimeout)
		defer cancel()

		b := New(r.catalog, slug, r.opts...)
		initErr := b.Init(initCtx)
		if b.State() == StateFailed {
			return nil, initErr
		}
		if initErr != nil {
			// listing failed but the price range is there, keep the browser
			log.Printf("Warning: category %s opened without products: %v", slug, initErr)
		}

		r.mu.Lock()
		r.browsers[key] = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Browser), nil
}

// Lookup returns an existing browser without creating one
func (r *Registry) Lookup(sessionID, slug string) (*Browser, bool) {
	b := r.lookup(registryKey(sessionID, slug))
	return b, b != nil
}

// Forget drops the session's browser for slug
func (r *Registry) Forget(sessionID, slug string) {
	r.mu.Lock()
	delete(r.browsers, registryKey(sessionID, slug))
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.browsers)
}

// Sweep evicts browsers idle for longer than the registry TTL
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, b := range r.browsers {
		if now.Sub(b.LastUsed()) > r.idleTTL {
			delete(r.browsers, key)
			evicted++
		}
	}
	return evicted
}

// RunJanitor sweeps every interval until ctx is done
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				log.Printf("Evicted %d idle category browsers", n)
			}
		}
	}
}

func (r *Registry) lookup(key string) *Browser {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.browsers[key]
}

func registryKey(sessionID, slug string) string {
	return sessionID + "|" + slug
}
