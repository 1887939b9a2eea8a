// Package browser drives the price-filtered, paginated product listing of one
// category for one shopper.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/datx24/storefront/pkg/models"
)

// MinGap is the smallest distance kept between the two price handles
const MinGap int64 = 10000

type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateFailed        State = "failed"
)

var ErrNotReady = errors.New("price range not loaded")

// Catalog is the part of the backend the browser reads from
type Catalog interface {
	PriceRange(ctx context.Context, slug string) (*models.PriceRange, error)
	CategoryProducts(ctx context.Context, q models.CategoryProductsQuery) (*models.CategoryProducts, error)
}

// Window holds the three pairs of price bounds. Pending bounds follow the slider,
// selected bounds are the ones the listing is filtered by.
type Window struct {
	AbsoluteMin int64 `json:"absolute_min"`
	AbsoluteMax int64 `json:"absolute_max"`
	SelectedMin int64 `json:"selected_min"`
	SelectedMax int64 `json:"selected_max"`
	PendingMin  int64 `json:"pending_min"`
	PendingMax  int64 `json:"pending_max"`
}

// View is a consistent snapshot of the browser for rendering
type View struct {
	Slug       string            `json:"slug"`
	State      State             `json:"state"`
	Window     Window            `json:"window"`
	Page       int               `json:"page"`
	Pagination models.Pagination `json:"pagination"`
	Category   models.Category   `json:"category"`
	Products   []models.Product  `json:"products"`
	Loading    bool              `json:"loading"`
	Empty      bool              `json:"empty"`
	Error      string            `json:"error,omitempty"`
}

type fetchKey struct {
	slug     string
	page     int
	min, max int64
}

type Browser struct {
	catalog Catalog
	slug    string
	minGap  int64

	mu         sync.Mutex
	state      State
	window     Window
	page       int
	pagination models.Pagination
	category   models.Category
	products   []models.Product
	loading    bool
	lastErr    string
	issued     uint64
	lastKey    *fetchKey
	lastUsed   time.Time
}

type Option func(*Browser)

// WithMinGap overrides MinGap
func WithMinGap(gap int64) Option {
	return func(b *Browser) {
		if gap >= 0 {
			b.minGap = gap
		}
	}
}

func New(catalog Catalog, slug string, opts ...Option) *Browser {
	b := &Browser{
		catalog:  catalog,
		slug:     slug,
		minGap:   MinGap,
		state:    StateUninitialized,
		page:     1,
		lastUsed: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Browser) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Init loads the category's price range and the first page of products. A failed
// price range fetch is terminal for this browser.
func (b *Browser) Init(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateUninitialized {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	pr, err := b.catalog.PriceRange(ctx, b.slug)
	if err != nil {
		log.Printf("Error fetching price range for category %s: %v", b.slug, err)
		b.mu.Lock()
		b.state = StateFailed
		b.lastErr = "Failed to load price range"
		b.mu.Unlock()
		return fmt.Errorf("price range for %s: %w", b.slug, err)
	}

	lo, hi := pr.Min.Int64(), pr.Max.Int64()
	if hi < lo {
		lo, hi = hi, lo
	}

	b.mu.Lock()
	b.window = Window{
		AbsoluteMin: lo, AbsoluteMax: hi,
		SelectedMin: lo, SelectedMax: hi,
		PendingMin: lo, PendingMax: hi,
	}
	b.page = 1
	b.state = StateReady
	b.mu.Unlock()

	return b.refresh(ctx)
}

// DragMin moves the pending lower bound, never past pending max minus the gap
func (b *Browser) DragMin(value int64) (Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateReady {
		return b.window, ErrNotReady
	}
	b.touch()

	w := &b.window
	hi := w.PendingMax - b.minGap
	if hi < w.AbsoluteMin {
		hi = w.AbsoluteMin
	}
	w.PendingMin = clamp(value, w.AbsoluteMin, hi)
	return *w, nil
}

// DragMax moves the pending upper bound, never below pending min plus the gap
func (b *Browser) DragMax(value int64) (Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateReady {
		return b.window, ErrNotReady
	}
	b.touch()

	w := &b.window
	lo := w.PendingMin + b.minGap
	if lo > w.AbsoluteMax {
		lo = w.AbsoluteMax
	}
	w.PendingMax = clamp(value, lo, w.AbsoluteMax)
	return *w, nil
}

// Reset puts the handles back to the full range without touching the listing
func (b *Browser) Reset() (Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateReady {
		return b.window, ErrNotReady
	}
	b.touch()

	b.window.PendingMin = b.window.AbsoluteMin
	b.window.PendingMax = b.window.AbsoluteMax
	return b.window, nil
}

// Apply filters the listing by the pending bounds starting from page 1
func (b *Browser) Apply(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateReady {
		b.mu.Unlock()
		return ErrNotReady
	}
	b.touch()
	b.window.SelectedMin = b.window.PendingMin
	b.window.SelectedMax = b.window.PendingMax
	b.page = 1
	b.mu.Unlock()

	return b.refresh(ctx)
}

// GoToPage switches page. It reports false without fetching when page is the
// current one or outside [1, last page].
func (b *Browser) GoToPage(ctx context.Context, page int) (bool, error) {
	b.mu.Lock()
	if b.state != StateReady {
		b.mu.Unlock()
		return false, ErrNotReady
	}
	b.touch()
	if page < 1 || page > b.lastPage() || page == b.page {
		b.mu.Unlock()
		return false, nil
	}
	b.page = page
	b.mu.Unlock()

	return true, b.refresh(ctx)
}

func (b *Browser) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	products := make([]models.Product, len(b.products))
	copy(products, b.products)

	return View{
		Slug:       b.slug,
		State:      b.state,
		Window:     b.window,
		Page:       b.page,
		Pagination: b.pagination,
		Category:   b.category,
		Products:   products,
		Loading:    b.loading,
		Empty:      b.state == StateReady && !b.loading && b.lastErr == "" && len(b.products) == 0,
		Error:      b.lastErr,
	}
}

func (b *Browser) LastUsed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

// refresh fetches the listing for the current key unless that exact key was the
// last one requested. Responses to superseded requests are dropped.
func (b *Browser) refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateReady {
		b.mu.Unlock()
		return ErrNotReady
	}
	key := fetchKey{slug: b.slug, page: b.page, min: b.window.SelectedMin, max: b.window.SelectedMax}
	if b.lastKey != nil && *b.lastKey == key {
		b.mu.Unlock()
		return nil
	}
	b.issued++
	seq := b.issued
	b.lastKey = &key
	b.loading = true
	b.mu.Unlock()

	resp, err := b.catalog.CategoryProducts(ctx, models.CategoryProductsQuery{
		Slug:     key.slug,
		Page:     key.page,
		MinPrice: key.min,
		MaxPrice: key.max,
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq != b.issued {
		log.Printf("Discarding stale listing for %s page %d (request %d, latest %d)", key.slug, key.page, seq, b.issued)
		return nil
	}
	b.loading = false

	if err != nil {
		log.Printf("Error fetching products for category %s: %v", key.slug, err)
		b.products = nil
		b.lastErr = "Failed to load products"
		return fmt.Errorf("products for %s: %w", key.slug, err)
	}

	b.lastErr = ""
	b.category = resp.Category
	b.products = resp.Products
	b.pagination = resp.Pagination
	if b.pagination.LastPage < 1 {
		b.pagination.LastPage = 1
	}
	b.pagination.CurrentPage = b.page
	return nil
}

// lastPage must be called with b.mu held
func (b *Browser) lastPage() int {
	if b.pagination.LastPage < 1 {
		return 1
	}
	return b.pagination.LastPage
}

// touch must be called with b.mu held
func (b *Browser) markUsed() {
	b.mu.Lock()
	b.touch()
	b.mu.Unlock()
}

func (b *Browser) touch() {
	b.lastUsed = time.Now()
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
