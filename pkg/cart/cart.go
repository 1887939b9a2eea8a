// Package cart keeps a shopper's cart lines in session storage.
package cart

import (
	"context"
	"fmt"

	"github.com/datx24/storefront/pkg/models"
	"github.com/datx24/storefront/pkg/storage"
)

type Service struct {
	store       storage.Store
	shippingFee int64
}

func NewService(store storage.Store, shippingFee int64) *Service {
	return &Service{store: store, shippingFee: shippingFee}
}

func (s *Service) ShippingFee() int64 {
	return s.shippingFee
}

// Lines returns the current cart. A missing or unreadable cart is empty.
func (s *Service) Lines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	var lines []models.CartLine
	if _, err := storage.LoadJSON(ctx, s.store, sessionID, storage.KeyCart, &lines); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return sanitize(lines), nil
}

// AddOrIncrement merges delta units of product into the cart, snapshotting name,
// price and image when the line is first created. A line never exceeds
// models.MaxCartQuantity.
func (s *Service) AddOrIncrement(ctx context.Context, sessionID string, product models.Product, delta int) ([]models.CartLine, error) {
	if delta < 1 {
		delta = 1
	}
	delta = min(delta, models.MaxCartQuantity)
	return s.update(ctx, sessionID, func(lines []models.CartLine) []models.CartLine {
		if i := indexOf(lines, product.ID); i >= 0 {
			lines[i].Quantity = min(lines[i].Quantity+delta, models.MaxCartQuantity)
			return lines
		}
		return append(lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price.Int64(),
			Image:     product.Image,
			Quantity:  delta,
		})
	})
}

// SetQuantity overwrites a line's quantity; quantity <= 0 removes the line.
func (s *Service) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) ([]models.CartLine, error) {
	if quantity <= 0 {
		return s.Remove(ctx, sessionID, productID)
	}
	return s.update(ctx, sessionID, func(lines []models.CartLine) []models.CartLine {
		if i := indexOf(lines, productID); i >= 0 {
			lines[i].Quantity = min(quantity, models.MaxCartQuantity)
		}
		return lines
	})
}

func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) ([]models.CartLine, error) {
	return s.update(ctx, sessionID, func(lines []models.CartLine) []models.CartLine {
		if i := indexOf(lines, productID); i >= 0 {
			lines = append(lines[:i], lines[i+1:]...)
		}
		return lines
	})
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID, storage.KeyCart); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Service) Summary(ctx context.Context, sessionID string) (*models.CartSummary, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Summarize(lines), nil
}

func (s *Service) Summarize(lines []models.CartLine) *models.CartSummary {
	if lines == nil {
		lines = []models.CartLine{}
	}
	summary := &models.CartSummary{
		Lines:       lines,
		Subtotal:    Subtotal(lines),
		ShippingFee: s.shippingFee,
	}
	for _, l := range lines {
		summary.ItemCount += l.Quantity
	}
	summary.Total = summary.Subtotal + summary.ShippingFee
	return summary
}

// Total is the order total quoted at checkout
func (s *Service) Total(lines []models.CartLine) int64 {
	return Subtotal(lines) + s.shippingFee
}

// Watch reports every change to the session's cart, e.g. a write from another tab.
func (s *Service) Watch(ctx context.Context, sessionID string) (<-chan storage.Change, error) {
	changes, err := s.store.Subscribe(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(chan storage.Change)
	go func() {
		defer close(out)
		for c := range changes {
			if c.Key != storage.KeyCart {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func Subtotal(lines []models.CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

func (s *Service) update(ctx context.Context, sessionID string, fn func([]models.CartLine) []models.CartLine) ([]models.CartLine, error) {
	lines, err := storage.UpdateJSON(ctx, s.store, sessionID, storage.KeyCart, func(lines *[]models.CartLine) error {
		*lines = sanitize(fn(sanitize(*lines)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return lines, nil
}

// sanitize drops lines that violate the cart invariants (non-positive quantity,
// duplicate product ids) which can only come from hand-edited or legacy state.
// Oversized quantities are capped.
func sanitize(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		l.Quantity = min(l.Quantity, models.MaxCartQuantity)
		out = append(out, l)
	}
	return out
}

func indexOf(lines []models.CartLine, productID int64) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
