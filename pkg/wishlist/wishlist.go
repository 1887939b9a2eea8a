// Package wishlist stores the product ids a shopper has saved for later.
package wishlist

import (
	"context"
	"fmt"

	"github.com/datx24/storefront/pkg/storage"
)

type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

func (s *Service) IDs(ctx context.Context, sessionID string) ([]int64, error) {
	var ids []int64
	if _, err := storage.LoadJSON(ctx, s.store, sessionID, storage.KeyWishlist, &ids); err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	return dedupe(ids), nil
}

func (s *Service) Contains(ctx context.Context, sessionID string, productID int64) (bool, error) {
	ids, err := s.IDs(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return indexOf(ids, productID) >= 0, nil
}

func (s *Service) Add(ctx context.Context, sessionID string, productID int64) ([]int64, error) {
	return s.update(ctx, sessionID, func(ids []int64) []int64 {
		if indexOf(ids, productID) >= 0 {
			return ids
		}
		return append(ids, productID)
	})
}

func (s *Service) Remove(ctx context.Context, sessionID string, productID int64) ([]int64, error) {
	return s.update(ctx, sessionID, func(ids []int64) []int64 {
		if i := indexOf(ids, productID); i >= 0 {
			ids = append(ids[:i], ids[i+1:]...)
		}
		return ids
	})
}

// Toggle adds the product when absent and removes it otherwise. The returned bool
// reports whether the product is saved after the call.
func (s *Service) Toggle(ctx context.Context, sessionID string, productID int64) ([]int64, bool, error) {
	var saved bool
	ids, err := s.update(ctx, sessionID, func(ids []int64) []int64 {
		if i := indexOf(ids, productID); i >= 0 {
			saved = false
			return append(ids[:i], ids[i+1:]...)
		}
		saved = true
		return append(ids, productID)
	})
	return ids, saved, err
}

func (s *Service) update(ctx context.Context, sessionID string, fn func([]int64) []int64) ([]int64, error) {
	ids, err := storage.UpdateJSON(ctx, s.store, sessionID, storage.KeyWishlist, func(ids *[]int64) error {
		*ids = dedupe(fn(dedupe(*ids)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update wishlist: %w", err)
	}
	return ids, nil
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
