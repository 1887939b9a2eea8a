// Package storage is the session-scoped key/value state that used to live in the
// shopper's browser (cart, wishlist, token). Every reader and writer goes through
// Store so that concurrent writers are reconciled in one place.
package storage

import (
	"context"
	"errors"
)

// Keys persisted per session
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
	KeyToken    = "token"
)

var (
	ErrNotFound = errors.New("storage: key not found")
	ErrConflict = errors.New("storage: concurrent update conflict")
)

// UpdateFunc receives the current value (nil when missing) and returns the value to
// store. Returning a nil value deletes the key. Returning an error aborts the update.
type UpdateFunc func(old []byte) ([]byte, error)

// Change is emitted for every successful write in a scope
type Change struct {
	Scope   string `json:"scope"`
	Key     string `json:"key"`
	Deleted bool   `json:"deleted,omitempty"`
}

type Store interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Set(ctx context.Context, scope, key string, value []byte) error
	Update(ctx context.Context, scope, key string, fn UpdateFunc) error
	Delete(ctx context.Context, scope, key string) error
	// Subscribe streams changes for a scope until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, scope string) (<-chan Change, error)
}
