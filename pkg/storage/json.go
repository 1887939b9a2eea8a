package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
)

// LoadJSON decodes the value at key into dst. Missing keys leave dst untouched and
// return false. Malformed values are logged and also treated as missing.
func LoadJSON(ctx context.Context, s Store, scope, key string, dst interface{}) (bool, error) {
	raw, err := s.Get(ctx, scope, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("Warning: discarding malformed %s state for session %s: %v", key, scope, err)
		return false, nil
	}
	return true, nil
}

// UpdateJSON runs a typed read-modify-write. fn receives the decoded value (the zero
// value when missing or malformed) and mutates it in place.
func UpdateJSON[T any](ctx context.Context, s Store, scope, key string, fn func(v *T) error) (T, error) {
	var result T
	err := s.Update(ctx, scope, key, func(old []byte) ([]byte, error) {
		var v T
		if old != nil {
			if err := json.Unmarshal(old, &v); err != nil {
				log.Printf("Warning: discarding malformed %s state for session %s: %v", key, scope, err)
				var zero T
				v = zero
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		result = v
		return encoded, nil
	})
	return result, err
}
