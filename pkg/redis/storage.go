package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redisclient "github.com/redis/go-redis/v9"

	"github.com/datx24/storefront/pkg/storage"
)

const maxUpdateAttempts = 10

// Storage keeps session state in Redis strings: session:{scope}:{key}. Every write
// is announced on the session-events:{scope} channel.
type Storage struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewStorage(client *redisclient.Client, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl}
}

func (s *Storage) Ping(ctx context.Context) error {
	return pingContext(ctx, s.client)
}

func (s *Storage) Get(ctx context.Context, scope, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, sessionKey(scope, key)).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, scope, key string, value []byte) error {
	if value == nil {
		return s.Delete(ctx, scope, key)
	}
	if err := s.client.Set(ctx, sessionKey(scope, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	s.publish(ctx, storage.Change{Scope: scope, Key: key})
	return nil
}

func (s *Storage) Delete(ctx context.Context, scope, key string) error {
	n, err := s.client.Del(ctx, sessionKey(scope, key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	if n > 0 {
		s.publish(ctx, storage.Change{Scope: scope, Key: key, Deleted: true})
	}
	return nil
}

// Update is an optimistic WATCH/MULTI transaction, retried while another writer
// touches the key between the read and the write.
func (s *Storage) Update(ctx context.Context, scope, key string, fn storage.UpdateFunc) error {
	k := sessionKey(scope, key)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var change storage.Change
		err := s.client.Watch(ctx, func(tx *redisclient.Tx) error {
			old, err := tx.Get(ctx, k).Bytes()
			if errors.Is(err, redisclient.Nil) {
				old = nil
			} else if err != nil {
				return fmt.Errorf("redis get failed: %w", err)
			}

			next, err := fn(old)
			if err != nil {
				return err
			}

			change = storage.Change{Scope: scope, Key: key, Deleted: next == nil}
			_, err = tx.TxPipelined(ctx, func(pipe redisclient.Pipeliner) error {
				if next == nil {
					pipe.Del(ctx, k)
				} else {
					pipe.Set(ctx, k, next, s.ttl)
				}
				return nil
			})
			return err
		}, k)

		if err == nil {
			s.publish(ctx, change)
			return nil
		}
		if !errors.Is(err, redisclient.TxFailedErr) {
			return err
		}
	}

	return storage.ErrConflict
}

func (s *Storage) Subscribe(ctx context.Context, scope string) (<-chan storage.Change, error) {
	pubsub := s.client.Subscribe(ctx, eventsChannel(scope))
	// wait for the subscription to be confirmed so no write is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan storage.Change, 16)
	messages := pubsub.Channel()
	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change storage.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.Printf("Warning: ignoring malformed session event: %v", err)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Storage) publish(ctx context.Context, change storage.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, eventsChannel(change.Scope), payload).Err(); err != nil {
		// subscribers miss one event, the write itself succeeded
		log.Printf("Warning: Failed to publish session event: %v", err)
	}
}

func sessionKey(scope, key string) string {
	return fmt.Sprintf("session:%s:%s", scope, key)
}

func eventsChannel(scope string) string {
	return fmt.Sprintf("session-events:%s", scope)
}
