package storage

import (
	"context"
	"sync"
)

type entryKey struct {
	scope string
	key   string
}

// Memory is a process-local Store
type Memory struct {
	mu          sync.Mutex
	values      map[entryKey][]byte
	subscribers map[string]map[chan Change]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		values:      make(map[entryKey][]byte),
		subscribers: make(map[string]map[chan Change]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, scope, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[entryKey{scope, key}]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (m *Memory) Set(_ context.Context, scope, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.write(scope, key, value)
	return nil
}

func (m *Memory) Update(_ context.Context, scope, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.values[entryKey{scope, key}]
	next, err := fn(clone(old))
	if err != nil {
		return err
	}
	m.write(scope, key, next)
	return nil
}

func (m *Memory) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.write(scope, key, nil)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, scope string) (<-chan Change, error) {
	ch := make(chan Change, 16)

	m.mu.Lock()
	if m.subscribers[scope] == nil {
		m.subscribers[scope] = make(map[chan Change]struct{})
	}
	m.subscribers[scope][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subscribers[scope], ch)
		if len(m.subscribers[scope]) == 0 {
			delete(m.subscribers, scope)
		}
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// write must be called with m.mu held
func (m *Memory) write(scope, key string, value []byte) {
	k := entryKey{scope, key}
	change := Change{Scope: scope, Key: key}
	if value == nil {
		if _, ok := m.values[k]; !ok {
			return
		}
		delete(m.values, k)
		change.Deleted = true
	} else {
		m.values[k] = clone(value)
	}

	for ch := range m.subscribers[scope] {
		select {
		case ch <- change:
		default:
			// slow subscriber, drop rather than block writers
		}
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
