package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	Notifier

	mu     sync.Mutex
	data   map[string]json.RawMessage
	writes int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

// Get returns the stored values for keys; missing keys are absent from the result.
func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

// Set stores all values at once and notifies subscribers of the keys whose value changed.
func (m *Memory) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := Encode(values)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.writes++
	var changes []Change
	for k, v := range encoded {
		old, existed := m.data[k]
		m.data[k] = v
		if existed && bytes.Equal(old, v) {
			continue
		}
		changes = append(changes, Change{Key: k, OldValue: old, NewValue: v})
	}
	m.mu.Unlock()

	m.Publish(changes)
	return nil
}

// Writes reports how many Set calls reached the store.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
