// Package kv defines the key/value store gateway the rest of modrand persists through.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Change describes one key written by a Set call.
// OldValue is nil when the key did not exist before.
type Change struct {
	Key      string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// Store is an asynchronous key to JSON value map. A single Set is atomic
// across its keys; there are no transactions spanning several calls and the
// last write wins.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	Subscribe(fn func([]Change)) (unsubscribe func())
}

// Notifier fans out change batches to subscribers. Store implementations
// embed it and call Publish after a write commits.
type Notifier struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]func([]Change)
}

// Subscribe registers fn and returns a function removing it.
func (n *Notifier) Subscribe(fn func([]Change)) func() {
	id := uuid.New()
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[uuid.UUID]func([]Change))
	}
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Publish delivers changes to every subscriber. It must not be called with
// store locks held since subscribers usually read the store again.
func (n *Notifier) Publish(changes []Change) {
	if len(changes) == 0 {
		return
	}
	n.mu.RLock()
	subs := make([]func([]Change), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(changes)
	}
}

// Encode marshals every value of a Set call.
func Encode(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		if raw, ok := v.(json.RawMessage); ok {
			out[k] = raw
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", k, err)
		}
		out[k] = data
	}
	return out, nil
}

// Keys lists the keys touched by a change batch.
func Keys(changes []Change) map[string]bool {
	keys := make(map[string]bool, len(changes))
	for _, c := range changes {
		keys[c.Key] = true
	}
	return keys
}
