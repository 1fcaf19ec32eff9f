package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

// Values is the decoded-on-demand result of a Get call.
type Values map[string]json.RawMessage

// Read fetches keys from the store.
func Read(ctx context.Context, s Store, keys ...string) (Values, error) {
	raw, err := s.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("reading %v: %w", keys, err)
	}
	return Values(raw), nil
}

// Has reports whether key was present and not JSON null.
func (v Values) Has(key string) bool {
	raw, ok := v[key]
	return ok && string(raw) != "null"
}

// Decode unmarshals key into dst. It returns false, leaving dst untouched,
// when the key is absent or null.
func (v Values) Decode(key string, dst any) (bool, error) {
	if !v.Has(key) {
		return false, nil
	}
	if err := json.Unmarshal(v[key], dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// String decodes a string key, returning "" when absent.
func (v Values) String(key string) (string, error) {
	var s string
	_, err := v.Decode(key, &s)
	return s, err
}

// Bool decodes a boolean key, returning def when absent.
func (v Values) Bool(key string, def bool) (bool, error) {
	b := def
	_, err := v.Decode(key, &b)
	return b, err
}
