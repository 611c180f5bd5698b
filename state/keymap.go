package state

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyMap is an insertion-ordered map of namespaced key to metadata.
// The JSON document preserves the order keys were first observed in,
// which keeps the Diff report and reconciler passes deterministic
// across save/load cycles.
type KeyMap struct {
	order  []string
	values map[string]KeyMeta
}

// NewKeyMap returns an empty key map.
func NewKeyMap() *KeyMap {
	return &KeyMap{values: make(map[string]KeyMeta)}
}

// Get returns the metadata for key and whether it exists.
func (m *KeyMap) Get(key string) (KeyMeta, bool) {
	meta, ok := m.values[key]
	return meta, ok
}

// Set inserts or replaces metadata. New keys are appended; existing
// keys keep their position.
func (m *KeyMap) Set(key string, meta KeyMeta) {
	if m.values == nil {
		m.values = make(map[string]KeyMeta)
	}
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = meta
}

// Delete removes key and reports whether it was present.
func (m *KeyMap) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Has reports whether key is tracked.
func (m *KeyMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of tracked keys.
func (m *KeyMap) Len() int { return len(m.order) }

// Ordered returns the keys in insertion order.
func (m *KeyMap) Ordered() []string { return m.order }

// MarshalJSON emits the map as a JSON object in insertion order.
func (m *KeyMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, key := range m.order {
		if i > 0 {
			b.WriteByte(',')
		}
		kdata, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		vdata, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		b.Write(kdata)
		b.WriteByte(':')
		b.Write(vdata)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON reads a JSON object preserving member order.
func (m *KeyMap) UnmarshalJSON(data []byte) error {
	m.order = nil
	m.values = make(map[string]KeyMeta)

	dec := json.NewDecoder(strings.NewReader(string(data)))
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object for key map, got %v", t)
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %T", kt)
		}

		var meta KeyMeta
		if err := dec.Decode(&meta); err != nil {
			return fmt.Errorf("decoding metadata for %q: %w", key, err)
		}
		m.Set(key, meta)
	}

	_, err = dec.Token()
	return err
}
