// Package nested holds the format-agnostic value produced by tree
// serialization: scalars, lists ([]any) and insertion-ordered maps (*Map).
package nested

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Map is a string-keyed map that remembers insertion order
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty map with room for n keys
func NewMap(n int) *Map {
	return &Map{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// Set stores v under key. Re-setting an existing key keeps its position.
func (m *Map) Set(key string, v any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys
func (m *Map) Len() int {
	return len(m.keys)
}

// Map returns a child map stored under key, or nil
func (m *Map) Map(key string) *Map {
	v, _ := m.values[key].(*Map)
	return v
}

// List returns a child list stored under key, or nil
func (m *Map) List(key string) []any {
	v, _ := m.values[key].([]any)
	return v
}

// MarshalJSON writes the map as a JSON object in insertion order
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshaling %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML returns a mapping node that preserves insertion order
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		var val yaml.Node
		if err := val.Encode(m.values[k]); err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}

// MarshalCBOR writes a definite-length CBOR map in insertion order
func (m *Map) MarshalCBOR() ([]byte, error) {
	var buf bytes.Buffer
	writeCBORHead(&buf, 5, uint64(len(m.keys)))
	for _, k := range m.keys {
		key, err := cbor.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)

		val, err := cbor.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshaling %q: %w", k, err)
		}
		buf.Write(val)
	}
	return buf.Bytes(), nil
}

// writeCBORHead writes the initial byte and argument of a CBOR data item
func writeCBORHead(buf *bytes.Buffer, major byte, n uint64) {
	mt := major << 5
	switch {
	case n < 24:
		buf.WriteByte(mt | byte(n))
	case n <= 0xFF:
		buf.WriteByte(mt | 24)
		buf.WriteByte(byte(n))
	case n <= 0xFFFF:
		buf.WriteByte(mt | 25)
		_ = binary.Write(buf, binary.BigEndian, uint16(n))
	case n <= 0xFFFFFFFF:
		buf.WriteByte(mt | 26)
		_ = binary.Write(buf, binary.BigEndian, uint32(n))
	default:
		buf.WriteByte(mt | 27)
		_ = binary.Write(buf, binary.BigEndian, n)
	}
}

// Equal reports whether a and b hold the same nested value, comparing maps
// including key order.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i, k := range av.keys {
			if bv.keys[i] != k || !Equal(av.values[k], bv.values[k]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		aj, errA := json.Marshal(a)
		bj, errB := json.Marshal(b)
		return errA == nil && errB == nil && bytes.Equal(aj, bj)
	}
}
