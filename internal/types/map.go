package types

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is a string-keyed map that remembers insertion order. A nil *Map reads
// as empty.
type Map struct {
	om *orderedmap.OrderedMap[string, Value]
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{om: orderedmap.New[string, Value]()}
}

// Set stores v under key, keeping the original position of an existing key.
func (m *Map) Set(key string, v Value) *Map {
	if m.om == nil {
		m.om = orderedmap.New[string, Value]()
	}
	m.om.Set(key, v)
	return m
}

// SetString is shorthand for Set(key, String(s)).
func (m *Map) SetString(key, s string) *Map { return m.Set(key, String(s)) }

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.om == nil {
		return Null(), false
	}
	return m.om.Get(key)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil || m.om == nil {
		return false
	}
	_, ok := m.om.Delete(key)
	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil || m.om == nil {
		return nil
	}
	keys := make([]string, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil || m.om == nil {
		return 0
	}
	return m.om.Len()
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := NewMap()
	if m.om == nil {
		return out
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value.Clone())
	}
	return out
}

// Text returns the scalar under key rendered as text, or "".
func (m *Map) Text(key string) string {
	v, _ := m.Get(key)
	return v.Text()
}

// Map returns the nested map under key, or nil.
func (m *Map) Map(key string) *Map {
	v, _ := m.Get(key)
	child, _ := v.AsMap()
	return child
}

// List returns the list under key, or nil.
func (m *Map) List(key string) []Value {
	v, _ := m.Get(key)
	list, _ := v.AsList()
	return list
}

// Records returns the maps held in the list under key, skipping other values.
func (m *Map) Records(key string) []*Map {
	var out []*Map
	for _, v := range m.List(key) {
		if child, ok := v.AsMap(); ok {
			out = append(out, child)
		}
	}
	return out
}

// EnsureMap returns the nested map under key, creating it when absent or not a map.
func (m *Map) EnsureMap(key string) *Map {
	if child := m.Map(key); child != nil {
		return child
	}
	child := NewMap()
	m.Set(key, Object(child))
	return child
}

// Int reads an integer from a number or a numeric string under key.
func (m *Map) Int(key string) (int, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return v.Int()
}

// MarshalJSON encodes the map with keys in insertion order. Values go through
// Value's encoder rather than the ordered map's own, which escapes HTML.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := m.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Map) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	if m.om != nil {
		for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Prev() != nil {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := pair.Value.encode(buf); err != nil {
				return fmt.Errorf("key %q: %w", pair.Key, err)
			}
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (m *Map) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return fmt.Errorf("expected JSON object")
	}
	om := orderedmap.New[string, Value]()
	if err := om.UnmarshalJSON(data); err != nil {
		return err
	}
	m.om = om
	return nil
}

// Int reads an integer from a number or a numeric string. Fractional numbers
// are rejected.
func (v Value) Int() (int, bool) {
	if n, ok := v.AsNumber(); ok {
		return int(n), n == float64(int(n))
	}
	if s, ok := v.AsString(); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	return 0, false
}
