// Package types provides the shared data model for QTI to Learnosity conversion:
// dynamic Learnosity records, per-resource conversion results and their containers.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// Value is a JSON-shaped dynamic value. Learnosity widget records vary by widget
// type, so items, questions and features are modelled as ordered maps of Values
// rather than fixed structs.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    *Map
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer.
func Int(i int) Value { return Number(float64(i)) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List wraps a list of values. A nil list encodes as [].
func List(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindList, list: vs}
}

// Strings wraps a list of strings.
func Strings(ss []string) Value {
	vs := make([]Value, 0, len(ss))
	for _, s := range ss {
		vs = append(vs, String(s))
	}
	return List(vs...)
}

// Object wraps a map. A nil map is null.
func Object(m *Map) Value {
	if m == nil {
		return Null()
	}
	return Value{kind: KindMap, m: m}
}

// Records wraps a list of maps.
func Records(ms []*Map) Value {
	vs := make([]Value, 0, len(ms))
	for _, m := range ms {
		vs = append(vs, Object(m))
	}
	return List(vs...)
}

// FromAny converts plain Go values into a Value. Maps with string keys are
// ordered by key so that output is deterministic.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Map:
		return Object(t)
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(t)
	case int64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []string:
		return Strings(t)
	case []any:
		vs := make([]Value, 0, len(t))
		for _, e := range t {
			vs = append(vs, FromAny(e))
		}
		return List(vs...)
	case map[string][]string:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			m.Set(k, Strings(t[k]))
		}
		return Object(m)
	case map[string]any:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			m.Set(k, FromAny(t[k]))
		}
		return Object(m)
	default:
		return String(fmt.Sprint(t))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns the list held by v.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the map held by v.
func (v Value) AsMap() (*Map, bool) { return v.m, v.kind == KindMap }

// Text renders scalar values as text. Lists, maps and null render as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, e := range v.list {
			out[i] = e.Clone()
		}
		return List(out...)
	case KindMap:
		return Object(v.m.Clone())
	default:
		return v
	}
}

// MarshalJSON encodes v without escaping HTML characters, since question and
// feature content is HTML.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return fmt.Errorf("unsupported number %v", v.n)
		}
		buf.WriteString(strconv.FormatFloat(v.n, 'f', -1, 64))
	case KindString:
		return encodeString(buf, v.s)
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		return v.m.encode(buf)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON decodes any JSON document, preserving object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		m := NewMap()
		if err := m.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		*v = Object(m)
		return nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		list := make([]Value, len(raw))
		for i, elem := range raw {
			if err := list[i].UnmarshalJSON(elem); err != nil {
				return err
			}
		}
		*v = List(list...)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var scalar any
	if err := dec.Decode(&scalar); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing data after JSON value")
	}
	switch t := scalar.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", t, err)
		}
		*v = Number(f)
	case string:
		*v = String(t)
	case bool:
		*v = Bool(t)
	case nil:
		*v = Null()
	default:
		return fmt.Errorf("unexpected JSON value %v", t)
	}
	return nil
}
