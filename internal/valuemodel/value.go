// Package valuemodel implements Jin's common tagged-value tree (MergeValue
// in the design) and the parsers/emitters that translate JSON, YAML, TOML
// and INI into it and back, preserving key insertion order except in TOML
// output, whose keys the TOML encoder writes in sorted order.
package valuemodel

import "fmt"

// Kind tags the seven closed variants a Value may hold.
type Kind int

const (
	Null Kind = iota
	Bool
	Integer
	Float
	String
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is the tagged tree node. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	BoolVal  bool
	IntVal   int64
	FloatVal float64
	StrVal   string
	SeqVal   []*Value
	MapVal   *OrderedMap
}

func NewNull() *Value              { return &Value{Kind: Null} }
func NewBool(b bool) *Value        { return &Value{Kind: Bool, BoolVal: b} }
func NewInt(i int64) *Value        { return &Value{Kind: Integer, IntVal: i} }
func NewFloat(f float64) *Value    { return &Value{Kind: Float, FloatVal: f} }
func NewString(s string) *Value    { return &Value{Kind: String, StrVal: s} }
func NewSequence() *Value          { return &Value{Kind: Sequence} }
func NewMapping() *Value           { return &Value{Kind: Mapping, MapVal: NewOrderedMap()} }

// IsScalar reports whether v is bool/integer/float/string.
func (v *Value) IsScalar() bool {
	switch v.Kind {
	case Bool, Integer, Float, String:
		return true
	default:
		return false
	}
}

// Equal performs a structural equality check. Sequences are compared
// element by element in order; mappings are compared by key set and values,
// and their key order is not compared.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Null:
		return true
	case Bool:
		return v.BoolVal == other.BoolVal
	case Integer:
		return v.IntVal == other.IntVal
	case Float:
		return v.FloatVal == other.FloatVal
	case String:
		return v.StrVal == other.StrVal
	case Sequence:
		if len(v.SeqVal) != len(other.SeqVal) {
			return false
		}
		for i := range v.SeqVal {
			if !v.SeqVal[i].Equal(other.SeqVal[i]) {
				return false
			}
		}
		return true
	case Mapping:
		if v.MapVal.Len() != other.MapVal.Len() {
			return false
		}
		for _, k := range v.MapVal.Keys() {
			a, _ := v.MapVal.Get(k)
			b, ok := other.MapVal.Get(k)
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone deep-copies v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case Sequence:
		n := NewSequence()
		for _, e := range v.SeqVal {
			n.SeqVal = append(n.SeqVal, e.Clone())
		}
		return n
	case Mapping:
		n := NewMapping()
		for _, k := range v.MapVal.Keys() {
			val, _ := v.MapVal.Get(k)
			n.MapVal.Set(k, val.Clone())
		}
		return n
	default:
		c := *v
		return &c
	}
}

// OrderedMap is a string-keyed map that preserves insertion order.
type OrderedMap struct {
	keys []string
	vals map[string]*Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{vals: make(map[string]*Value)}
}

func (m *OrderedMap) Get(key string) (*Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Set inserts key at the end of iteration order if new, or overwrites the
// value in place (preserving position) if key already exists.
func (m *OrderedMap) Set(key string, v *Value) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Delete removes key, preserving the relative order of the remainder.
func (m *OrderedMap) Delete(key string) {
	if _, exists := m.vals[key]; !exists {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *OrderedMap) Keys() []string { return m.keys }
func (m *OrderedMap) Len() int       { return len(m.keys) }

// ParseError reports a structured-file decode failure with position info.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}
