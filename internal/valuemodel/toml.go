package valuemodel

import (
	"bytes"
	"time"

	"github.com/BurntSushi/toml"
)

// parseTOML decodes into a generic map first (native Go types; arrays keep
// their order as []interface{}), then walks toml.MetaData.Keys() — the one
// place BurntSushi/toml reports the source's key encounter order — to
// rebuild an order-preserving Value tree. Dotted keys are already expanded
// into nested maps by the decoder itself.
func parseTOML(data []byte) (*Value, error) {
	var raw map[string]interface{}
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	root := NewMapping()
	for _, key := range meta.Keys() {
		parts := key // toml.Key is []string
		insertOrdered(root, parts, raw)
	}
	return root, nil
}

// insertOrdered walks parts into root (creating intermediate mappings as
// needed in meta.Keys() order) and sets the final leaf from the decoded
// native value looked up by the same path in raw.
func insertOrdered(root *Value, parts []string, raw map[string]interface{}) {
	cur := root
	var curRaw interface{} = map[string]interface{}(raw)
	for i, p := range parts {
		m, ok := curRaw.(map[string]interface{})
		if !ok {
			return
		}
		next, ok := m[p]
		if !ok {
			return
		}
		if i == len(parts)-1 {
			existing, has := cur.MapVal.Get(p)
			if has && existing.Kind == Mapping {
				// A table already materialized (as a parent of a later
				// dotted key); don't clobber it with a scalar re-walk.
				return
			}
			cur.MapVal.Set(p, nativeToValue(next))
			return
		}
		child, has := cur.MapVal.Get(p)
		if !has || child.Kind != Mapping {
			child = NewMapping()
			cur.MapVal.Set(p, child)
		}
		cur = child
		curRaw = next
	}
}

func nativeToValue(v interface{}) *Value {
	switch t := v.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(t)
	case int64:
		return NewInt(t)
	case int:
		return NewInt(int64(t))
	case float64:
		return NewFloat(t)
	case string:
		return NewString(t)
	case time.Time:
		return NewString(t.Format(time.RFC3339))
	case []interface{}:
		seq := NewSequence()
		for _, e := range t {
			seq.SeqVal = append(seq.SeqVal, nativeToValue(e))
		}
		return seq
	case map[string]interface{}:
		m := NewMapping()
		for k, val := range t {
			m.MapVal.Set(k, nativeToValue(val))
		}
		return m
	default:
		return NewNull()
	}
}

// emitTOML serializes a Value into TOML text. BurntSushi/toml's encoder
// takes a native Go value, so the Value tree is converted to maps/slices
// and encoded directly. Key insertion order is not kept: the encoder writes
// each table's keys in sorted order.
func emitTOML(v *Value) ([]byte, error) {
	native := valueToNative(v)
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(native); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func valueToNative(v *Value) interface{} {
	switch v.Kind {
	case Null:
		return nil
	case Bool:
		return v.BoolVal
	case Integer:
		return v.IntVal
	case Float:
		return v.FloatVal
	case String:
		return v.StrVal
	case Sequence:
		out := make([]interface{}, 0, len(v.SeqVal))
		for _, e := range v.SeqVal {
			out = append(out, valueToNative(e))
		}
		return out
	case Mapping:
		out := make(map[string]interface{}, v.MapVal.Len())
		for _, k := range v.MapVal.Keys() {
			val, _ := v.MapVal.Get(k)
			out[k] = valueToNative(val)
		}
		return out
	default:
		return nil
	}
}
