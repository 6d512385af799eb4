package valuemodel

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// parseJSON builds an order-preserving Value tree from JSON bytes. Plain
// encoding/json decodes objects into Go maps, which are unordered; gjson's
// Result.ForEach walks object and array members in document order, which is
// what lets this preserve the insertion order the spec requires.
func parseJSON(data []byte) (*Value, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return NewNull(), nil
	}
	if !gjson.Valid(trimmed) {
		return nil, &ParseError{Message: "invalid JSON"}
	}
	res := gjson.Parse(trimmed)
	return gjsonToValue(res), nil
}

func gjsonToValue(r gjson.Result) *Value {
	switch r.Type {
	case gjson.Null:
		return NewNull()
	case gjson.False:
		return NewBool(false)
	case gjson.True:
		return NewBool(true)
	case gjson.String:
		return NewString(r.Str)
	case gjson.Number:
		raw := r.Raw
		if !strings.ContainsAny(raw, ".eE") {
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return NewInt(i)
			}
		}
		return NewFloat(r.Num)
	case gjson.JSON:
		if r.IsArray() {
			seq := NewSequence()
			r.ForEach(func(_, value gjson.Result) bool {
				seq.SeqVal = append(seq.SeqVal, gjsonToValue(value))
				return true
			})
			return seq
		}
		m := NewMapping()
		r.ForEach(func(key, value gjson.Result) bool {
			m.MapVal.Set(key.Str, gjsonToValue(value))
			return true
		})
		return m
	default:
		return NewNull()
	}
}

// emitJSON serializes a Value back into deterministic, indented JSON using
// sjson (builds the document key-by-key, preserving the order we walk the
// tree in) and pretty (stable two-space indentation on the way out).
func emitJSON(v *Value) ([]byte, error) {
	doc, err := valueToJSONString(v)
	if err != nil {
		return nil, err
	}
	return pretty.PrettyOptions([]byte(doc), &pretty.Options{Indent: "  ", SortKeys: false}), nil
}

func valueToJSONString(v *Value) (string, error) {
	switch v.Kind {
	case Null:
		return "null", nil
	case Bool:
		if v.BoolVal {
			return "true", nil
		}
		return "false", nil
	case Integer:
		return strconv.FormatInt(v.IntVal, 10), nil
	case Float:
		return strconv.FormatFloat(v.FloatVal, 'g', -1, 64), nil
	case String:
		out, err := sjson.Set("", "x", v.StrVal)
		if err != nil {
			return "", err
		}
		return gjson.Get(out, "x").Raw, nil
	case Sequence:
		doc := "[]"
		var err error
		for i, e := range v.SeqVal {
			sub, serr := valueToJSONString(e)
			if serr != nil {
				return "", serr
			}
			doc, err = sjson.SetRaw(doc, strconv.Itoa(i), sub)
			if err != nil {
				return "", err
			}
		}
		return doc, nil
	case Mapping:
		doc := "{}"
		var err error
		for _, k := range v.MapVal.Keys() {
			val, _ := v.MapVal.Get(k)
			sub, serr := valueToJSONString(val)
			if serr != nil {
				return "", serr
			}
			doc, err = sjsonSetRawByKey(doc, k, sub)
			if err != nil {
				return "", err
			}
		}
		return doc, nil
	default:
		return "null", nil
	}
}

// sjsonSetRawByKey sets doc[key] = raw. sjson appends a new object key at
// the end, so keys keep the order in which the Mapping is walked.
func sjsonSetRawByKey(doc, key, raw string) (string, error) {
	path := sjsonEscapePath(key)
	return sjson.SetRawOptions(doc, path, raw, &sjson.Options{Optimistic: true, ReplaceInPlace: true})
}

func sjsonEscapePath(key string) string {
	r := strings.NewReplacer(".", "\\.", "*", "\\*", "?", "\\?")
	return r.Replace(key)
}
