// Package deepmerge implements the two-operand recursive merge of
// valuemodel trees (C2): scalars, sequences and mappings combine under a
// fixed, non-configurable policy, with the literal null deleting the
// corresponding key at the parent.
package deepmerge

import (
	"strconv"

	"github.com/dabstractor/jin/internal/valuemodel"
)

// deleted is a sentinel returned internally to signal "remove this key from
// the parent mapping" without overloading valuemodel.Null, which is also a
// legitimate overlay value at the top level (merge(x, null) = wholesale
// delete of the file, handled by the caller inspecting the top-level kind).
type result struct {
	value   *valuemodel.Value
	deleted bool
}

// Merge implements merge(base, overlay) -> MergeValue per §4.2. A nil base
// is treated as valuemodel.Null for the purposes of the policy table.
func Merge(base, overlay *valuemodel.Value) *valuemodel.Value {
	r := mergeValues(base, overlay)
	if r.deleted {
		return valuemodel.NewNull()
	}
	return r.value
}

// IsTopLevelDelete reports whether overlay is the literal null that, applied
// at the top level of a file, deletes the file entirely.
func IsTopLevelDelete(overlay *valuemodel.Value) bool {
	return overlay != nil && overlay.Kind == valuemodel.Null
}

func mergeValues(base, overlay *valuemodel.Value) result {
	if overlay == nil {
		overlay = valuemodel.NewNull()
	}
	if base == nil {
		base = valuemodel.NewNull()
	}

	if overlay.Kind == valuemodel.Null {
		return result{deleted: true}
	}

	switch base.Kind {
	case valuemodel.Mapping:
		if overlay.Kind == valuemodel.Mapping {
			return result{value: mergeMappings(base, overlay)}
		}
		return result{value: overlay}
	case valuemodel.Sequence:
		if overlay.Kind == valuemodel.Sequence {
			return result{value: mergeSequences(base, overlay)}
		}
		return result{value: overlay}
	default:
		// base is null or a scalar: overlay always wins outright, per the
		// policy table's first two rows.
		return result{value: overlay}
	}
}

// mergeMappings recurses per key: keys present in base keep base's relative
// order, with the overlay's value merged in place (a deletion removes the
// key); keys introduced by overlay are appended in overlay order.
func mergeMappings(base, overlay *valuemodel.Value) *valuemodel.Value {
	out := valuemodel.NewMapping()

	for _, k := range base.MapVal.Keys() {
		bv, _ := base.MapVal.Get(k)
		ov, inOverlay := overlay.MapVal.Get(k)
		if !inOverlay {
			out.MapVal.Set(k, bv)
			continue
		}
		if r := mergeValues(bv, ov); !r.deleted {
			out.MapVal.Set(k, r.value)
		}
	}

	for _, k := range overlay.MapVal.Keys() {
		if _, hasBase := base.MapVal.Get(k); hasBase {
			continue // merged above, at base's position
		}
		ov, _ := overlay.MapVal.Get(k)
		r := mergeValues(valuemodel.NewNull(), ov)
		if r.deleted {
			out.MapVal.Delete(k)
			continue
		}
		out.MapVal.Set(k, r.value)
	}

	return out
}

// mergeSequences applies the keyed-array heuristic when every element on
// both sides is a mapping and a common discriminator exists; otherwise the
// overlay replaces the base sequence wholesale.
func mergeSequences(base, overlay *valuemodel.Value) *valuemodel.Value {
	key := discriminatorKey(base.SeqVal, overlay.SeqVal)
	if key == "" {
		return overlay
	}

	baseIdx := indexByKey(base.SeqVal, key)
	out := valuemodel.NewSequence()
	seen := make(map[string]bool, len(overlay.SeqVal))

	for _, el := range overlay.SeqVal {
		id, _ := discriminatorValue(el, key)
		seen[id] = true
		if b, ok := baseIdx[id]; ok {
			out.SeqVal = append(out.SeqVal, mergeValues(b, el).value)
		} else {
			out.SeqVal = append(out.SeqVal, el)
		}
	}
	for _, el := range base.SeqVal {
		id, _ := discriminatorValue(el, key)
		if !seen[id] {
			out.SeqVal = append(out.SeqVal, el)
		}
	}
	return out
}

// discriminatorKey probes "id" then "name"; it only applies when every
// element on both sides is a mapping and at least one side is non-empty.
func discriminatorKey(base, overlay []*valuemodel.Value) string {
	all := make([]*valuemodel.Value, 0, len(base)+len(overlay))
	all = append(all, base...)
	all = append(all, overlay...)
	if len(all) == 0 {
		return ""
	}
	for _, e := range all {
		if e.Kind != valuemodel.Mapping {
			return ""
		}
	}
	for _, candidate := range []string{"id", "name"} {
		present := true
		for _, e := range all {
			if _, ok := e.MapVal.Get(candidate); !ok {
				present = false
				break
			}
		}
		if present {
			return candidate
		}
	}
	return ""
}

func discriminatorValue(el *valuemodel.Value, key string) (string, bool) {
	v, ok := el.MapVal.Get(key)
	if !ok {
		return "", false
	}
	switch v.Kind {
	case valuemodel.String:
		return v.StrVal, true
	case valuemodel.Integer:
		return strconv.FormatInt(v.IntVal, 10), true
	default:
		return "", false
	}
}

func indexByKey(elems []*valuemodel.Value, key string) map[string]*valuemodel.Value {
	out := make(map[string]*valuemodel.Value, len(elems))
	for _, e := range elems {
		if id, ok := discriminatorValue(e, key); ok {
			out[id] = e
		}
	}
	return out
}
