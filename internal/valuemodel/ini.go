package valuemodel

import (
	"bytes"

	"gopkg.in/ini.v1"
)

// iniSectionKey holds the top-level mapping key a section's keys live under.
// The unnamed/default section is promoted to the empty string per the
// spec's "INI sections become a two-level mapping" rule.
func iniSectionKey(name string) string {
	if name == ini.DefaultSection {
		return ""
	}
	return name
}

// parseINI builds a two-level Value mapping: top level keyed by section
// name (default section under ""), second level keyed by option name, every
// leaf a string (INI has no native scalar typing, so no coercion is done).
func parseINI(data []byte) (*Value, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: false,
		PreserveSurroundedQuote: true,
	}, data)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}

	root := NewMapping()
	for _, section := range cfg.SectionStrings() {
		sec := cfg.Section(section)
		sm := NewMapping()
		for _, key := range sec.KeyStrings() {
			sm.MapVal.Set(key, NewString(sec.Key(key).String()))
		}
		if sm.MapVal.Len() == 0 && section == ini.DefaultSection {
			continue
		}
		root.MapVal.Set(iniSectionKey(section), sm)
	}
	return root, nil
}

// emitINI serializes a two-level Value mapping back into INI text. A value
// at the top level that is not itself a mapping is rejected: INI has no
// representation for a bare top-level scalar or array.
func emitINI(v *Value) ([]byte, error) {
	if v.Kind != Mapping {
		return nil, &ParseError{Message: "INI output requires a top-level mapping"}
	}
	cfg := ini.Empty()
	for _, secName := range v.MapVal.Keys() {
		secVal, _ := v.MapVal.Get(secName)
		if secVal.Kind != Mapping {
			return nil, &ParseError{Message: "INI section " + secName + " must be a mapping"}
		}
		target := secName
		if target == "" {
			target = ini.DefaultSection
		}
		sec, err := cfg.NewSection(target)
		if err != nil {
			return nil, err
		}
		for _, key := range secVal.MapVal.Keys() {
			kv, _ := secVal.MapVal.Get(key)
			if kv.Kind != String {
				return nil, &ParseError{Message: "INI value at " + secName + "." + key + " is not a string"}
			}
			if _, err := sec.NewKey(key, kv.StrVal); err != nil {
				return nil, err
			}
		}
	}
	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
