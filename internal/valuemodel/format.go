package valuemodel

import (
	"path/filepath"
	"strings"
)

// Format is a recognized structured serialization. FormatText marks a file
// that is never treated as structured, even if content-merge is attempted.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
	FormatTOML
	FormatINI
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	case FormatINI:
		return "ini"
	default:
		return "text"
	}
}

// DetectFormat infers a Format from a file extension. Unknown extensions are
// FormatText, which routes the path to the 3-way text merger instead of the
// structured deep merger.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".ini", ".cfg", ".conf":
		return FormatINI
	default:
		return FormatText
	}
}

// Parse decodes bytes of the given format into a Value tree.
func Parse(data []byte, format Format) (*Value, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	case FormatTOML:
		return parseTOML(data)
	case FormatINI:
		return parseINI(data)
	default:
		return nil, &ParseError{Message: "format " + format.String() + " is not structured"}
	}
}

// Emit serializes a Value tree back into bytes of the given format.
func Emit(v *Value, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return emitJSON(v)
	case FormatYAML:
		return emitYAML(v)
	case FormatTOML:
		return emitTOML(v)
	case FormatINI:
		return emitINI(v)
	default:
		return nil, &ParseError{Message: "format " + format.String() + " is not structured"}
	}
}
