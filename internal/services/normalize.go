package services

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// ToStringList normalizes a decoded JSON value into a string list. Fields the
// model sometimes returns as a bare string (preconditions, steps, expected
// results, test types) are wrapped into a one-element list; this
// normalization is mandatory for everything that gets materialized.
func ToStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			out = append(out, fmt.Sprint(x))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// DecodeStringList decodes a JSON text column into a string list. Decode
// failures fall back to an empty list, never an error; a bare JSON string is
// wrapped like ToStringList does.
func DecodeStringList(js datatypes.JSON) []string {
	if len(js) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(js, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(js, &single); err == nil && single != "" {
		return []string{single}
	}
	return []string{}
}

// MustJSON marshals v, returning "null" bytes only if v is unmarshalable.
func MustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(b)
}

func stringFromAny(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
