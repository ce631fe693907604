package services

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func yamlUnmarshal(doc []byte, v any) error {
	return yaml.Unmarshal(doc, v)
}

// normalizeYAML rewrites non-string map keys so the value can be encoded as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeYAML(t[i])
		}
		return t
	default:
		return v
	}
}
