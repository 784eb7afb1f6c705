package planning

import "fmt"

// requireString extracts a non-empty string from args by key.
func requireString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// optionalString extracts a string from args by key, or "".
func optionalString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// optionalBool extracts a bool from args by key, returning fallback if absent.
func optionalBool(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

// optionalFloat64 extracts a float64 from args by key, returning the fallback if not present.
func optionalFloat64(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

// stringList extracts a []string from a JSON array argument. Non-string
// entries are skipped.
func stringList(args map[string]any, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
