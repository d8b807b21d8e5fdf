package models

// CloneMap deep-copies a settings map. Nested maps and slices are copied,
// scalar values are shared.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = CloneValue(v)
	}

	return clone
}

// CloneValue deep-copies the container types that appear in decoded JSON.
func CloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return CloneMap(value)
	case []any:
		if value == nil {
			return value
		}

		clone := make([]any, len(value))
		for i, item := range value {
			clone[i] = CloneValue(item)
		}

		return clone
	case []map[string]any:
		if value == nil {
			return value
		}

		clone := make([]map[string]any, len(value))
		for i, item := range value {
			clone[i] = CloneMap(item)
		}

		return clone
	case []string:
		if value == nil {
			return value
		}

		return append([]string{}, value...)
	default:
		return value
	}
}
