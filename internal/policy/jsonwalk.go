package policy

// TransformJSON walks a decoded JSON value and applies transform to every
// string value whose key is in the global sensitive set, at any depth. The
// result is a new value: object key sets, array order and every non-matching
// value are preserved exactly. Pure function, no side effects on the input.
func TransformJSON(value any, transform func(string) string) any {
	return walk(value, false, transform)
}

func walk(value any, sensitive bool, transform func(string) string) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = walk(child, IsSensitiveKey(key), transform)
		}
		return out
	case []any:
		// A sensitive key holding an array applies to its string elements.
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = walk(child, sensitive, transform)
		}
		return out
	case string:
		if sensitive {
			return transform(v)
		}
		return v
	default:
		// Numbers, booleans, null: never encrypted, passed through.
		return v
	}
}
