package output

import "fmt"

// NormalizeJSONValue converts decoded CBOR into values encoding/json accepts:
// maps with non-string keys get their keys formatted, nested values are
// converted recursively and byte strings are summarised by length.
func NormalizeJSONValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = NormalizeJSONValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeJSONValue(item)
		}
		return out
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(val))
	default:
		return v
	}
}
