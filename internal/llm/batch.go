package llm

// IndexedArray parses a batch response expected to be a JSON array whose
// elements each carry a 1-based "index" field correlating them back to
// the prompt's enumeration. It returns the payloads keyed by index (the
// "index" field removed) plus the count of elements whose index was
// missing, non-numeric or outside [1, n] — callers log that count as a
// data-quality signal instead of silently dropping the elements.
func IndexedArray(text string, n int) (byIndex map[int]map[string]any, invalid int, err error) {
	arr, err := ExtractArray(text)
	if err != nil {
		return nil, 0, err
	}

	byIndex = make(map[int]map[string]any, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			invalid++
			continue
		}
		idx, ok := toInt(obj["index"])
		if !ok || idx < 1 || idx > n {
			invalid++
			continue
		}
		delete(obj, "index")
		byIndex[idx] = obj
	}
	return byIndex, invalid, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
