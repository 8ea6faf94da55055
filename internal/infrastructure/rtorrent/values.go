package rtorrent

import (
	"strconv"
	"strings"
)

// rTorrent answers most numeric commands with i8 but some builds send
// strings or booleans; these helpers absorb the difference.

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}

func asBool(v any) bool {
	return asInt64(v) == 1
}

// rows interprets a multicall result as a list of column slices. Entries
// that are not slices are dropped.
func rows(v any) ([][]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([][]any, 0, len(list))
	for _, item := range list {
		if cols, ok := item.([]any); ok {
			out = append(out, cols)
		}
	}
	return out, true
}
