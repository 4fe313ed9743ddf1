package pkg

func Filter[T any](items []T, predicate func(T) bool) []T {
	filtered := []T{}
	for _, item := range items {
		if predicate(item) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func MapSlice[T, R any](items []T, f func(T) R) []R {
	mapped := make([]R, 0, len(items))
	for _, item := range items {
		mapped = append(mapped, f(item))
	}
	return mapped
}

// Converts a value suspected to be some kind of number to an int64.
// json decodes every number as float64 and sqlite hands back int64, so both show up.
func NumToInt(num any) int64 {
	switch num := num.(type) {
	case int:
		return int64(num)
	case int64:
		return num
	case float64:
		return int64(num)
	}
	return 0
}

// Converts a value suspected to be some kind of number to a float64.
// The second return value is false for non-numbers.
func NumToFloat(num any) (float64, bool) {
	switch num := num.(type) {
	case float64:
		return num, true
	case float32:
		return float64(num), true
	case int:
		return float64(num), true
	case int64:
		return float64(num), true
	case int32:
		return float64(num), true
	}
	return 0, false
}
