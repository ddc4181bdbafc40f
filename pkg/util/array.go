package util

// InSlice determines whether an element is in a slice
// InSlice 判断元素是否在切片中
func InSlice[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Difference returns the elements of a not present in b, keeping a's order
// Difference 返回 a 中不在 b 中的元素（保持 a 的顺序）
func Difference[T comparable](a, b []T) []T {
	skip := make(map[T]struct{}, len(b))
	for _, v := range b {
		skip[v] = struct{}{}
	}
	out := make([]T, 0, len(a))
	for _, v := range a {
		if _, ok := skip[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// Union returns a followed by the elements of b not already in a
// Union 返回 a 与 b 的并集（a 的元素在前）
func Union[T comparable](a, b []T) []T {
	out := append(make([]T, 0, len(a)+len(b)), a...)
	return append(out, Difference(b, a)...)
}
