package kura

// growSlice extends s to at least n elements, filling the new tail with fill.
// Capacity doubles so repeated growth stays amortised O(1).
func growSlice[T any](s []T, n int, fill T) []T {
	if n <= len(s) {
		return s
	}
	if cap(s) < n {
		ns := make([]T, len(s), max(2*cap(s), n))
		copy(ns, s)
		s = ns
	}
	old := len(s)
	s = s[:n]
	for i := old; i < n; i++ {
		s[i] = fill
	}
	return s
}
