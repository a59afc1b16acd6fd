package phy

// Step moves delta rungs along ladder from cur. It returns cur and false when
// cur is not on the ladder or the move would leave either end.
func Step[T comparable](ladder []T, cur T, delta int) (T, bool) {
	for i, v := range ladder {
		if v != cur {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(ladder) {
			return cur, false
		}
		return ladder[j], true
	}
	return cur, false
}
