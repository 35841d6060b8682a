/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sets.go
Description: Set and ratio helpers used by the comparator.
*/

package similarity

// Jaccard returns |a∩b| / |a∪b|, or 1 when both sets are empty
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// CountRatio returns min/max of two counts, or 1 when both are zero
func CountRatio(a, b int) float64 {
	if a == b {
		return 1
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi <= 0 {
		return 1
	}
	if lo < 0 {
		lo = 0
	}
	return float64(lo) / float64(hi)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
