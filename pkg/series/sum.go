package series

import "sort"

// SumReversed adds a and b aligned at their ends.
//
// Both operands are walked from their last element backwards and added
// pairwise; the shorter operand contributes zero once it runs out. The
// result has the length of the longer operand. Neither input is modified.
//
//	SumReversed([]float64{1, 2, 3}, []float64{10, 20}) // [1 12 23]
func SumReversed(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := 1; i <= n; i++ {
		var x, y float64
		if i <= len(a) {
			x = a[len(a)-i]
		}
		if i <= len(b) {
			y = b[len(b)-i]
		}
		out[n-i] = x + y
	}
	return out
}

// SumAll combines seqs into one right-aligned series.
//
// The sequences are ordered by length, longest first (ties keep their input
// order), and folded with SumReversed. Because the fold is plain addition
// over end-aligned, zero-filled operands, the result does not depend on the
// input order. An empty input yields an empty series and a single member is
// returned as a copy.
func SumAll(seqs [][]float64) []float64 {
	switch len(seqs) {
	case 0:
		return []float64{}
	case 1:
		return clone(seqs[0])
	}

	ordered := make([][]float64, len(seqs))
	copy(ordered, seqs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	result := clone(ordered[0])
	for _, s := range ordered[1:] {
		result = SumReversed(result, s)
	}
	return result
}
