// Package series implements the alignment and aggregation of unevenly
// sampled metric sequences: zero padding, right-aligned summation and
// moving-average smoothing.
package series

// Policy selects which end of a sequence receives padding zeros.
//
// The padding side encodes an assumption about which end of a sequence
// represents "now". Resource samples and RTT measurements are padded at the
// front (every series ends together); transport counters are padded at the
// back (every series starts together).
type Policy int

const (
	// PadFront prepends zeros so that the last samples line up.
	PadFront Policy = iota
	// PadBack appends zeros so that the first samples line up.
	PadBack
)

// String returns a string representation of the padding policy.
func (p Policy) String() string {
	switch p {
	case PadFront:
		return "front"
	case PadBack:
		return "back"
	default:
		return "unknown"
	}
}

// PadLeft returns a copy of s with zeros prepended until it has length n.
// If s is already at least n long the copy is returned unchanged; padding
// never truncates.
func PadLeft(s []float64, n int) []float64 {
	missing := n - len(s)
	if missing <= 0 {
		return clone(s)
	}
	out := make([]float64, n)
	copy(out[missing:], s)
	return out
}

// PadRight returns a copy of s with zeros appended until it has length n.
// If s is already at least n long the copy is returned unchanged.
func PadRight(s []float64, n int) []float64 {
	if n <= len(s) {
		return clone(s)
	}
	out := make([]float64, n)
	copy(out, s)
	return out
}

// Pad dispatches to PadLeft or PadRight according to p.
func Pad(s []float64, n int, p Policy) []float64 {
	if p == PadBack {
		return PadRight(s, n)
	}
	return PadLeft(s, n)
}

// MaxLen returns the length of the longest sequence, or 0 for none.
func MaxLen(seqs ...[]float64) int {
	n := 0
	for _, s := range seqs {
		if len(s) > n {
			n = len(s)
		}
	}
	return n
}

// Align pads every sequence of seqs to the length of the longest one using
// the given policy. The input map is left untouched.
func Align(seqs map[string][]float64, p Policy) map[string][]float64 {
	all := make([][]float64, 0, len(seqs))
	for _, s := range seqs {
		all = append(all, s)
	}
	n := MaxLen(all...)
	out := make(map[string][]float64, len(seqs))
	for name, s := range seqs {
		out[name] = Pad(s, n, p)
	}
	return out
}

func clone(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
