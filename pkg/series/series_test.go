package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Padding Tests
// =============================================================================

func TestPadLeft_PrependsZeros(t *testing.T) {
	got := PadLeft([]float64{1, 2}, 5)
	assert.Equal(t, []float64{0, 0, 0, 1, 2}, got)
}

func TestPadRight_AppendsZeros(t *testing.T) {
	got := PadRight([]float64{1, 2}, 5)
	assert.Equal(t, []float64{1, 2, 0, 0, 0}, got)
}

func TestPad_NeverTruncates(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, s, PadLeft(s, 2))
	assert.Equal(t, s, PadRight(s, 2))
	assert.Equal(t, s, PadLeft(s, -1))
}

func TestPad_LengthProperty(t *testing.T) {
	inputs := [][]float64{nil, {}, {7}, {1, 2, 3}, {4, 5, 6, 7, 8, 9}}
	for _, s := range inputs {
		for n := 0; n <= 8; n++ {
			want := n
			if len(s) > want {
				want = len(s)
			}
			assert.Len(t, PadLeft(s, n), want, "PadLeft(%v, %d)", s, n)
			assert.Len(t, PadRight(s, n), want, "PadRight(%v, %d)", s, n)
		}
	}
}

func TestPad_PreservesValuesAtAlignedEnd(t *testing.T) {
	s := []float64{3, 1, 4, 1, 5}
	for n := 0; n <= 9; n++ {
		left := PadLeft(s, n)
		right := PadRight(s, n)
		assert.Equal(t, s, left[len(left)-len(s):], "left pad n=%d", n)
		assert.Equal(t, s, right[:len(s)], "right pad n=%d", n)
	}
}

func TestPad_DoesNotMutateInput(t *testing.T) {
	s := []float64{1, 2, 3}
	out := PadLeft(s, 3)
	out[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, s)

	out = PadRight(s, 4)
	out[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, s)
}

func TestPad_Deterministic(t *testing.T) {
	s := []float64{1.5, 2.5}
	assert.Equal(t, PadLeft(s, 4), PadLeft(s, 4))
	assert.Equal(t, PadRight(s, 4), PadRight(s, 4))
}

func TestPad_DispatchesOnPolicy(t *testing.T) {
	s := []float64{1}
	assert.Equal(t, []float64{0, 1}, Pad(s, 2, PadFront))
	assert.Equal(t, []float64{1, 0}, Pad(s, 2, PadBack))
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "front", PadFront.String())
	assert.Equal(t, "back", PadBack.String())
	assert.Equal(t, "unknown", Policy(42).String())
}

func TestMaxLen(t *testing.T) {
	assert.Equal(t, 0, MaxLen())
	assert.Equal(t, 3, MaxLen([]float64{1}, []float64{1, 2, 3}, nil))
}

func TestAlign_FrontAndBackAreDistinct(t *testing.T) {
	in := map[string][]float64{
		"a": {1, 2, 3},
		"b": {9},
	}

	front := Align(in, PadFront)
	assert.Equal(t, []float64{1, 2, 3}, front["a"])
	assert.Equal(t, []float64{0, 0, 9}, front["b"])

	back := Align(in, PadBack)
	assert.Equal(t, []float64{1, 2, 3}, back["a"])
	assert.Equal(t, []float64{9, 0, 0}, back["b"])

	assert.Equal(t, []float64{9}, in["b"], "input must not be modified")
}

// =============================================================================
// Right-Aligned Summation Tests
// =============================================================================

func TestSumReversed_Example(t *testing.T) {
	got := SumReversed([]float64{1, 2, 3}, []float64{10, 20})
	assert.Equal(t, []float64{1, 12, 23}, got)
}

func TestSumReversed_DoesNotMutate(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{10, 20}
	SumReversed(a, b)
	assert.Equal(t, []float64{1, 2, 3}, a)
	assert.Equal(t, []float64{10, 20}, b)
}

func TestSumReversed_EmptyOperands(t *testing.T) {
	assert.Equal(t, []float64{}, SumReversed(nil, nil))
	assert.Equal(t, []float64{4, 5}, SumReversed(nil, []float64{4, 5}))
}

func TestSumAll_Empty(t *testing.T) {
	assert.Equal(t, []float64{}, SumAll(nil))
}

func TestSumAll_SingleMemberUnchanged(t *testing.T) {
	in := []float64{1, 2, 3}
	got := SumAll([][]float64{in})
	assert.Equal(t, in, got)

	got[0] = 42
	assert.Equal(t, 1.0, in[0], "single member must be copied")
}

func TestSumAll_Commutative(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{10, 20}
	assert.Equal(t, SumAll([][]float64{a, b}), SumAll([][]float64{b, a}))
}

func TestSumAll_Associative(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{10, 20}
	c := []float64{100, 200, 300}

	whole := SumAll([][]float64{a, b, c})
	nested := SumAll([][]float64{SumAll([][]float64{a, b}), c})
	assert.Equal(t, whole, nested)
	assert.Equal(t, []float64{1, 102, 213, 324}, whole)
}

func TestSumAll_InputOrderIrrelevant(t *testing.T) {
	seqs := [][]float64{{1}, {2, 2}, {3, 3, 3}, {4, 4}}
	want := []float64{3, 9, 10}
	assert.Equal(t, want, SumAll(seqs))
	assert.Equal(t, want, SumAll([][]float64{seqs[3], seqs[1], seqs[0], seqs[2]}))
}

func TestSumAll_DoesNotReorderCaller(t *testing.T) {
	seqs := [][]float64{{1}, {2, 2}}
	SumAll(seqs)
	assert.Equal(t, []float64{1}, seqs[0])
}

// =============================================================================
// Moving Average Tests
// =============================================================================

func TestMovingAverage_Constant(t *testing.T) {
	in := []float64{2, 2, 2, 2, 2, 2, 2, 2}
	assert.Equal(t, []float64{2, 2, 2, 2}, MovingAverage(in, SmoothingWindow))
}

func TestMovingAverage_Ramp(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5, 6, 7}
	assert.Equal(t, []float64{3, 4, 5}, MovingAverage(in, SmoothingWindow))
}

func TestMovingAverage_ShortInput(t *testing.T) {
	assert.Empty(t, MovingAverage([]float64{1, 2, 3, 4}, SmoothingWindow))
	assert.Empty(t, MovingAverage(nil, SmoothingWindow))
	assert.Equal(t, []float64{3}, MovingAverage([]float64{1, 2, 3, 4, 5}, SmoothingWindow))
}

func TestMovingAverage_Length(t *testing.T) {
	for l := 0; l < 12; l++ {
		want := l - 4
		if want < 0 {
			want = 0
		}
		assert.Len(t, MovingAverage(make([]float64, l), SmoothingWindow), want, "L=%d", l)
	}
}

func TestMovingAverage_DegenerateWindow(t *testing.T) {
	in := []float64{1, 2, 3}
	assert.Equal(t, in, MovingAverage(in, 0))
}
