package series

// SmoothingWindow is the window width used for the CPU usage chart.
const SmoothingWindow = 5

// MovingAverage returns the stride-1 moving mean of s over window samples.
//
// The output has max(0, len(s)-window+1) elements and out[i] is the mean of
// s[i:i+window]; the trailing window-1 positions have no full window and are
// dropped. A window below 1 is treated as 1.
func MovingAverage(s []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	n := len(s) - window + 1
	if n <= 0 {
		return []float64{}
	}

	out := make([]float64, n)
	for i := range out {
		var sum float64
		for _, v := range s[i : i+window] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}
