// Package magnitude scores amounts on a signed logarithmic scale so that
// amounts spanning several orders of magnitude can share one bar chart.
package magnitude

import "math"

// Score returns sign(x)·100·log|x|/log(max), where max is the largest
// magnitude of the collection x belongs to. Zero and non-finite amounts
// score 0, as does every amount when max is 1 or less. The result is
// clamped to [-100, 100].
func Score(x, max float64) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	if !(max > 1) || math.IsInf(max, 0) {
		return 0
	}
	ratio := math.Log(math.Abs(x)) / math.Log(max)
	ratio = math.Min(math.Max(ratio, 0), 1)
	if x < 0 {
		return -100 * ratio
	}
	return 100 * ratio
}

// MaxMagnitude returns the largest |x| among the finite values.
func MaxMagnitude(values []float64) float64 {
	var max float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if a := math.Abs(v); a > max {
			max = a
		}
	}
	return max
}

// Scores scores every value against the collection's largest magnitude.
func Scores(values []float64) []float64 {
	max := MaxMagnitude(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = Score(v, max)
	}
	return out
}
