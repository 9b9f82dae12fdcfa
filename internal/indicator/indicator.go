// Package indicator computes technical indicator series over bar history.
// Every function returns a slice aligned index-for-index with its input;
// positions inside the warmup window are NaN so downstream consumers can
// tell "no value yet" from a real zero.
package indicator

import (
	"math"

	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
)

var nan = math.NaN()

func validatePeriod(period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return nil
}

// nanSlice returns a slice of n NaNs.
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

// wilderSmooth applies Wilder's exponential smoothing (alpha = 1/period)
// to values, carrying NaN until the first non-NaN input.
func wilderSmooth(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	alpha := 1.0 / float64(period)

	prev := math.NaN()

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}

		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = prev + alpha*(v-prev)
		}

		out[i] = prev
	}

	return out
}

// trueRange computes the per-bar true range. The first bar has no previous
// close and uses high-low.
func trueRange(bars []types.Bar) []float64 {
	tr := make([]float64, len(bars))

	for i, bar := range bars {
		hl := bar.High - bar.Low
		if i == 0 {
			tr[i] = hl
			continue
		}

		prevClose := bars[i-1].Close
		tr[i] = math.Max(hl, math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
	}

	return tr
}
