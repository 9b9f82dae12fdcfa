package indicator

import (
	"math"

	"github.com/riptide-labs/riptide/internal/types"
)

// ADX computes the Average Directional Index over bars: Wilder-smoothed
// directional movement against smoothed true range, with the DX series
// smoothed once more. Roughly the first 2*period values are NaN.
func ADX(bars []types.Bar, period int) ([]float64, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	n := len(bars)

	plusDM := nanSlice(n)
	minusDM := nanSlice(n)

	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low

		plusDM[i] = 0
		minusDM[i] = 0

		if up > down && up > 0 {
			plusDM[i] = up
		}

		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smTR := wilderSmooth(trueRange(bars), period)
	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)

	dx := nanSlice(n)

	for i := period; i < n; i++ {
		if math.IsNaN(smTR[i]) || smTR[i] == 0 {
			continue
		}

		plusDI := 100 * smPlus[i] / smTR[i]
		minusDI := 100 * smMinus[i] / smTR[i]

		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = 0
			continue
		}

		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	out := wilderSmooth(dx, period)

	for i := 0; i < 2*period-1 && i < n; i++ {
		out[i] = nan
	}

	return out, nil
}
