package indicator

import (
	"math"
	"testing"

	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

// constantBars builds bars with a fixed high-low range around close.
func constantBars(n int, close, halfRange float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{
			Open:  close,
			High:  close + halfRange,
			Low:   close - halfRange,
			Close: close,
		}
	}

	return bars
}

// trendBars builds a steadily rising series.
func trendBars(n int, start, step float64) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = types.Bar{Open: c - step, High: c + 1, Low: c - 1, Close: c}
	}

	return bars
}

func (suite *IndicatorTestSuite) TestInvalidPeriodRejected() {
	_, err := ATR(constantBars(10, 100, 1), 0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = EMA([]float64{1, 2, 3}, -1)
	suite.Require().Error(err)

	_, err = RSI([]float64{1, 2, 3}, 0)
	suite.Require().Error(err)

	_, _, err = Donchian(constantBars(10, 100, 1), 0)
	suite.Require().Error(err)

	_, err = ADX(constantBars(10, 100, 1), 0)
	suite.Require().Error(err)
}

func (suite *IndicatorTestSuite) TestATRConstantRange() {
	bars := constantBars(10, 100, 1)

	atr, err := ATR(bars, 3)
	suite.Require().NoError(err)
	suite.Require().Len(atr, 10)

	suite.True(math.IsNaN(atr[0]))
	suite.True(math.IsNaN(atr[1]))

	// Constant true range of 2 smooths to exactly 2.
	for i := 2; i < 10; i++ {
		suite.InDelta(2.0, atr[i], 1e-9)
	}
}

func (suite *IndicatorTestSuite) TestEMAConvergence() {
	ema, err := EMA([]float64{1, 2, 3}, 2)
	suite.Require().NoError(err)

	// alpha = 2/3, seeded at the first value.
	suite.InDelta(1.0, ema[0], 1e-9)
	suite.InDelta(1.0+2.0/3.0, ema[1], 1e-9)
	suite.InDelta(ema[1]+2.0/3.0*(3-ema[1]), ema[2], 1e-9)
}

func (suite *IndicatorTestSuite) TestEMACarriesThroughNaN() {
	ema, err := EMA([]float64{1, math.NaN(), 3}, 2)
	suite.Require().NoError(err)

	suite.InDelta(1.0, ema[0], 1e-9)
	suite.True(math.IsNaN(ema[1]))
	suite.InDelta(1.0+2.0/3.0*(3-1), ema[2], 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIExtremes() {
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	rsi, err := RSI(rising, 3)
	suite.Require().NoError(err)

	suite.True(math.IsNaN(rsi[2]), "warmup values must be NaN")

	for i := 3; i < len(rsi); i++ {
		suite.InDelta(100.0, rsi[i], 1e-9, "all-gains series pins RSI at 100")
	}

	falling := []float64{8, 7, 6, 5, 4, 3, 2, 1}

	rsi, err = RSI(falling, 3)
	suite.Require().NoError(err)

	for i := 3; i < len(rsi); i++ {
		suite.InDelta(0.0, rsi[i], 1e-9, "all-losses series pins RSI at 0")
	}
}

func (suite *IndicatorTestSuite) TestDonchianExcludesCurrentBar() {
	bars := []types.Bar{
		{High: 1, Low: 0},
		{High: 2, Low: 1},
		{High: 3, Low: 2},
		{High: 4, Low: 3},
	}

	hi, lo, err := Donchian(bars, 2)
	suite.Require().NoError(err)

	suite.True(math.IsNaN(hi[0]))
	suite.True(math.IsNaN(hi[1]))

	// Window over bars [0,1] for index 2; the current bar's high of 3 is
	// outside its own channel, so a breakout is representable.
	suite.InDelta(2.0, hi[2], 1e-9)
	suite.InDelta(0.0, lo[2], 1e-9)
	suite.InDelta(3.0, hi[3], 1e-9)
	suite.InDelta(1.0, lo[3], 1e-9)
}

func (suite *IndicatorTestSuite) TestADXTrendingMarket() {
	bars := trendBars(60, 100, 2)

	adx, err := ADX(bars, 14)
	suite.Require().NoError(err)

	suite.True(math.IsNaN(adx[10]), "warmup values must be NaN")

	last := adx[len(adx)-1]
	suite.False(math.IsNaN(last))
	suite.Greater(last, 20.0, "a monotone trend must register as directional")
	suite.LessOrEqual(last, 100.0)
}
