package strategy

import (
	"math"

	"github.com/riptide-labs/riptide/internal/indicator"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/riptide-labs/riptide/pkg/errors"
)

// DonchianTrendParams are the tunables of the Donchian breakout strategy.
type DonchianTrendParams struct {
	DonchianLen int
	RSILen      int
	RSILongMax  float64
	RSIShortMin float64
	ADXLen      int
	ADXMin      float64
	ATRLen      int
	HTFEMALen   int
}

// DefaultDonchianTrendParams returns the standard parameter set.
func DefaultDonchianTrendParams() DonchianTrendParams {
	return DonchianTrendParams{
		DonchianLen: 20,
		RSILen:      14,
		RSILongMax:  70,
		RSIShortMin: 30,
		ADXLen:      14,
		ADXMin:      18,
		ATRLen:      14,
		HTFEMALen:   200,
	}
}

// DonchianTrend is a channel-breakout strategy with a higher-timeframe trend
// filter: long on a close above the Donchian high when price is above the
// HTF EMA, short on a close below the Donchian low when price is below it.
// ADX gates out rangebound markets and RSI gates out exhausted moves.
type DonchianTrend struct {
	params DonchianTrendParams
}

// NewDonchianTrend creates the strategy with the given parameters.
func NewDonchianTrend(params DonchianTrendParams) *DonchianTrend {
	return &DonchianTrend{params: params}
}

// Name returns the strategy identifier.
func (s *DonchianTrend) Name() string {
	return "donchian_trend_adx_rsi"
}

// Prepare computes the signal series for one symbol.
func (s *DonchianTrend) Prepare(ltf, htf []types.Bar) ([]types.SignalBar, error) {
	if len(ltf) == 0 {
		return nil, errors.New(errors.ErrCodeDataNotFound, "no low-timeframe bars to prepare")
	}

	closes := make([]float64, len(ltf))
	for i, bar := range ltf {
		closes[i] = bar.Close
	}

	donchHi, donchLo, err := indicator.Donchian(ltf, s.params.DonchianLen)
	if err != nil {
		return nil, err
	}

	rsi, err := indicator.RSI(closes, s.params.RSILen)
	if err != nil {
		return nil, err
	}

	adx, err := indicator.ADX(ltf, s.params.ADXLen)
	if err != nil {
		return nil, err
	}

	atr, err := indicator.ATR(ltf, s.params.ATRLen)
	if err != nil {
		return nil, err
	}

	htfEMA, err := s.htfTrendLine(ltf, htf)
	if err != nil {
		return nil, err
	}

	signals := make([]types.SignalBar, len(ltf))

	for i, bar := range ltf {
		trendUp := bar.Close > htfEMA[i]
		trendDown := bar.Close < htfEMA[i]
		momentumOK := adx[i] >= s.params.ADXMin

		signals[i] = types.SignalBar{
			Time:       bar.Time,
			Close:      bar.Close,
			ATR:        atr[i],
			LongSetup:  bar.Close > donchHi[i] && trendUp && momentumOK && rsi[i] <= s.params.RSILongMax,
			ShortSetup: bar.Close < donchLo[i] && trendDown && momentumOK && rsi[i] >= 100-s.params.RSIShortMin,
		}
	}

	return signals, nil
}

// htfTrendLine computes the HTF EMA and forward-fills it onto the LTF
// timeline: each LTF bar takes the EMA of the latest HTF bar at or before
// its own timestamp. LTF bars before the first HTF bar get NaN, which makes
// every trend comparison false.
func (s *DonchianTrend) htfTrendLine(ltf, htf []types.Bar) ([]float64, error) {
	out := make([]float64, len(ltf))

	if len(htf) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}

		return out, nil
	}

	htfCloses := make([]float64, len(htf))
	for i, bar := range htf {
		htfCloses[i] = bar.Close
	}

	ema, err := indicator.EMA(htfCloses, s.params.HTFEMALen)
	if err != nil {
		return nil, err
	}

	j := 0

	for i, bar := range ltf {
		for j < len(htf)-1 && !htf[j+1].Time.After(bar.Time) {
			j++
		}

		if htf[j].Time.After(bar.Time) {
			out[i] = math.NaN()
		} else {
			out[i] = ema[j]
		}
	}

	return out, nil
}
