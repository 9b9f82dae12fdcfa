package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/strategy"
	"github.com/riptide-labs/riptide/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
	dataDir string
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.dataDir = suite.T().TempDir()
}

// writeHistory writes an hourly CSV for symbol with closes from closeAt.
func (suite *EngineTestSuite) writeHistory(symbol string, n int, start time.Time, closeAt func(i int) float64) {
	var b strings.Builder

	b.WriteString("time,open,high,low,close,volume\n")

	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		c := closeAt(i)
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,10\n",
			ts.Format("2006-01-02 15:04:05"), c, c+1, c-1, c)
	}

	err := os.WriteFile(filepath.Join(suite.dataDir, symbol+".csv"), []byte(b.String()), 0644)
	suite.Require().NoError(err)
}

func fastStrategy() strategy.Strategy {
	return strategy.NewDonchianTrend(strategy.DonchianTrendParams{
		DonchianLen: 3,
		RSILen:      3,
		RSILongMax:  100,
		RSIShortMin: 100,
		ADXLen:      3,
		ADXMin:      0,
		ATRLen:      3,
		HTFEMALen:   2,
	})
}

func (suite *EngineTestSuite) newEngine(cfg config.Config) *Engine {
	return NewEngine(cfg, fastStrategy(), suite.dataDir, "", logger.NewNopLogger())
}

func (suite *EngineTestSuite) TestFlatMarketProducesNoTrades() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.writeHistory("BTCUSDT", 48, start, func(int) float64 { return 100 })

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}

	result, err := suite.newEngine(cfg).Run(context.Background())
	suite.Require().NoError(err)

	suite.Equal(48, result.Ticks)
	suite.Zero(result.Performance.TotalTrades)
	suite.InDelta(cfg.InitialCapital, result.Performance.FinalEquity, 1e-9)
	suite.Equal(48, result.Performance.EquityDataCount)
}

func (suite *EngineTestSuite) TestTrendingMarketTrades() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.writeHistory("BTCUSDT", 72, start, func(i int) float64 { return 100 + 2*float64(i) })

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}

	result, err := suite.newEngine(cfg).Run(context.Background())
	suite.Require().NoError(err)

	suite.GreaterOrEqual(result.Performance.TotalTrades, 1)
	suite.Greater(result.Performance.FinalEquity, cfg.InitialCapital,
		"a monotone uptrend must realize gains on long breakouts")
}

func (suite *EngineTestSuite) TestWindowClipsHistory() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.writeHistory("BTCUSDT", 48, start, func(int) float64 { return 100 })

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}
	windowStart := start.Add(12 * time.Hour)
	windowEnd := start.Add(23 * time.Hour)
	cfg.StartTime = &windowStart
	cfg.EndTime = &windowEnd

	result, err := suite.newEngine(cfg).Run(context.Background())
	suite.Require().NoError(err)
	suite.Equal(12, result.Ticks)
}

func (suite *EngineTestSuite) TestDisjointHistoriesFail() {
	suite.writeHistory("BTCUSDT", 24, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), func(int) float64 { return 100 })
	suite.writeHistory("ETHUSDT", 24, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), func(int) float64 { return 50 })

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}

	_, err := suite.newEngine(cfg).Run(context.Background())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoCommonBars))
}

func (suite *EngineTestSuite) TestCancellationStopsReplay() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.writeHistory("BTCUSDT", 48, start, func(int) float64 { return 100 })

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.newEngine(cfg).Run(ctx)
	suite.Require().ErrorIs(err, context.Canceled)
}

func (suite *EngineTestSuite) TestResultsExported() {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.writeHistory("BTCUSDT", 24, start, func(int) float64 { return 100 })

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}

	resultsDir := suite.T().TempDir()
	engine := NewEngine(cfg, fastStrategy(), suite.dataDir, resultsDir, logger.NewNopLogger())

	_, err := engine.Run(context.Background())
	suite.Require().NoError(err)

	for _, name := range []string{"trades.csv", "equity_curve.csv"} {
		_, statErr := os.Stat(filepath.Join(resultsDir, name))
		suite.NoError(statErr, name)
	}
}
