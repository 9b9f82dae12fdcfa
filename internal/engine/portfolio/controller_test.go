package portfolio

import (
	"testing"
	"time"

	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/engine/ledger"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/types"
	"github.com/stretchr/testify/suite"
)

type ControllerTestSuite struct {
	suite.Suite
	controller *Controller
	events     *ledger.EquityLedger
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (suite *ControllerTestSuite) TearDownTest() {
	if suite.events != nil {
		suite.NoError(suite.events.Close())
		suite.events = nil
	}
}

// build wires a controller over an in-memory equity ledger.
func (suite *ControllerTestSuite) build(cfg config.Config) {
	log := logger.NewNopLogger()

	events, err := ledger.NewEquityLedger(":memory:", log)
	suite.Require().NoError(err)
	suite.Require().NoError(events.Initialize())

	suite.events = events
	suite.controller = NewController(cfg, events, log)
}

func testConfig(symbols ...string) config.Config {
	cfg := config.Default()
	cfg.Symbols = symbols

	return cfg
}

func ts(hour int) time.Time {
	return time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
}

func longBar(close, atr float64) types.SignalBar {
	return types.SignalBar{Close: close, ATR: atr, LongSetup: true}
}

func flatBar(close, atr float64) types.SignalBar {
	return types.SignalBar{Close: close, ATR: atr}
}

func (suite *ControllerTestSuite) TestEntryOpensPositionAndRecordsEnter() {
	suite.build(testConfig("BTCUSDT"))

	err := suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
	})
	suite.Require().NoError(err)

	suite.Equal(1, suite.controller.OpenPositionCount())

	pos := suite.controller.Position("BTCUSDT").Unwrap()
	suite.Equal(types.SideLong, pos.Side)
	suite.InDelta(100.0, pos.EntryPrice, 1e-9)
	// k_sl=1.8: stop=96.4, R=3.6.
	suite.InDelta(96.4, pos.CurrentStop, 1e-9)
	suite.InDelta(3.6, pos.RiskUnit, 1e-9)
	// Risk bound 100000*0.008/3.6 binds under the 250 notional cap.
	suite.InDelta(100_000*0.008/3.6, pos.Quantity, 1e-3)

	events, err := suite.events.Events()
	suite.Require().NoError(err)
	suite.Require().Len(events, 1)
	suite.Equal(types.EventEnter, events[0].Type)
	suite.True(events[0].PnL.IsNone(), "entries must not carry a PnL")

	// Opening a position does not move equity.
	suite.InDelta(100_000.0, suite.controller.Equity(), 1e-9)
}

func (suite *ControllerTestSuite) TestConflictingSetupsProduceNoEntry() {
	suite.build(testConfig("BTCUSDT"))

	err := suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": {Close: 100, ATR: 2, LongSetup: true, ShortSetup: true},
	})
	suite.Require().NoError(err)
	suite.Zero(suite.controller.OpenPositionCount())
}

func (suite *ControllerTestSuite) TestNoEntryWithoutATR() {
	suite.build(testConfig("BTCUSDT"))

	err := suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 0),
	})
	suite.Require().NoError(err)
	suite.Zero(suite.controller.OpenPositionCount())
}

func (suite *ControllerTestSuite) TestConcurrencyCapStopsScan() {
	cfg := testConfig("BTCUSDT", "ETHUSDT")
	cfg.MaxConcurrentPositions = 1
	suite.build(cfg)

	err := suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
		"ETHUSDT": longBar(50, 1),
	})
	suite.Require().NoError(err)

	suite.Equal(1, suite.controller.OpenPositionCount())
	suite.True(suite.controller.Position("BTCUSDT").IsSome(), "entry scan follows configured symbol order")
	suite.True(suite.controller.Position("ETHUSDT").IsNone())
}

func (suite *ControllerTestSuite) TestBreakerLifecycle() {
	cfg := testConfig("BTCUSDT", "ETHUSDT", "SOLUSDT")
	cfg.DailyLossCapR = -1.0
	cfg.CooldownBarsAfterLoss = 0
	suite.build(cfg)

	// Hour 0: BTC and ETH open.
	err := suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
		"ETHUSDT": longBar(100, 2),
		"SOLUSDT": flatBar(100, 2),
	})
	suite.Require().NoError(err)
	suite.Equal(2, suite.controller.OpenPositionCount())

	// Hour 1: BTC stops out (-1R), hitting the cap. SOL's signal on the
	// same tick must not be taken.
	err = suite.controller.ProcessTick(ts(1), map[string]types.SignalBar{
		"BTCUSDT": flatBar(95, 2),
		"ETHUSDT": flatBar(100, 2),
		"SOLUSDT": longBar(100, 2),
	})
	suite.Require().NoError(err)
	suite.True(suite.controller.BreakerTripped())
	suite.InDelta(-1.0, suite.controller.DailyR(), 1e-9)
	suite.True(suite.controller.Position("SOLUSDT").IsNone())

	// Hour 2: ETH hits TP1 (+1.5R). The daily budget recovers above the
	// cap but the breaker stays latched for the rest of the day.
	err = suite.controller.ProcessTick(ts(2), map[string]types.SignalBar{
		"ETHUSDT": flatBar(105.4, 2),
		"SOLUSDT": longBar(100, 2),
	})
	suite.Require().NoError(err)
	suite.InDelta(0.5, suite.controller.DailyR(), 1e-9)
	suite.True(suite.controller.BreakerTripped(), "intraday recovery must not unlatch the breaker")
	suite.True(suite.controller.Position("SOLUSDT").IsNone())

	// Next day: budget and latch reset, SOL's signal is taken.
	nextDay := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	err = suite.controller.ProcessTick(nextDay, map[string]types.SignalBar{
		"SOLUSDT": longBar(100, 2),
	})
	suite.Require().NoError(err)
	suite.False(suite.controller.BreakerTripped())
	suite.Zero(suite.controller.DailyR())
	suite.True(suite.controller.Position("SOLUSDT").IsSome())
}

func (suite *ControllerTestSuite) TestCooldownBlocksReentry() {
	cfg := testConfig("BTCUSDT")
	cfg.CooldownBarsAfterLoss = 2
	suite.build(cfg)

	suite.Require().NoError(suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
	}))

	// Stop-out arms the cooldown; the closing bar itself is blocked.
	suite.Require().NoError(suite.controller.ProcessTick(ts(1), map[string]types.SignalBar{
		"BTCUSDT": longBar(95, 2),
	}))
	suite.Zero(suite.controller.OpenPositionCount())
	suite.Equal(1, suite.controller.CooldownRemaining("BTCUSDT"))

	// Still cooling.
	suite.Require().NoError(suite.controller.ProcessTick(ts(2), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
	}))
	suite.Zero(suite.controller.OpenPositionCount())
	suite.Zero(suite.controller.CooldownRemaining("BTCUSDT"))

	// Cooldown elapsed, signal taken.
	suite.Require().NoError(suite.controller.ProcessTick(ts(3), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
	}))
	suite.Equal(1, suite.controller.OpenPositionCount())
}

func (suite *ControllerTestSuite) TestCooldownFrozenWithoutSnapshot() {
	cfg := testConfig("BTCUSDT", "ETHUSDT")
	cfg.CooldownBarsAfterLoss = 2
	suite.build(cfg)

	suite.Require().NoError(suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
	}))
	suite.Require().NoError(suite.controller.ProcessTick(ts(1), map[string]types.SignalBar{
		"BTCUSDT": flatBar(95, 2),
	}))
	suite.Equal(1, suite.controller.CooldownRemaining("BTCUSDT"))

	// No BTC snapshot this tick: its cooldown must not advance.
	suite.Require().NoError(suite.controller.ProcessTick(ts(2), map[string]types.SignalBar{
		"ETHUSDT": flatBar(50, 1),
	}))
	suite.Equal(1, suite.controller.CooldownRemaining("BTCUSDT"))
}

func (suite *ControllerTestSuite) TestProfitableTimeExitSkipsCooldown() {
	cfg := testConfig("BTCUSDT")
	cfg.CooldownBarsAfterLoss = 2
	cfg.Exit.MaxBarsInTrade = 3
	suite.build(cfg)

	suite.Require().NoError(suite.controller.ProcessTick(ts(0), map[string]types.SignalBar{
		"BTCUSDT": longBar(100, 2),
	}))

	// Hold above entry until the time-stop fires with a gain.
	for hour := 1; hour <= 3; hour++ {
		suite.Require().NoError(suite.controller.ProcessTick(ts(hour), map[string]types.SignalBar{
			"BTCUSDT": flatBar(101, 2),
		}))
	}

	suite.Zero(suite.controller.OpenPositionCount())
	suite.Zero(suite.controller.CooldownRemaining("BTCUSDT"))

	// Re-entry allowed on the very next signal.
	suite.Require().NoError(suite.controller.ProcessTick(ts(4), map[string]types.SignalBar{
		"BTCUSDT": longBar(101, 2),
	}))
	suite.Equal(1, suite.controller.OpenPositionCount())
}

func (suite *ControllerTestSuite) TestEquitySnapshotEveryTick() {
	suite.build(testConfig("BTCUSDT"))

	for hour := 0; hour < 3; hour++ {
		suite.Require().NoError(suite.controller.ProcessTick(ts(hour), map[string]types.SignalBar{
			"BTCUSDT": flatBar(100, 2),
		}))
	}

	curve, err := suite.events.EquityCurve()
	suite.Require().NoError(err)
	suite.Require().Len(curve, 3)

	for _, point := range curve {
		suite.InDelta(100_000.0, point.Equity, 1e-9)
	}
}
