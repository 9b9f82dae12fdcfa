package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/riptide-labs/riptide/internal/backtest"
	"github.com/riptide-labs/riptide/internal/config"
	"github.com/riptide-labs/riptide/internal/engine/ledger"
	"github.com/riptide-labs/riptide/internal/live"
	"github.com/riptide-labs/riptide/internal/logger"
	"github.com/riptide-labs/riptide/internal/strategy"
	"github.com/riptide-labs/riptide/internal/version"
	"github.com/riptide-labs/riptide/pkg/marketdata"
	"github.com/urfave/cli/v3"
)

// backtestAction replays local CSV history through the engine and writes
// results.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	strat := strategy.NewDonchianTrend(strategy.DefaultDonchianTrendParams())
	engine := backtest.NewEngine(cfg, strat, cmd.String("data"), cmd.String("output"), log)

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Final equity:   %.2f\n", result.Performance.FinalEquity)
	fmt.Printf("Total return:   %.2f%%\n", result.Performance.TotalReturnPct)
	fmt.Printf("Max drawdown:   %.2f%%\n", result.Performance.MaxDrawdownPct)
	fmt.Printf("Sharpe ratio:   %.2f\n", result.Performance.SharpeRatio)
	fmt.Printf("Trades entered: %d\n", result.Performance.TotalTrades)

	return nil
}

// liveAction polls the exchange and drives the same engine in real time.
func liveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadFile(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	events, err := ledger.NewEquityLedger(cmd.String("ledger"), log)
	if err != nil {
		return err
	}
	defer events.Close()

	if err := events.Initialize(); err != nil {
		return err
	}

	strat := strategy.NewDonchianTrend(strategy.DefaultDonchianTrendParams())
	engine := live.NewEngine(cfg, marketdata.NewBinanceProvider(), strat, events, log, live.Options{
		PollInterval:   cmd.Duration("poll-interval"),
		MaxRunDuration: cmd.Duration("duration"),
	})

	if err := engine.Run(ctx); err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		return events.Write(output)
	}

	return nil
}

// schemaAction prints the JSON schema of the configuration file.
func schemaAction(_ context.Context, _ *cli.Command) error {
	cfg := config.Default()

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the YAML configuration file",
		Required: true,
	}

	cmd := &cli.Command{
		Name:    "riptide",
		Usage:   "Multi-symbol position and risk lifecycle engine",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "backtest",
				Usage:  "Replay local bar history through the engine",
				Action: backtestAction,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Directory containing {SYMBOL}.csv bar files",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for results (CSV and Parquet)",
						Value:   "results",
					},
				},
			},
			{
				Name:   "live",
				Usage:  "Run the engine against live exchange data",
				Action: liveAction,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "ledger",
						Usage: "Path of the ledger database (\":memory:\" for ephemeral runs)",
						Value: "riptide.duckdb",
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "Sleep between exchange polls",
						Value: 15 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "duration",
						Usage: "Stop after this much wall time (0 runs until interrupted)",
						Value: 7 * 24 * time.Hour,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for results written on shutdown",
					},
				},
			},
			{
				Name:   "schema",
				Usage:  "Print the configuration JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
