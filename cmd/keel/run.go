package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fairweather/keel/internal/backtest"
	"github.com/fairweather/keel/internal/config"
	"github.com/fairweather/keel/internal/core"
	"github.com/fairweather/keel/internal/logger"
	"github.com/fairweather/keel/internal/marketdata"
	"github.com/fairweather/keel/internal/metrics"
	"github.com/fairweather/keel/internal/signalfeed"
	"github.com/fairweather/keel/internal/storage/archive"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from the configured data sources",
	Long:  "Load prices and signals per the config file, simulate the strategy and report performance statistics",
	RunE:  runBacktest,
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result document instead of the summary")
	rootCmd.AddCommand(runCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	if cfgFile == "" {
		return fmt.Errorf("a config file is required (use --config)")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx := context.Background()

	prices, err := loadPrices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("loading prices: %w", err)
	}
	signals, err := loadSignals(cfg)
	if err != nil {
		return fmt.Errorf("loading signals: %w", err)
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := backtest.New(engineCfg, prices, signals, log)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	start := time.Now()
	result, err := engine.Run()
	duration := time.Since(start)

	if reg != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		reg.RecordBacktest(status, duration.Seconds())
	}
	if err != nil {
		return err
	}
	if reg != nil {
		for _, t := range result.Trades {
			reg.RecordTrade(string(t.Side), string(t.Reason))
		}
		reg.RecordTradingDays(len(result.Snapshots))
	}

	doc, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if cfg.Archive.Enabled {
		key, err := archiveResult(ctx, cfg, result, doc)
		if err != nil {
			return err
		}
		log.Info("result archived", zap.String("key", key))
	}

	if runJSON {
		fmt.Println(string(doc))
		return nil
	}
	printSummary(result, duration)
	return nil
}

// loadPrices builds the in-memory bar store from the configured backend.
func loadPrices(ctx context.Context, cfg *config.Config) (*marketdata.Store, error) {
	switch cfg.Data.Prices.Format {
	case "csv":
		return marketdata.LoadCSVDir(cfg.Data.Prices.Path)
	case "parquet":
		return marketdata.LoadParquetDir(cfg.Data.Prices.Path)
	case "sqlite":
		db, err := marketdata.OpenSQLite(cfg.Data.Prices.Path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.LoadAll(ctx)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown prices format %q", cfg.Data.Prices.Format))
	}
}

func loadSignals(cfg *config.Config) (*signalfeed.Feed, error) {
	switch cfg.Data.Signals.Format {
	case "json":
		return signalfeed.LoadJSON(cfg.Data.Signals.Path)
	case "yaml":
		return signalfeed.LoadYAML(cfg.Data.Signals.Path)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown signals format %q", cfg.Data.Signals.Format))
	}
}

// archiveResult stores the result document under results/<year>/<run-id>.json.
func archiveResult(ctx context.Context, cfg *config.Config, result *backtest.Result, doc []byte) (string, error) {
	var store archive.Store
	var err error
	switch cfg.Archive.Type {
	case "localfs":
		store, err = archive.NewLocalFS(cfg.Archive.Path)
	case "s3":
		store, err = archive.NewS3(cfg.S3Config())
	default:
		err = core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", cfg.Archive.Type))
	}
	if err != nil {
		return "", err
	}

	key := archive.ResultKey(result.EndDate, result.RunID)
	if err := store.Put(ctx, key, doc); err != nil {
		return "", err
	}
	return key, nil
}

func printSummary(r *backtest.Result, duration time.Duration) {
	fmt.Println("=== KEEL Backtest ===")
	fmt.Printf("Run:             %s\n", r.RunID)
	fmt.Printf("Period:          %s to %s (%d trading days)\n",
		core.FormatDate(r.StartDate), core.FormatDate(r.EndDate), len(r.Snapshots))
	fmt.Printf("Duration:        %s\n", duration.Round(time.Millisecond))
	fmt.Println()
	fmt.Printf("Initial capital: %.2f\n", r.InitialCapital)
	fmt.Printf("Final value:     %.2f\n", r.FinalValue)
	fmt.Printf("Total return:    %.2f%%\n", r.TotalReturnPct)
	fmt.Printf("Annual return:   %.2f%%\n", r.AnnualReturnPct)
	fmt.Printf("Max drawdown:    %.2f%%\n", r.MaxDrawdownPct)
	fmt.Printf("Sharpe ratio:    %.2f\n", r.SharpeRatio)
	fmt.Println()
	fmt.Printf("Trades:          %d\n", r.TotalTrades)
	fmt.Printf("Win rate:        %.2f%%\n", r.WinRatePct)
	fmt.Printf("Avg win:         %.2f%%\n", r.AvgWinPct)
	fmt.Printf("Avg loss:        %.2f%%\n", r.AvgLossPct)
	fmt.Printf("Avg holding:     %.1f days\n", r.AvgHoldingDays)
}
