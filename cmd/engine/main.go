// Package main is the entry point for the strategy engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/strategy-engine/internal/alerting"
	"github.com/tathienbao/strategy-engine/internal/backtest"
	"github.com/tathienbao/strategy-engine/internal/clock"
	"github.com/tathienbao/strategy-engine/internal/config"
	"github.com/tathienbao/strategy-engine/internal/engine"
	"github.com/tathienbao/strategy-engine/internal/metrics"
	"github.com/tathienbao/strategy-engine/internal/persistence"
	"github.com/tathienbao/strategy-engine/internal/strategy"
	"github.com/tathienbao/strategy-engine/internal/types"
)

// Version information (set by build flags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "backtest":
		cmdBacktest(os.Args[2:])
	case "report":
		cmdReport(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Strategy Engine - Event-Driven Strategy Host

Usage:
  strategy-engine <command> [options]

Commands:
  backtest   Replay historical bars through a hosted strategy
  report     Print stored orders, trades and equity from a past run
  validate   Validate configuration file
  version    Show version information
  help       Show this help message

Examples:
  strategy-engine backtest --config config.yaml --data data/EURUSD_1m.csv
  strategy-engine report --config config.yaml
  strategy-engine validate --config config.yaml

Use "strategy-engine <command> --help" for more information about a command.`)
}

func cmdVersion() {
	fmt.Printf("strategy-engine version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Trader:     %s\n", cfg.Engine.TraderID)
	fmt.Printf("  Strategy:   %s\n", cfg.Engine.StrategyID)
	fmt.Printf("  Symbol:     %s\n", cfg.Symbol())
	fmt.Printf("  Bars:       %s\n", cfg.BarSpec())
	fmt.Printf("  EMA cross:  %d/%d, ATR(%d) x %.1f stop\n",
		cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod,
		cfg.Strategy.ATRPeriod, cfg.Strategy.ATRMultiplier)
}

// cmdReport prints the audit trail of a previous run from the
// persistence store.
func cmdReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	dbPath := fs.String("db", "", "Path to sqlite database (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	path := cfg.Persistence.Path
	if *dbPath != "" {
		path = *dbPath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: --db or persistence.path is required")
		fs.Usage()
		os.Exit(1)
	}

	repo, err := persistence.NewSQLiteRepository(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	strategyID := types.StrategyID(cfg.Engine.StrategyID)
	from := time.Unix(0, 0).UTC()
	to := time.Now().UTC()

	orders, err := repo.GetOrders(ctx, strategyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read orders: %v\n", err)
		os.Exit(1)
	}
	fills, err := repo.GetFills(ctx, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read fills: %v\n", err)
		os.Exit(1)
	}
	positions, err := repo.GetClosedPositions(ctx, strategyID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read positions: %v\n", err)
		os.Exit(1)
	}
	equity, err := repo.GetEquityHistory(ctx, from, to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read equity history: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== STORED RUN: %s ===\n", strategyID)
	fmt.Printf("Orders:           %d\n", len(orders))
	fmt.Printf("Fills:            %d\n", len(fills))
	fmt.Printf("Closed Positions: %d\n", len(positions))

	if len(orders) > 0 {
		fmt.Println("\nOrders:")
		for _, order := range orders {
			fmt.Printf("  %-28s %-4s %-11s %-9s %s @ %s\n",
				order.ID, order.Side, order.Type, order.Status,
				order.Quantity, order.Price)
		}
	}
	if len(positions) > 0 {
		fmt.Println("\nClosed Positions:")
		for _, position := range positions {
			fmt.Printf("  %-28s %s entry %s at %s, exit %s\n",
				position.ID, position.Symbol, position.AvgEntryPrice,
				position.EntryTime.Format(time.RFC3339),
				position.ExitTime.Format(time.RFC3339))
		}
	}
	if len(equity) > 0 {
		first, last := equity[0], equity[len(equity)-1]
		fmt.Printf("\nEquity: %s -> %s over %d snapshots\n",
			first.Equity.StringFixed(2), last.Equity.StringFixed(2), len(equity))
	}
}

func cmdBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	dataPath := fs.String("data", "", "Path to CSV bar data (overrides config)")
	verbose := fs.Bool("verbose", false, "Verbose output")
	fs.Parse(args)

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	csvPath := cfg.Data.CSVPath
	if *dataPath != "" {
		csvPath = *dataPath
	}
	if csvPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --data or data.csv_path is required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.SetBuildInfo(Version, GitCommit, BuildTime)
		server := metrics.NewServer(metrics.ServerConfig{
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			HealthPath:  "/health",
		}, logger)
		if err := server.Start(); err != nil {
			slog.Error("failed to start metrics server", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown failed", "err", err)
			}
		}()
	}

	stratCfg := cfg.ToStrategyConfig()
	if err := stratCfg.Validate(); err != nil {
		slog.Error("invalid strategy config", "err", err)
		os.Exit(1)
	}

	start, _ := cfg.StartTime()
	end, _ := cfg.EndTime()
	clockStart := start
	if clockStart.IsZero() {
		clockStart = time.Unix(0, 0).UTC()
	}

	eng, err := engine.New(cfg.ToEngineConfig(), strategy.NewEMACross(stratCfg),
		clock.NewTestClock(clockStart), logger)
	if err != nil {
		slog.Error("failed to create engine", "err", err)
		os.Exit(1)
	}
	eng.RegisterRecorder(metrics.NewRecorder())

	runner, err := backtest.NewRunner(backtest.Config{
		StartTime:      start,
		EndTime:        end,
		InitialBalance: decimal.NewFromFloat(cfg.Execution.InitialBalance),
	}, eng, clockStart, logger)
	if err != nil {
		slog.Error("failed to create runner", "err", err)
		os.Exit(1)
	}

	barType := types.BarType{Symbol: cfg.Symbol(), Spec: cfg.BarSpec()}
	if err := runner.DataClient().LoadBarSeries(barType, csvPath); err != nil {
		slog.Error("failed to load bar data", "path", csvPath, "err", err)
		os.Exit(1)
	}
	if cfg.Data.TickSize > 0 {
		runner.DataClient().AddInstrument(types.Instrument{
			Symbol:       cfg.Symbol(),
			TickSize:     decimal.NewFromFloat(cfg.Data.TickSize),
			SecurityType: types.SecurityTypeForex,
		})
	}

	strategyID := types.StrategyID(cfg.Engine.StrategyID)

	var repo persistence.Repository
	if cfg.Persistence.Enabled {
		repo, err = persistence.NewSQLiteRepository(cfg.Persistence.Path)
		if err != nil {
			slog.Error("failed to open persistence store", "err", err)
			os.Exit(1)
		}
		defer repo.Close()

		recorder := persistence.NewRecorder(repo, strategyID, logger)
		recorder.BindSources(runner.ExecutionClient(), runner.Portfolio())
		runner.ExecutionClient().RegisterHandler(recorder.HandleEvent)

		state, err := repo.LoadStrategyState(ctx, strategyID)
		if err != nil {
			slog.Warn("failed to load strategy state", "err", err)
		} else if len(state) > 0 {
			if err := eng.Load(state); err != nil {
				slog.Warn("strategy state restore failed", "err", err)
			} else {
				slog.Info("restored strategy state", "keys", len(state))
			}
		}
	}

	alerter := buildAlerter(cfg, logger)
	notifier := alerting.NewNotifier(alerter)
	runner.ExecutionClient().RegisterHandler(notifier.HandleEvent)

	slog.Info("starting backtest",
		"data", csvPath,
		"symbol", cfg.Symbol().String(),
		"balance", cfg.Execution.InitialBalance,
	)

	result, err := runner.Run(ctx)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	if repo != nil {
		persistResults(ctx, repo, cfg, eng, result)
	}

	printResults(result)

	if err := alerter.SendRunSummary(ctx, makeRunSummary(cfg, result)); err != nil {
		slog.Warn("failed to send run summary", "err", err)
	}
}

// buildAlerter assembles the alert chain: console always, plus every
// channel configured under alerting.
func buildAlerter(cfg *config.Config, logger *slog.Logger) *alerting.MultiAlerter {
	multi := alerting.NewMultiAlerter(logger, alerting.NewConsoleAlerter(logger))
	if !cfg.Alerting.Enabled {
		return multi
	}
	for _, channel := range cfg.Alerting.Channels {
		if strings.ToLower(channel.Type) == "telegram" {
			multi.AddAlerter(alerting.NewTelegramAlerter(alerting.TelegramConfig{
				BotToken: channel.BotToken,
				ChatID:   channel.ChatID,
			}))
		}
	}
	return multi
}

func makeRunSummary(cfg *config.Config, result *backtest.Result) alerting.RunSummary {
	summary := alerting.RunSummary{
		Strategy:      cfg.Engine.StrategyID,
		Symbol:        cfg.Symbol().String(),
		StartBalance:  result.StartBalance,
		EndBalance:    result.EndBalance,
		TotalReturn:   result.TotalReturn,
		MaxDrawdown:   result.MaxDrawdown,
		TotalTrades:   result.TotalTrades,
		WinningTrades: result.WinningTrades,
		LosingTrades:  result.LosingTrades,
		WinRate:       result.WinRate,
	}
	if len(result.EquityCurve) > 0 {
		summary.Start = result.EquityCurve[0].Timestamp
		summary.End = result.EquityCurve[len(result.EquityCurve)-1].Timestamp
	}
	return summary
}

// persistResults stores strategy state and the equity curve after a
// completed run. Failures are logged, not fatal.
func persistResults(ctx context.Context, repo persistence.Repository,
	cfg *config.Config, eng *engine.Engine, result *backtest.Result) {

	state, err := eng.Save()
	if err != nil {
		slog.Warn("strategy state save hook failed", "err", err)
	} else if err := repo.SaveStrategyState(ctx,
		types.StrategyID(cfg.Engine.StrategyID), state); err != nil {
		slog.Warn("failed to persist strategy state", "err", err)
	}

	for _, point := range result.EquityCurve {
		snapshot := persistence.EquitySnapshot{
			Timestamp: point.Timestamp,
			Equity:    point.Equity,
		}
		if err := repo.SaveEquitySnapshot(ctx, snapshot); err != nil {
			slog.Warn("failed to persist equity snapshot", "err", err)
			break
		}
	}
}

func printResults(result *backtest.Result) {
	pct := func(d decimal.Decimal) float64 {
		return d.Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	fmt.Println("\n=== BACKTEST RESULTS ===")
	fmt.Printf("Bars Processed:   %d\n", result.Bars)
	fmt.Printf("Start Balance:    $%.2f\n", result.StartBalance.InexactFloat64())
	fmt.Printf("End Balance:      $%.2f\n", result.EndBalance.InexactFloat64())
	fmt.Printf("Total Return:     %.2f%%\n", pct(result.TotalReturn))
	fmt.Printf("Max Drawdown:     %.2f%%\n", pct(result.MaxDrawdown))
	fmt.Println()
	fmt.Printf("Total Trades:     %d\n", result.TotalTrades)
	fmt.Printf("Winning Trades:   %d\n", result.WinningTrades)
	fmt.Printf("Losing Trades:    %d\n", result.LosingTrades)
	fmt.Printf("Win Rate:         %.2f%%\n", pct(result.WinRate))
	fmt.Printf("Profit Factor:    %.2f\n", result.ProfitFactor.InexactFloat64())
	fmt.Printf("Sharpe Ratio:     %.2f\n", result.SharpeRatio.InexactFloat64())
}
