package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"crypto-backtest-lab/internal/backtest"
	"crypto-backtest-lab/internal/config"
	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/exchange/delta"
	"crypto-backtest-lab/internal/reporting"
	"crypto-backtest-lab/internal/storage"
	chstore "crypto-backtest-lab/internal/storage/clickhouse"
	"crypto-backtest-lab/internal/storage/memory"
	"crypto-backtest-lab/internal/storage/migrations"
	pgstore "crypto-backtest-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to YAML configuration file")
	fetch := flag.Bool("fetch", true, "Fetch missing candles from the exchange before running")
	outputDir := flag.String("output-dir", "", "Directory for markdown and CSV reports (empty to skip)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// Create stores
	var candleStore storage.CandleStore = memory.NewCandleStore()
	var tradeStore storage.TradeRecordStore = memory.NewTradeRecordStore()
	var runStore storage.RunStore = memory.NewRunStore()

	if cfg.Storage.Backend == "database" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply postgres migrations")
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("apply clickhouse migrations")
		}
		defer conn.Close()

		tradeStore = pgstore.NewTradeRecordStore(pool)
		runStore = pgstore.NewRunStore(pool)
		candleStore = chstore.NewCandleStore(conn)
	}

	startMs, _ := cfg.StartMs()
	endMs, _ := cfg.EndMs()

	if *fetch {
		if err := fetchMissingCandles(ctx, logger, cfg, candleStore, startMs, endMs); err != nil {
			logger.Fatal().Err(err).Msg("fetch candles")
		}
	}

	// One request per ticker per strategy
	var reqs []backtest.RunRequest
	for _, ticker := range cfg.Backtest.Tickers {
		for _, params := range cfg.Strategies {
			reqs = append(reqs, backtest.RunRequest{
				Ticker:         ticker,
				Timeframe:      cfg.Backtest.Timeframe,
				StartMs:        startMs,
				EndMs:          endMs,
				Strategy:       params.ToDomain(),
				InitialCapital: cfg.Backtest.InitialCapital,
				CommissionRate: cfg.Backtest.CommissionRate,
			})
		}
	}

	runner := backtest.NewRunner(candleStore, tradeStore, runStore, logger)
	items := runner.RunBatch(ctx, reqs)

	failures := 0
	for _, item := range items {
		if item.Err != nil {
			failures++
			continue
		}

		fmt.Println(reporting.RenderText(item.Result.Report))

		if *outputDir != "" {
			if err := writeReports(*outputDir, item.Result.Report); err != nil {
				logger.Error().Err(err).Str("run_id", item.Result.Run.RunID).Msg("write report files")
			}
		}
	}

	logger.Info().
		Int("total", len(items)).
		Int("failed", failures).
		Msg("backtesting finished")

	if failures == len(items) {
		os.Exit(1)
	}
}

// newLogger builds a console logger at the configured level.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

// fetchMissingCandles pages history from the exchange for every ticker the
// store has no data for in the configured range.
func fetchMissingCandles(
	ctx context.Context,
	logger zerolog.Logger,
	cfg *config.Config,
	candleStore storage.CandleStore,
	startMs, endMs int64,
) error {
	var opts []delta.ClientOption
	if cfg.Exchange.BaseURL != "" {
		opts = append(opts, delta.WithBaseURL(cfg.Exchange.BaseURL))
	}
	client := delta.NewClient(opts...)

	for _, ticker := range cfg.Backtest.Tickers {
		existing, err := candleStore.GetByTimeRange(ctx, ticker, cfg.Backtest.Timeframe, startMs, endMs)
		if err != nil {
			return fmt.Errorf("check stored candles for %s: %w", ticker, err)
		}
		if len(existing) > 0 {
			logger.Debug().Str("ticker", ticker).Int("candles", len(existing)).Msg("using stored candles")
			continue
		}

		logger.Info().Str("ticker", ticker).Msg("fetching candle history")
		candles, err := client.FetchHistory(ctx, ticker, cfg.Backtest.Timeframe, startMs/1000, endMs/1000)
		if err != nil {
			return fmt.Errorf("fetch history for %s: %w", ticker, err)
		}
		if len(candles) == 0 {
			logger.Warn().Str("ticker", ticker).Msg("exchange returned no candles")
			continue
		}

		ptrs := make([]*domain.Candle, len(candles))
		for i := range candles {
			ptrs[i] = &candles[i]
		}
		if err := candleStore.InsertBulk(ctx, ptrs); err != nil {
			return fmt.Errorf("store candles for %s: %w", ticker, err)
		}

		logger.Info().Str("ticker", ticker).Int("candles", len(candles)).Msg("candle history stored")
	}

	return nil
}

// writeReports writes the markdown and CSV artifacts for one run.
func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	base := fmt.Sprintf("%s_%s", report.Ticker, report.StrategyID)

	files := map[string]string{
		base + ".md":          reporting.RenderMarkdown(report),
		base + "_trades.csv":  reporting.RenderTradesCSV(report.Ticker, report.StrategyID, report.Trades),
		base + "_history.csv": reporting.RenderHistoryCSV(report.History),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}

	return nil
}
