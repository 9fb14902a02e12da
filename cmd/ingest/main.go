package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"crypto-backtest-lab/internal/config"
	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/exchange/delta"
	"crypto-backtest-lab/internal/observability"
	"crypto-backtest-lab/internal/storage"
	chstore "crypto-backtest-lab/internal/storage/clickhouse"
	"crypto-backtest-lab/internal/storage/memory"
	"crypto-backtest-lab/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to YAML configuration file")
	follow := flag.Bool("follow", false, "After backfilling, tail the live candle stream")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

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

	lvl, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info().Str("addr", *metricsAddr).Msg("starting metrics server")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

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

	// Create candle store
	var candleStore storage.CandleStore = memory.NewCandleStore()
	if cfg.Storage.Backend == "database" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("apply clickhouse migrations")
		}
		defer conn.Close()

		candleStore = chstore.NewCandleStore(conn)
	} else {
		logger.Warn().Msg("memory backend selected, ingested candles will not persist")
	}

	startMs, _ := cfg.StartMs()
	endMs, _ := cfg.EndMs()

	if err := backfill(ctx, logger, cfg, candleStore, startMs, endMs); err != nil {
		logger.Fatal().Err(err).Msg("backfill failed")
	}

	if *follow {
		if err := followStream(ctx, logger, cfg, candleStore); err != nil && ctx.Err() == nil {
			logger.Fatal().Err(err).Msg("stream failed")
		}
	}

	logger.Info().Msg("ingestion finished")
}

// backfill pages candle history for every configured ticker into the store.
func backfill(
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
		logger.Info().
			Str("ticker", ticker).
			Str("timeframe", cfg.Backtest.Timeframe).
			Msg("backfilling candles")

		candles, err := client.FetchHistory(ctx, ticker, cfg.Backtest.Timeframe, startMs/1000, endMs/1000)
		if err != nil {
			observability.RecordIngestError("fetch")
			return fmt.Errorf("fetch history for %s: %w", ticker, err)
		}
		observability.RecordCandlesFetched(ticker, len(candles))
		if len(candles) == 0 {
			logger.Warn().Str("ticker", ticker).Msg("exchange returned no candles")
			continue
		}

		ptrs := make([]*domain.Candle, len(candles))
		for i := range candles {
			ptrs[i] = &candles[i]
		}
		if err := candleStore.InsertBulk(ctx, ptrs); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Warn().Str("ticker", ticker).Msg("range already ingested, skipping")
				continue
			}
			observability.RecordIngestError("store")
			return fmt.Errorf("store candles for %s: %w", ticker, err)
		}
		observability.RecordCandlesStored(ticker, len(candles))

		logger.Info().Str("ticker", ticker).Int("candles", len(candles)).Msg("backfill stored")
	}

	return nil
}

// followStream tails the live candle stream until the context is cancelled.
func followStream(
	ctx context.Context,
	logger zerolog.Logger,
	cfg *config.Config,
	candleStore storage.CandleStore,
) error {
	endpoint := cfg.Exchange.StreamEndpoint
	if endpoint == "" {
		endpoint = delta.DefaultStreamEndpoint
	}

	stream, err := delta.NewCandleStream(ctx, endpoint, cfg.Backtest.Tickers, cfg.Backtest.Timeframe, nil)
	if err != nil {
		return fmt.Errorf("open candle stream: %w", err)
	}
	defer stream.Close()

	logger.Info().Str("endpoint", endpoint).Msg("following live candles")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case candle, ok := <-stream.Candles():
			if !ok {
				return nil
			}
			if err := candleStore.InsertBulk(ctx, []*domain.Candle{&candle}); err != nil {
				// Live candles repeat until the bar closes; duplicates are routine.
				if !errors.Is(err, storage.ErrDuplicateKey) {
					observability.RecordIngestError("stream")
					logger.Error().Err(err).Str("ticker", candle.Ticker).Msg("store live candle")
				}
				continue
			}
			observability.RecordLiveCandleStored(candle.Ticker)
			logger.Debug().
				Str("ticker", candle.Ticker).
				Int64("timestamp_ms", candle.TimestampMs).
				Float64("close", candle.Close).
				Msg("live candle stored")
		}
	}
}
