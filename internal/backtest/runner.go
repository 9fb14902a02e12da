package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/engine"
	"crypto-backtest-lab/internal/idhash"
	"crypto-backtest-lab/internal/metrics"
	"crypto-backtest-lab/internal/observability"
	"crypto-backtest-lab/internal/reporting"
	"crypto-backtest-lab/internal/storage"
	"crypto-backtest-lab/internal/strategy"
)

// ErrNoCandles is returned when the candle store has no data for the
// requested ticker, timeframe and range.
var ErrNoCandles = errors.New("backtest: no candles in the requested range")

// RunRequest describes one backtest: a ticker, a time window and a strategy.
type RunRequest struct {
	Ticker         string
	Timeframe      string
	StartMs        int64
	EndMs          int64
	Strategy       domain.StrategyConfig
	InitialCapital float64
	CommissionRate float64
}

// RunResult bundles the persisted run summary with the renderable report.
type RunResult struct {
	Run    *domain.BacktestRun
	Report *reporting.Report
}

// BatchItem is the outcome of one request within a batch. Err is set when
// the request failed; Result is set otherwise.
type BatchItem struct {
	Request RunRequest
	Result  *RunResult
	Err     error
}

// Runner loads candles, generates signals, simulates the portfolio and
// persists the run summary and trade log.
type Runner struct {
	candleStore storage.CandleStore
	tradeStore  storage.TradeRecordStore
	runStore    storage.RunStore
	log         zerolog.Logger
	now         func() time.Time // Injectable clock for deterministic output
}

// NewRunner creates a new Runner.
func NewRunner(
	candleStore storage.CandleStore,
	tradeStore storage.TradeRecordStore,
	runStore storage.RunStore,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		candleStore: candleStore,
		tradeStore:  tradeStore,
		runStore:    runStore,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes one backtest end to end and persists its results. The run ID
// is deterministic over (ticker, strategy, actual candle range), so repeating
// an identical run returns storage.ErrDuplicateKey.
func (r *Runner) Run(ctx context.Context, req RunRequest) (result *RunResult, err error) {
	started := time.Now()
	defer func() {
		status := "ok"
		trades := 0
		if err != nil {
			status = "error"
		} else {
			trades = len(result.Report.Trades)
		}
		observability.RecordRun(status, time.Since(started).Seconds(), trades)
	}()

	src, err := strategy.FromConfig(req.Strategy)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	stored, err := r.candleStore.GetByTimeRange(ctx, req.Ticker, req.Timeframe, req.StartMs, req.EndMs)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNoCandles
	}

	candles := make([]domain.Candle, len(stored))
	for i, c := range stored {
		candles[i] = *c
	}

	signals, err := src.GenerateSignals(candles)
	if err != nil {
		return nil, fmt.Errorf("generate signals: %w", err)
	}

	sim, err := engine.Run(signals, engine.Config{
		InitialCapital: req.InitialCapital,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		return nil, fmt.Errorf("run simulation: %w", err)
	}

	bench := metrics.ReturnsFromCandles(stored)
	metricsResult := metrics.Evaluate(sim.History, sim.Trades, bench)

	startMs := candles[0].TimestampMs
	endMs := candles[len(candles)-1].TimestampMs
	runID := idhash.ComputeRunID(req.Ticker, src.ID(), startMs, endMs)
	createdAt := r.now()

	run := &domain.BacktestRun{
		RunID:           runID,
		Ticker:          req.Ticker,
		Timeframe:       req.Timeframe,
		StrategyID:      src.ID(),
		StartMs:         startMs,
		EndMs:           endMs,
		InitialCapital:  req.InitialCapital,
		CommissionRate:  req.CommissionRate,
		FinalCapital:    sim.Summary.FinalCapital,
		TotalReturnPct:  sim.Summary.TotalReturnPct,
		MaxDrawdownPct:  metricsResult.MaxDrawdownPct,
		SharpeRatio:     metricsResult.SharpeRatio,
		SortinoRatio:    metricsResult.SortinoRatio,
		ProfitFactor:    metricsResult.ProfitFactor,
		Expectancy:      metricsResult.Expectancy,
		BuyTrades:       sim.Summary.BuyTrades,
		CompletedTrades: sim.Summary.CompletedTrades,
		WinRatePct:      sim.Summary.WinRatePct,
		CreatedAtMs:     createdAt.UnixMilli(),
	}

	if err := r.runStore.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	records := make([]*domain.TradeRecord, len(sim.Trades))
	for i, t := range sim.Trades {
		records[i] = &domain.TradeRecord{
			TradeID:     idhash.ComputeTradeID(runID, t.TimestampMs, string(t.Side)),
			RunID:       runID,
			Ticker:      req.Ticker,
			StrategyID:  src.ID(),
			TimestampMs: t.TimestampMs,
			Side:        string(t.Side),
			Price:       t.Price,
			Units:       t.Units,
			Commission:  t.Commission,
			PnL:         t.PnL,
		}
	}
	if len(records) > 0 {
		if err := r.tradeStore.InsertBulk(ctx, records); err != nil {
			return nil, fmt.Errorf("persist trades: %w", err)
		}
	}

	r.log.Info().
		Str("ticker", req.Ticker).
		Str("strategy", src.ID()).
		Str("run_id", runID).
		Float64("final_capital", sim.Summary.FinalCapital).
		Int("buy_trades", sim.Summary.BuyTrades).
		Int("completed_trades", sim.Summary.CompletedTrades).
		Msg("backtest run finished")

	report := &reporting.Report{
		GeneratedAt: createdAt,
		RunID:       runID,
		Ticker:      req.Ticker,
		Timeframe:   req.Timeframe,
		StrategyID:  src.ID(),
		StartMs:     startMs,
		EndMs:       endMs,
		Summary:     sim.Summary,
		Metrics:     metricsResult,
		Trades:      sim.Trades,
		History:     sim.History,
	}

	return &RunResult{Run: run, Report: report}, nil
}

// RunBatch executes each request in order. A failed request is logged and
// recorded in its BatchItem; the batch continues with the next request.
func (r *Runner) RunBatch(ctx context.Context, reqs []RunRequest) []BatchItem {
	items := make([]BatchItem, 0, len(reqs))

	for _, req := range reqs {
		result, err := r.Run(ctx, req)
		if err != nil {
			r.log.Error().
				Err(err).
				Str("ticker", req.Ticker).
				Str("strategy_type", req.Strategy.StrategyType).
				Msg("backtest run failed")
		}
		items = append(items, BatchItem{Request: req, Result: result, Err: err})
	}

	return items
}
