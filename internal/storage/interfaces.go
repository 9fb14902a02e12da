package storage

import (
	"context"

	"crypto-backtest-lab/internal/domain"
)

// CandleStore provides access to candles storage.
type CandleStore interface {
	// InsertBulk adds multiple candles. Fails entire batch on duplicate
	// (ticker, timeframe, timestamp_ms).
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetByTicker retrieves all candles for a ticker/timeframe, ordered by timestamp ASC.
	GetByTicker(ctx context.Context, ticker, timeframe string) ([]*domain.Candle, error)

	// GetByTimeRange retrieves candles for a ticker/timeframe within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, ticker, timeframe string, start, end int64) ([]*domain.Candle, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByRunID retrieves all trades for a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error)

	// GetByTicker retrieves all trades for a ticker, ordered by timestamp ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.TradeRecord, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.BacktestRun, error)

	// GetAll retrieves all runs, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestRun, error)
}
