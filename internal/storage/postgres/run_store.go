package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, ticker, timeframe, strategy_id,
	start_ms, end_ms, initial_capital, commission_rate,
	final_capital, total_return_pct, max_drawdown_pct,
	sharpe_ratio, sortino_ratio, profit_factor, expectancy,
	buy_trades, completed_trades, win_rate_pct, created_at_ms
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.BacktestRun) error {
	query := `
		INSERT INTO backtest_runs (
			run_id, ticker, timeframe, strategy_id,
			start_ms, end_ms, initial_capital, commission_rate,
			final_capital, total_return_pct, max_drawdown_pct,
			sharpe_ratio, sortino_ratio, profit_factor, expectancy,
			buy_trades, completed_trades, win_rate_pct, created_at_ms
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Ticker, r.Timeframe, r.StrategyID,
		r.StartMs, r.EndMs, r.InitialCapital, r.CommissionRate,
		r.FinalCapital, r.TotalReturnPct, r.MaxDrawdownPct,
		r.SharpeRatio, r.SortinoRatio, r.ProfitFactor, r.Expectancy,
		r.BuyTrades, r.CompletedTrades, r.WinRatePct, r.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM backtest_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return r, nil
}

// GetByTicker retrieves all runs for a ticker, ordered by created_at ASC.
func (s *RunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM backtest_runs
		WHERE ticker = $1
		ORDER BY created_at_ms ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by ticker: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves all runs, ordered by created_at ASC.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM backtest_runs
		ORDER BY created_at_ms ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a BacktestRun.
func scanRun(row pgx.Row) (*domain.BacktestRun, error) {
	var r domain.BacktestRun

	err := row.Scan(
		&r.RunID, &r.Ticker, &r.Timeframe, &r.StrategyID,
		&r.StartMs, &r.EndMs, &r.InitialCapital, &r.CommissionRate,
		&r.FinalCapital, &r.TotalReturnPct, &r.MaxDrawdownPct,
		&r.SharpeRatio, &r.SortinoRatio, &r.ProfitFactor, &r.Expectancy,
		&r.BuyTrades, &r.CompletedTrades, &r.WinRatePct, &r.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanRuns scans multiple rows into a slice of BacktestRun.
func scanRuns(rows pgx.Rows) ([]*domain.BacktestRun, error) {
	var runs []*domain.BacktestRun

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return runs, nil
}
