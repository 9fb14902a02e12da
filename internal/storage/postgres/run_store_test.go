package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

func testRun(runID string, createdAtMs int64) *domain.BacktestRun {
	return &domain.BacktestRun{
		RunID:           runID,
		Ticker:          "BTCUSD",
		Timeframe:       domain.Timeframe1Day,
		StrategyID:      "MA_CROSSOVER_10_50",
		StartMs:         1_700_000_000_000,
		EndMs:           1_710_000_000_000,
		InitialCapital:  10000,
		CommissionRate:  0.001,
		FinalCapital:    11500,
		TotalReturnPct:  15.0,
		MaxDrawdownPct:  -8.2,
		SharpeRatio:     1.3,
		SortinoRatio:    1.9,
		ProfitFactor:    2.1,
		Expectancy:      42.5,
		BuyTrades:       12,
		CompletedTrades: 11,
		WinRatePct:      63.6,
		CreatedAtMs:     createdAtMs,
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := testRun("run-1", 1000)
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRunStore_Insert_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := testRun("run-1", 1000)
	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetByTicker(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	r1 := testRun("run-1", 2000)
	r2 := testRun("run-2", 1000)
	r3 := testRun("run-3", 1500)
	r3.Ticker = "ETHUSD"

	for _, r := range []*domain.BacktestRun{r1, r2, r3} {
		require.NoError(t, store.Insert(ctx, r))
	}

	// Ordered by created_at ASC
	got, err := store.GetByTicker(ctx, "BTCUSD")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-2", got[0].RunID)
	assert.Equal(t, "run-1", got[1].RunID)

	got, err = store.GetByTicker(ctx, "SOLUSD")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunStore_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	r1 := testRun("run-1", 2000)
	r2 := testRun("run-2", 1000)
	r2.Ticker = "ETHUSD"

	require.NoError(t, store.Insert(ctx, r1))
	require.NoError(t, store.Insert(ctx, r2))

	got, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-2", got[0].RunID)
	assert.Equal(t, "run-1", got[1].RunID)
}
