package reporting

import (
	"time"

	"crypto-backtest-lab/internal/domain"
)

// Report represents one finished backtest run, ready for rendering.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Ticker      string
	Timeframe   string
	StrategyID  string
	StartMs     int64
	EndMs       int64

	// Results
	Summary domain.Summary
	Metrics domain.MetricsResult
	Trades  []domain.Trade
	History []domain.PortfolioRow
}

// headTail returns the first and last n elements of a slice. When the slice
// has 2n elements or fewer the head holds everything and the tail is empty.
func headTail[T any](items []T, n int) (head, tail []T) {
	if len(items) <= 2*n {
		return items, nil
	}
	return items[:n], items[len(items)-n:]
}
