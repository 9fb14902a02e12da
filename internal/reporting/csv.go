package reporting

import (
	"fmt"
	"strings"

	"crypto-backtest-lab/internal/domain"
)

// RenderTradesCSV renders a trade log as a CSV string.
func RenderTradesCSV(ticker, strategyID string, trades []domain.Trade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("ticker,strategy_id,timestamp_ms,side,price,units,commission,pnl\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%.6f,%.6f,%.6f,%.6f\n",
			ticker,
			strategyID,
			t.TimestampMs,
			t.Side,
			t.Price,
			t.Units,
			t.Commission,
			t.PnL,
		))
	}

	return sb.String()
}

// RenderHistoryCSV renders the portfolio history as a CSV string.
func RenderHistoryCSV(history []domain.PortfolioRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("timestamp_ms,close,cash,units_held,holdings_value,total_value,daily_return,benchmark_value\n")

	// Rows
	for _, row := range history {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.8f,%.6f\n",
			row.TimestampMs,
			row.Close,
			row.Cash,
			row.UnitsHeld,
			row.HoldingsValue,
			row.TotalValue,
			row.DailyReturn,
			row.BenchmarkValue,
		))
	}

	return sb.String()
}
