package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// previewRows is how many trades/history rows the text report shows from
// each end of the series.
const previewRows = 5

// RenderText renders the report as a plain console summary.
func RenderText(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("--- Backtest Summary: %s / %s (%s) ---\n",
		r.Ticker, r.StrategyID, r.Timeframe))
	sb.WriteString(fmt.Sprintf("Initial Capital: $%.2f\n", r.Summary.InitialCapital))
	sb.WriteString(fmt.Sprintf("Final Capital: $%.2f\n", r.Summary.FinalCapital))
	sb.WriteString(fmt.Sprintf("Total PnL: $%.2f\n", r.Summary.TotalPnL))
	sb.WriteString(fmt.Sprintf("Total Returns: %.2f%%\n", r.Summary.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("Total Trades (Buy Signals): %d\n", r.Summary.BuyTrades))
	sb.WriteString(fmt.Sprintf("Total Completed Trades (Sell Signals): %d\n", r.Summary.CompletedTrades))
	sb.WriteString(fmt.Sprintf("Winning Trades: %d\n", r.Summary.WinningTrades))
	sb.WriteString(fmt.Sprintf("Losing Trades: %d\n", r.Summary.LosingTrades))
	sb.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", r.Summary.WinRatePct))
	sb.WriteString(fmt.Sprintf("Average PnL per Completed Trade: $%.2f\n", r.Summary.AvgPnLPerTrade))
	sb.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", r.Metrics.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("Sharpe Ratio: %.4f\n", r.Metrics.SharpeRatio))
	sb.WriteString(fmt.Sprintf("Sortino Ratio: %.4f\n", r.Metrics.SortinoRatio))
	sb.WriteString(fmt.Sprintf("Profit Factor: %s\n", formatRatio(r.Metrics.ProfitFactor)))
	sb.WriteString(fmt.Sprintf("Expectancy: $%.2f\n", r.Metrics.Expectancy))
	sb.WriteString(fmt.Sprintf("Up-Market Capture: %.2f%%\n", r.Metrics.UpMarketCapturePct))
	sb.WriteString(fmt.Sprintf("Down-Market Capture: %.2f%%\n", r.Metrics.DownMarketCapturePct))

	if len(r.Trades) == 0 {
		sb.WriteString("\nNo trades were executed during the backtest.\n")
		return sb.String()
	}

	head, tail := headTail(r.Trades, previewRows)
	sb.WriteString(fmt.Sprintf("\n--- Trades Executed (first %d) ---\n", len(head)))
	sb.WriteString("Timestamp            Side  Price        Units        Commission  PnL\n")
	for _, t := range head {
		sb.WriteString(fmt.Sprintf("%s  %-4s  %-11.4f  %-11.6f  %-10.4f  %.4f\n",
			formatMs(t.TimestampMs), t.Side, t.Price, t.Units, t.Commission, t.PnL))
	}
	if len(tail) > 0 {
		sb.WriteString(fmt.Sprintf("\n--- Trades Executed (last %d) ---\n", len(tail)))
		for _, t := range tail {
			sb.WriteString(fmt.Sprintf("%s  %-4s  %-11.4f  %-11.6f  %-10.4f  %.4f\n",
				formatMs(t.TimestampMs), t.Side, t.Price, t.Units, t.Commission, t.PnL))
		}
	}

	head2, tail2 := headTail(r.History, previewRows)
	sb.WriteString(fmt.Sprintf("\n--- Portfolio Value History (first %d) ---\n", len(head2)))
	sb.WriteString("Timestamp            Total        Cash         Holdings     Benchmark\n")
	for _, row := range head2 {
		sb.WriteString(fmt.Sprintf("%s  %-11.2f  %-11.2f  %-11.2f  %.2f\n",
			formatMs(row.TimestampMs), row.TotalValue, row.Cash, row.HoldingsValue, row.BenchmarkValue))
	}
	if len(tail2) > 0 {
		sb.WriteString(fmt.Sprintf("\n--- Portfolio Value History (last %d) ---\n", len(tail2)))
		for _, row := range tail2 {
			sb.WriteString(fmt.Sprintf("%s  %-11.2f  %-11.2f  %-11.2f  %.2f\n",
				formatMs(row.TimestampMs), row.TotalValue, row.Cash, row.HoldingsValue, row.BenchmarkValue))
		}
	}

	return sb.String()
}

// formatRatio renders a ratio that may be the +Inf "no losses" sentinel.
func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// formatMs renders a Unix-ms timestamp as UTC.
func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
