package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", r.Ticker))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategy: %s | Timeframe: %s | Run: %s\n\n",
		r.StrategyID, r.Timeframe, r.RunID))
	sb.WriteString(fmt.Sprintf("Period: %s to %s\n\n",
		formatMs(r.StartMs), formatMs(r.EndMs)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | $%.2f |\n", r.Summary.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital | $%.2f |\n", r.Summary.FinalCapital))
	sb.WriteString(fmt.Sprintf("| Total PnL | $%.2f |\n", r.Summary.TotalPnL))
	sb.WriteString(fmt.Sprintf("| Total Returns | %.2f%% |\n", r.Summary.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| Buy Trades | %d |\n", r.Summary.BuyTrades))
	sb.WriteString(fmt.Sprintf("| Completed Trades | %d |\n", r.Summary.CompletedTrades))
	sb.WriteString(fmt.Sprintf("| Winning Trades | %d |\n", r.Summary.WinningTrades))
	sb.WriteString(fmt.Sprintf("| Losing Trades | %d |\n", r.Summary.LosingTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", r.Summary.WinRatePct))
	sb.WriteString(fmt.Sprintf("| Avg PnL per Trade | $%.2f |\n", r.Summary.AvgPnLPerTrade))
	sb.WriteString("\n")

	// Risk metrics
	sb.WriteString("## Risk Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", r.Metrics.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", r.Metrics.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Sortino Ratio | %.4f |\n", r.Metrics.SortinoRatio))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatRatio(r.Metrics.ProfitFactor)))
	sb.WriteString(fmt.Sprintf("| Expectancy | $%.2f |\n", r.Metrics.Expectancy))
	sb.WriteString(fmt.Sprintf("| Up-Market Capture | %.2f%% |\n", r.Metrics.UpMarketCapturePct))
	sb.WriteString(fmt.Sprintf("| Down-Market Capture | %.2f%% |\n", r.Metrics.DownMarketCapturePct))
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Timestamp | Side | Price | Units | Commission | PnL |\n")
		sb.WriteString("|-----------|------|-------|-------|------------|-----|\n")
		for _, t := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.6f | %.4f | %.4f |\n",
				formatMs(t.TimestampMs), t.Side, t.Price, t.Units, t.Commission, t.PnL))
		}
	} else {
		sb.WriteString("No trades were executed.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
