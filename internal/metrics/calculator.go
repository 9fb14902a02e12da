package metrics

import "crypto-backtest-lab/internal/domain"

// Evaluate bundles all performance statistics for a finished run. The
// history, trades, and benchmark series are read-only inputs; the engine has
// finished with them before this is called.
func Evaluate(history []domain.PortfolioRow, trades []domain.Trade, bench []ReturnPoint) domain.MetricsResult {
	drawdowns, maxDD := Drawdowns(history)
	returns := DailyReturns(history)
	up, down := CaptureRatios(history, bench)

	return domain.MetricsResult{
		Drawdowns:            drawdowns,
		MaxDrawdownPct:       maxDD,
		SharpeRatio:          SharpeRatio(returns, DefaultRiskFreeRate, DefaultAnnualizationFactor),
		SortinoRatio:         SortinoRatio(returns, DefaultRiskFreeRate, DefaultAnnualizationFactor),
		ProfitFactor:         ProfitFactor(trades),
		Expectancy:           Expectancy(trades),
		UpMarketCapturePct:   up,
		DownMarketCapturePct: down,
	}
}
