// Package metrics computes performance statistics over a finished portfolio
// history and trade log. Every function guards degenerate input (empty
// series, zero variance, zero denominators) and returns a defined neutral or
// sentinel value instead of failing.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"crypto-backtest-lab/internal/domain"
)

// Annualization defaults. Crypto markets trade every calendar day.
const (
	DefaultAnnualizationFactor = 365.0
	DefaultRiskFreeRate        = 0.0
)

// ReturnPoint is one bar of a return series, keyed by timestamp for
// alignment against the portfolio history.
type ReturnPoint struct {
	TimestampMs int64
	Return      float64
}

// Drawdowns returns the per-bar drawdown series (fraction of the running
// peak, <= 0 by construction) and the maximum drawdown in percent
// (min of the series * 100). Empty history yields (nil, 0).
func Drawdowns(history []domain.PortfolioRow) ([]float64, float64) {
	if len(history) == 0 {
		return nil, 0
	}

	drawdowns := make([]float64, len(history))
	peak := history[0].TotalValue
	minDD := 0.0

	for i, row := range history {
		if row.TotalValue > peak {
			peak = row.TotalValue
		}
		if peak != 0 {
			drawdowns[i] = (row.TotalValue - peak) / peak
		}
		if drawdowns[i] < minDD {
			minDD = drawdowns[i]
		}
	}

	return drawdowns, minDD * 100
}

// DailyReturns extracts the per-bar return series from the history.
func DailyReturns(history []domain.PortfolioRow) []float64 {
	if len(history) == 0 {
		return nil
	}
	returns := make([]float64, len(history))
	for i, row := range history {
		returns[i] = row.DailyReturn
	}
	return returns
}

// SharpeRatio computes the annualized Sharpe ratio of a return series.
// Returns 0 if there are fewer than 2 points or the standard deviation is 0.
func SharpeRatio(returns []float64, riskFreeRate, annualizationFactor float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sd := stat.StdDev(returns, nil)
	if sd == 0 {
		return 0
	}

	mean := stat.Mean(returns, nil)
	return (mean - riskFreeRate/annualizationFactor) / sd * math.Sqrt(annualizationFactor)
}

// SortinoRatio computes the annualized Sortino ratio: the mean excess return
// over the downside deviation, computed only across negative returns.
// Returns 0 if there are fewer than 2 downside observations or the downside
// deviation is 0.
func SortinoRatio(returns []float64, riskFreeRate, annualizationFactor float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}

	sd := stat.StdDev(downside, nil)
	if sd == 0 {
		return 0
	}

	mean := stat.Mean(returns, nil)
	return (mean - riskFreeRate/annualizationFactor) / sd * math.Sqrt(annualizationFactor)
}

// ProfitFactor is gross profit divided by absolute gross loss over completed
// (SELL) trades. With zero gross loss the factor is 0 when there is also no
// profit, +Inf otherwise.
func ProfitFactor(trades []domain.Trade) float64 {
	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range trades {
		if t.Side != domain.TradeSideSell {
			continue
		}
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else if t.PnL < 0 {
			grossLoss += t.PnL
		}
	}

	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}

	return math.Abs(grossProfit / grossLoss)
}

// Expectancy is the probability-weighted average PnL per completed trade:
// winRate*avgWin + lossRate*avgLoss, with avgLoss signed negative. Rates are
// taken against all completed trades, so break-even trades dilute both.
func Expectancy(trades []domain.Trade) float64 {
	var wins, losses []float64
	completed := 0
	for _, t := range trades {
		if t.Side != domain.TradeSideSell {
			continue
		}
		completed++
		if t.PnL > 0 {
			wins = append(wins, t.PnL)
		} else if t.PnL < 0 {
			losses = append(losses, t.PnL)
		}
	}
	if completed == 0 {
		return 0
	}

	winRate := float64(len(wins)) / float64(completed)
	lossRate := float64(len(losses)) / float64(completed)

	avgWin, avgLoss := 0.0, 0.0
	if len(wins) > 0 {
		avgWin = stat.Mean(wins, nil)
	}
	if len(losses) > 0 {
		avgLoss = stat.Mean(losses, nil)
	}

	return winRate*avgWin + lossRate*avgLoss
}

// CaptureRatios computes the up-market and down-market capture ratios in
// percent. Strategy and benchmark returns are aligned by common timestamp;
// bars missing from either side are dropped. For each subset (benchmark
// return > 0 or < 0) the ratio is the strategy's compounded return over the
// benchmark's. When the benchmark compounds to exactly 0 while the strategy
// does not, the ratio is +/-Inf signed by the strategy return; when both are
// 0 the ratio is 0.
func CaptureRatios(history []domain.PortfolioRow, bench []ReturnPoint) (up, down float64) {
	if len(history) == 0 || len(bench) == 0 {
		return 0, 0
	}

	benchByTs := make(map[int64]float64, len(bench))
	for _, b := range bench {
		benchByTs[b.TimestampMs] = b.Return
	}

	var upStrat, upBench, downStrat, downBench []float64
	for _, row := range history {
		b, ok := benchByTs[row.TimestampMs]
		if !ok {
			continue
		}
		switch {
		case b > 0:
			upStrat = append(upStrat, row.DailyReturn)
			upBench = append(upBench, b)
		case b < 0:
			downStrat = append(downStrat, row.DailyReturn)
			downBench = append(downBench, b)
		}
	}

	up = captureRatio(upStrat, upBench)
	down = captureRatio(downStrat, downBench)
	return up, down
}

// captureRatio compounds both return subsets and divides, in percent.
func captureRatio(strat, bench []float64) float64 {
	if len(bench) == 0 {
		return 0
	}

	stratCum := compound(strat)
	benchCum := compound(bench)

	if benchCum == 0 {
		if stratCum == 0 {
			return 0
		}
		return math.Inf(1) * sign(stratCum)
	}

	return stratCum / benchCum * 100
}

// compound returns the compounded total return of a series: prod(1+r) - 1.
func compound(returns []float64) float64 {
	cum := 1.0
	for _, r := range returns {
		cum *= 1 + r
	}
	return cum - 1
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// BenchmarkSeries builds the buy-and-hold equity curve for the given return
// stream: value[t] = initialCapital * prod_{i<=t}(1+r[i]).
func BenchmarkSeries(initialCapital float64, bench []ReturnPoint) []float64 {
	if len(bench) == 0 {
		return nil
	}
	values := make([]float64, len(bench))
	cum := initialCapital
	for i, b := range bench {
		cum *= 1 + b.Return
		values[i] = cum
	}
	return values
}

// ReturnsFromCandles derives a close-to-close return series from a candle
// sequence, with return 0 at the first bar and on zero previous closes.
func ReturnsFromCandles(candles []*domain.Candle) []ReturnPoint {
	if len(candles) == 0 {
		return nil
	}
	returns := make([]ReturnPoint, len(candles))
	for i, c := range candles {
		returns[i] = ReturnPoint{TimestampMs: c.TimestampMs}
		if i > 0 && candles[i-1].Close != 0 {
			returns[i].Return = c.Close/candles[i-1].Close - 1
		}
	}
	return returns
}
