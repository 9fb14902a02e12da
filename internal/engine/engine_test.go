package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"crypto-backtest-lab/internal/domain"
)

const tolerance = 1e-9

func signalSeries(closes []float64, sigs []domain.Signal) []domain.SignalPoint {
	points := make([]domain.SignalPoint, len(closes))
	for i := range closes {
		points[i] = domain.SignalPoint{
			TimestampMs: int64(i+1) * 3600_000,
			Close:       closes[i],
			Signal:      sigs[i],
		}
	}
	return points
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestRun_EmptyInput(t *testing.T) {
	_, err := Run(nil, DefaultConfig())
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestRun_InvalidCapital(t *testing.T) {
	sigs := signalSeries([]float64{100}, []domain.Signal{domain.SignalHold})

	for _, capital := range []float64{0, -100} {
		_, err := Run(sigs, Config{InitialCapital: capital, CommissionRate: 0.001})
		if !errors.Is(err, ErrInvalidCapital) {
			t.Errorf("capital %v: expected ErrInvalidCapital, got %v", capital, err)
		}
	}
}

func TestRun_InvalidCommission(t *testing.T) {
	sigs := signalSeries([]float64{100}, []domain.Signal{domain.SignalHold})

	for _, rate := range []float64{-0.01, 1.0, 1.5} {
		_, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: rate})
		if !errors.Is(err, ErrInvalidCommission) {
			t.Errorf("rate %v: expected ErrInvalidCommission, got %v", rate, err)
		}
	}
}

func TestRun_FlatBuyAndHold(t *testing.T) {
	// Buy on the first bar with zero commission, then hold. The position
	// stays open past the last bar, contributing mark-to-market value only.
	sigs := signalSeries(
		[]float64{100, 110, 121},
		[]domain.Signal{domain.SignalBuy, domain.SignalHold, domain.SignalHold},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("expected exactly 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].Side != domain.TradeSideBuy {
		t.Errorf("expected BUY trade, got %s", res.Trades[0].Side)
	}
	if !almostEqual(res.History[0].UnitsHeld, 10) {
		t.Errorf("expected 10 units after first bar, got %v", res.History[0].UnitsHeld)
	}
	if !almostEqual(res.History[2].TotalValue, 1210) {
		t.Errorf("expected total value 1210 at last bar, got %v", res.History[2].TotalValue)
	}
	if res.Summary.BuyTrades != 1 || res.Summary.CompletedTrades != 0 {
		t.Errorf("expected 1 buy / 0 completed, got %d / %d",
			res.Summary.BuyTrades, res.Summary.CompletedTrades)
	}
}

func TestRun_RoundTripWithCommission(t *testing.T) {
	// All-in sizing folds the commission into the cost, so the entry leg
	// always costs exactly the available cash.
	sigs := signalSeries(
		[]float64{100, 120},
		[]domain.Signal{domain.SignalBuy, domain.SignalSell},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0.01})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(res.Trades))
	}

	buy, sell := res.Trades[0], res.Trades[1]
	wantUnits := 1000.0 / (100.0 * 1.01)
	if !almostEqual(buy.Units, wantUnits) {
		t.Errorf("expected %v units bought, got %v", wantUnits, buy.Units)
	}
	if !almostEqual(buy.Units*buy.Price+buy.Commission, 1000) {
		t.Errorf("entry leg should cost exactly the initial cash, cost %v",
			buy.Units*buy.Price+buy.Commission)
	}

	wantPnL := wantUnits*120*0.99 - 1000
	if !almostEqual(sell.PnL, wantPnL) {
		t.Errorf("expected sell PnL %v, got %v", wantPnL, sell.PnL)
	}
	if buy.PnL != 0 {
		t.Errorf("buy PnL must be 0, got %v", buy.PnL)
	}

	// After a full round trip the portfolio is all cash again.
	last := res.History[len(res.History)-1]
	if last.UnitsHeld != 0 {
		t.Errorf("expected flat after sell, units %v", last.UnitsHeld)
	}
	if !almostEqual(last.TotalValue, 1000+wantPnL) {
		t.Errorf("expected total %v, got %v", 1000+wantPnL, last.TotalValue)
	}
}

func TestRun_PnLIdentity(t *testing.T) {
	sigs := signalSeries(
		[]float64{50, 60, 55, 40, 45, 70},
		[]domain.Signal{
			domain.SignalBuy, domain.SignalSell,
			domain.SignalBuy, domain.SignalSell,
			domain.SignalBuy, domain.SignalSell,
		},
	)

	res, err := Run(sigs, Config{InitialCapital: 2500, CommissionRate: 0.002})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var lastBuy *domain.Trade
	for i := range res.Trades {
		tr := &res.Trades[i]
		if tr.Side == domain.TradeSideBuy {
			lastBuy = tr
			continue
		}
		if lastBuy == nil {
			t.Fatal("sell without preceding buy")
		}
		want := (tr.Units*tr.Price - tr.Commission) - (lastBuy.Units*lastBuy.Price + lastBuy.Commission)
		if !almostEqual(tr.PnL, want) {
			t.Errorf("sell at %d: PnL %v, want %v", tr.TimestampMs, tr.PnL, want)
		}
		lastBuy = nil
	}
}

func TestRun_Conservation(t *testing.T) {
	sigs := signalSeries(
		[]float64{100, 105, 95, 110, 108, 90, 120},
		[]domain.Signal{
			domain.SignalBuy, domain.SignalHold, domain.SignalSell,
			domain.SignalBuy, domain.SignalHold, domain.SignalSell,
			domain.SignalBuy,
		},
	)

	res, err := Run(sigs, Config{InitialCapital: 10000, CommissionRate: 0.001})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, row := range res.History {
		if row.TotalValue != row.Cash+row.UnitsHeld*row.Close {
			t.Errorf("row %d: total %v != cash %v + units*close %v",
				i, row.TotalValue, row.Cash, row.UnitsHeld*row.Close)
		}
	}
}

func TestRun_TradePairing(t *testing.T) {
	// Redundant signals (buy while long, sell while flat) must not execute.
	sigs := signalSeries(
		[]float64{100, 101, 102, 103, 104, 105},
		[]domain.Signal{
			domain.SignalSell, // flat: ignored
			domain.SignalBuy,
			domain.SignalBuy, // long: ignored
			domain.SignalSell,
			domain.SignalSell, // flat: ignored
			domain.SignalBuy,  // open at end
		},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0.001})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	buys, sells := 0, 0
	for _, tr := range res.Trades {
		if tr.Side == domain.TradeSideBuy {
			buys++
		} else {
			sells++
		}
	}
	if buys != 2 || sells != 1 {
		t.Errorf("expected 2 buys / 1 sell, got %d / %d", buys, sells)
	}
	if sells > buys {
		t.Error("sell count must never exceed buy count")
	}
	if res.History[len(res.History)-1].UnitsHeld <= 0 {
		t.Error("expected open position at end of run")
	}
}

func TestRun_DustGuard(t *testing.T) {
	// Capital too small to buy even the minimum fractional unit.
	sigs := signalSeries(
		[]float64{100, 100},
		[]domain.Signal{domain.SignalBuy, domain.SignalHold},
	)

	res, err := Run(sigs, Config{InitialCapital: 1e-7, CommissionRate: 0.001})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(res.Trades))
	}
	if res.History[0].Cash != 1e-7 || res.History[0].UnitsHeld != 0 {
		t.Errorf("state must be unchanged, cash %v units %v",
			res.History[0].Cash, res.History[0].UnitsHeld)
	}
}

func TestRun_ZeroPriceSkipsAction(t *testing.T) {
	sigs := signalSeries(
		[]float64{0, 100, 0, 110},
		[]domain.Signal{domain.SignalBuy, domain.SignalBuy, domain.SignalSell, domain.SignalSell},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0.001})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Bar 0 buy and bar 2 sell are skipped on the zero price.
	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(res.Trades))
	}
	if res.Trades[0].Price != 100 || res.Trades[1].Price != 110 {
		t.Errorf("trades executed at wrong prices: %v, %v",
			res.Trades[0].Price, res.Trades[1].Price)
	}
}

func TestRun_BenchmarkColumn(t *testing.T) {
	sigs := signalSeries(
		[]float64{100, 110, 99},
		[]domain.Signal{domain.SignalHold, domain.SignalHold, domain.SignalHold},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []float64{1000, 1100, 990}
	for i, row := range res.History {
		if !almostEqual(row.BenchmarkValue, want[i]) {
			t.Errorf("bar %d: benchmark %v, want %v", i, row.BenchmarkValue, want[i])
		}
	}
}

func TestRun_DailyReturns(t *testing.T) {
	sigs := signalSeries(
		[]float64{100, 110, 121},
		[]domain.Signal{domain.SignalBuy, domain.SignalHold, domain.SignalHold},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.History[0].DailyReturn != 0 {
		t.Errorf("first bar return must be 0, got %v", res.History[0].DailyReturn)
	}
	if !almostEqual(res.History[1].DailyReturn, 0.10) {
		t.Errorf("expected 0.10, got %v", res.History[1].DailyReturn)
	}
	if !almostEqual(res.History[2].DailyReturn, 0.10) {
		t.Errorf("expected 0.10, got %v", res.History[2].DailyReturn)
	}
}

func TestRun_Deterministic(t *testing.T) {
	sigs := signalSeries(
		[]float64{100, 105, 95, 110, 108, 90},
		[]domain.Signal{
			domain.SignalBuy, domain.SignalHold, domain.SignalSell,
			domain.SignalBuy, domain.SignalSell, domain.SignalBuy,
		},
	)
	cfg := Config{InitialCapital: 10000, CommissionRate: 0.001}

	first, err := Run(sigs, cfg)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := Run(sigs, cfg)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.History, second.History) {
		t.Error("histories differ between identical runs")
	}
	if !reflect.DeepEqual(first.Trades, second.Trades) {
		t.Error("trade logs differ between identical runs")
	}
	if first.Summary != second.Summary {
		t.Error("summaries differ between identical runs")
	}
}

func TestRun_Summary(t *testing.T) {
	sigs := signalSeries(
		[]float64{100, 120, 100, 90},
		[]domain.Signal{
			domain.SignalBuy, domain.SignalSell,
			domain.SignalBuy, domain.SignalSell,
		},
	)

	res, err := Run(sigs, Config{InitialCapital: 1000, CommissionRate: 0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s := res.Summary
	if s.BuyTrades != 2 || s.CompletedTrades != 2 {
		t.Fatalf("expected 2 buys / 2 completed, got %d / %d", s.BuyTrades, s.CompletedTrades)
	}
	if s.WinningTrades != 1 || s.LosingTrades != 1 {
		t.Errorf("expected 1 win / 1 loss, got %d / %d", s.WinningTrades, s.LosingTrades)
	}
	if !almostEqual(s.WinRatePct, 50) {
		t.Errorf("expected win rate 50%%, got %v", s.WinRatePct)
	}
	if !almostEqual(s.FinalCapital, s.InitialCapital+s.TotalPnL) {
		t.Errorf("final capital %v inconsistent with PnL %v", s.FinalCapital, s.TotalPnL)
	}
	// 1000 -> 1200 (win +200), 1200 -> 1080 (loss -120), realized avg 40.
	if !almostEqual(s.AvgPnLPerTrade, 40) {
		t.Errorf("expected avg PnL 40, got %v", s.AvgPnLPerTrade)
	}
}
