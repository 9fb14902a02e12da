// Package engine simulates order execution bar-by-bar against a signal
// series, producing a portfolio value history, a trade log, and summary
// statistics. The simulation is fully sequential: each bar's decision
// depends on the cash/position state left by the previous bar. One run owns
// its state exclusively; independent runs may execute concurrently.
package engine

import (
	"errors"

	"crypto-backtest-lab/internal/domain"
)

// minUnitsThreshold guards against dust positions: a buy sizing below this
// many units is skipped, no trade recorded, state unchanged.
const minUnitsThreshold = 1e-8

// Configuration errors, reported before any bar is processed.
var (
	ErrEmptyInput        = errors.New("engine: signal series is empty")
	ErrInvalidCapital    = errors.New("engine: initial capital must be positive")
	ErrInvalidCommission = errors.New("engine: commission rate must be in [0, 1)")
)

// Config holds the capital-allocation parameters of a simulation run.
type Config struct {
	InitialCapital float64 // starting cash, must be > 0
	CommissionRate float64 // fractional cost per trade notional, in [0, 1)
}

// DefaultConfig returns the conventional backtest configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10000.0,
		CommissionRate: 0.001,
	}
}

// Validate checks the configuration before a run starts.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return ErrInvalidCapital
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return ErrInvalidCommission
	}
	return nil
}

// Result holds the output of one simulation run. History and Trades are
// append-only during the run and read-only afterwards.
type Result struct {
	History []domain.PortfolioRow
	Trades  []domain.Trade
	Summary domain.Summary
}

// state is the portfolio state threaded through the per-bar fold.
// Invariant: at most one open position (unitsHeld == 0 means flat,
// unitsHeld > 0 means long). pendingEntry is the BUY trade that opened the
// current position; set on buy, cleared on sell.
type state struct {
	cash         float64
	unitsHeld    float64
	pendingEntry *domain.Trade
}

// Run executes the simulation over the ordered signal series. Signals must
// be strictly ascending by timestamp. The benchmark column of the history is
// a buy-and-hold of the same close series with the same initial capital.
//
// Configuration problems fail fast before the first bar. Per-bar numeric
// edge cases (dust-sized buy, buy while long, sell while flat, non-positive
// price) are absorbed: the action is skipped and the run continues.
func Run(signals []domain.SignalPoint, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, ErrEmptyInput
	}

	res := &Result{
		History: make([]domain.PortfolioRow, 0, len(signals)),
		Trades:  make([]domain.Trade, 0),
	}

	st := state{cash: cfg.InitialCapital}
	prevTotal := cfg.InitialCapital
	benchValue := cfg.InitialCapital
	prevClose := 0.0

	for i, sig := range signals {
		next, trade := step(st, sig, cfg.CommissionRate)
		st = next

		if trade != nil {
			res.Trades = append(res.Trades, *trade)
		}

		total := st.cash + st.unitsHeld*sig.Close

		dailyReturn := 0.0
		if i > 0 && prevTotal != 0 {
			dailyReturn = total/prevTotal - 1
		}

		if i > 0 && prevClose != 0 {
			benchValue *= 1 + (sig.Close/prevClose - 1)
		}

		res.History = append(res.History, domain.PortfolioRow{
			TimestampMs:    sig.TimestampMs,
			Close:          sig.Close,
			Cash:           st.cash,
			UnitsHeld:      st.unitsHeld,
			HoldingsValue:  st.unitsHeld * sig.Close,
			TotalValue:     total,
			DailyReturn:    dailyReturn,
			BenchmarkValue: benchValue,
		})

		prevTotal = total
		prevClose = sig.Close
	}

	res.Summary = summarize(cfg, res.History, res.Trades)
	return res, nil
}

// step is the pure per-bar transition: it applies one signal to the carried
// state and returns the new state plus the executed trade, if any.
// An open position at the last bar is left open; it is never force-closed.
func step(st state, sig domain.SignalPoint, rate float64) (state, *domain.Trade) {
	switch sig.Signal {
	case domain.SignalBuy:
		return executeBuy(st, sig, rate)
	case domain.SignalSell:
		return executeSell(st, sig, rate)
	default:
		return st, nil
	}
}

// executeBuy commits all available cash to a new position. Sizing accounts
// for the commission so the full cost never exceeds cash:
// units = cash / (close * (1 + rate)).
func executeBuy(st state, sig domain.SignalPoint, rate float64) (state, *domain.Trade) {
	if st.unitsHeld > 0 || st.cash <= 0 || sig.Close <= 0 {
		return st, nil
	}

	units := st.cash / (sig.Close * (1 + rate))
	if units < minUnitsThreshold {
		return st, nil
	}

	commission := units * sig.Close * rate
	trade := &domain.Trade{
		TimestampMs: sig.TimestampMs,
		Side:        domain.TradeSideBuy,
		Price:       sig.Close,
		Units:       units,
		Commission:  commission,
		PnL:         0,
	}

	st.cash -= units*sig.Close + commission
	st.unitsHeld += units
	st.pendingEntry = trade
	return st, trade
}

// executeSell closes the entire position. Realized PnL nets both legs'
// commissions against the entry recorded by pendingEntry.
func executeSell(st state, sig domain.SignalPoint, rate float64) (state, *domain.Trade) {
	if st.unitsHeld <= 0 || sig.Close <= 0 {
		return st, nil
	}

	gross := st.unitsHeld * sig.Close
	commission := gross * rate
	net := gross - commission

	pnl := net
	if st.pendingEntry != nil {
		pnl = net - (st.pendingEntry.Units*st.pendingEntry.Price + st.pendingEntry.Commission)
	}

	trade := &domain.Trade{
		TimestampMs: sig.TimestampMs,
		Side:        domain.TradeSideSell,
		Price:       sig.Close,
		Units:       st.unitsHeld,
		Commission:  commission,
		PnL:         pnl,
	}

	st.cash += net
	st.unitsHeld = 0
	st.pendingEntry = nil
	return st, trade
}

// summarize computes the whole-run statistics from the finished history and
// trade log.
func summarize(cfg Config, history []domain.PortfolioRow, trades []domain.Trade) domain.Summary {
	s := domain.Summary{
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   cfg.InitialCapital,
	}
	if len(history) > 0 {
		s.FinalCapital = history[len(history)-1].TotalValue
	}
	s.TotalPnL = s.FinalCapital - s.InitialCapital
	s.TotalReturnPct = s.TotalPnL / s.InitialCapital * 100

	realized := 0.0
	for _, t := range trades {
		switch t.Side {
		case domain.TradeSideBuy:
			s.BuyTrades++
		case domain.TradeSideSell:
			s.CompletedTrades++
			realized += t.PnL
			if t.PnL > 0 {
				s.WinningTrades++
			} else if t.PnL < 0 {
				s.LosingTrades++
			}
		}
	}

	if s.CompletedTrades > 0 {
		s.WinRatePct = float64(s.WinningTrades) / float64(s.CompletedTrades) * 100
		s.AvgPnLPerTrade = realized / float64(s.CompletedTrades)
	}

	return s
}
