package memory

import (
	"context"
	"sort"
	"sync"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/storage"
)

// candleKey identifies a candle uniquely.
type candleKey struct {
	ticker      string
	timeframe   string
	timestampMs int64
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[candleKey]*domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[candleKey]*domain.Candle),
	}
}

// InsertBulk adds multiple candles. Fails entire batch on any duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[candleKey]struct{}, len(candles))

	// First pass: check for duplicates (existing + intra-batch)
	for _, c := range candles {
		if c == nil || c.Ticker == "" || c.Timeframe == "" {
			return storage.ErrInvalidInput
		}

		k := candleKey{c.Ticker, c.Timeframe, c.TimestampMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, c := range candles {
		copy := *c
		s.data[candleKey{c.Ticker, c.Timeframe, c.TimestampMs}] = &copy
	}

	return nil
}

// GetByTicker retrieves all candles for a ticker/timeframe, ordered by timestamp ASC.
func (s *CandleStore) GetByTicker(_ context.Context, ticker, timeframe string) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.Ticker == ticker && c.Timeframe == timeframe {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves candles for a ticker/timeframe within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(_ context.Context, ticker, timeframe string, start, end int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.Ticker == ticker && c.Timeframe == timeframe &&
			c.TimestampMs >= start && c.TimestampMs <= end {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
