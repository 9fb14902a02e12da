package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"crypto-backtest-lab/internal/domain"
	"crypto-backtest-lab/internal/observability"
)

// DefaultStreamEndpoint is the public Delta Exchange websocket feed.
const DefaultStreamEndpoint = "wss://socket.india.delta.exchange"

// StreamConfig configures websocket stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// CandleStream delivers live candles for a set of tickers over the exchange
// websocket feed, reconnecting and resubscribing on connection loss.
type CandleStream struct {
	endpoint  string
	config    StreamConfig
	tickers   []string
	timeframe string

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	out  chan domain.Candle
	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewCandleStream connects and subscribes to the candlestick channel for the
// given tickers and timeframe.
func NewCandleStream(ctx context.Context, endpoint string, tickers []string, timeframe string, config *StreamConfig) (*CandleStream, error) {
	if _, err := timeframeToResolution(timeframe); err != nil {
		return nil, err
	}

	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &CandleStream{
		endpoint:  endpoint,
		config:    cfg,
		tickers:   tickers,
		timeframe: timeframe,
		out:       make(chan domain.Candle, 1024),
		done:      make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.conn.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Candles returns the channel of live candles. The channel closes when the
// stream is closed.
func (s *CandleStream) Candles() <-chan domain.Candle {
	return s.out
}

// Close closes the websocket connection and the candle channel.
func (s *CandleStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.out)
	return nil
}

// connect establishes the websocket connection.
func (s *CandleStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// subscribe sends the candlestick channel subscription.
func (s *CandleStream) subscribe() error {
	resolution, err := timeframeToResolution(s.timeframe)
	if err != nil {
		return err
	}

	req := wsSubscribeRequest{
		Type: "subscribe",
		Payload: wsSubscribePayload{
			Channels: []wsChannel{
				{
					Name:    "candlestick_" + resolution,
					Symbols: s.tickers,
				},
			},
		},
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads messages and dispatches candles.
func (s *CandleStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (s *CandleStream) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	observability.RecordWSReconnect()

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	s.subscribe()
}

// handleMessage parses a candlestick message and forwards it.
func (s *CandleStream) handleMessage(message []byte) {
	var msg wsCandleMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if !strings.HasPrefix(msg.Type, "candlestick_") {
		return
	}

	candle := domain.Candle{
		Ticker:    msg.Symbol,
		Timeframe: s.timeframe,
		// candle_start_time is reported in microseconds.
		TimestampMs: msg.CandleStartTime / 1000,
		Open:        msg.Open,
		High:        msg.High,
		Low:         msg.Low,
		Close:       msg.Close,
		Volume:      msg.Volume,
	}

	// Block until we can send - never drop candles
	select {
	case s.out <- candle:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (s *CandleStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// Websocket message types

type wsSubscribeRequest struct {
	Type    string             `json:"type"`
	Payload wsSubscribePayload `json:"payload"`
}

type wsSubscribePayload struct {
	Channels []wsChannel `json:"channels"`
}

type wsChannel struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

type wsCandleMessage struct {
	Type            string  `json:"type"`
	Symbol          string  `json:"symbol"`
	CandleStartTime int64   `json:"candle_start_time"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
}
