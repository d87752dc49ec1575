// Package stream fans live price updates out to websocket subscribers. Trade
// execution and resolution publish here after commit; slow subscribers are
// dropped rather than allowed to block a publish.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type PriceUpdate struct {
	MarketID     string    `json:"market_id"`
	YesPrice     float64   `json:"yes_price"`
	NoPrice      float64   `json:"no_price"`
	Volume       float64   `json:"volume,omitempty"`
	MarketStatus string    `json:"market_status,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan PriceUpdate]struct{}
	logger  *zap.Logger
	dropped uint64
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   map[string]map[chan PriceUpdate]struct{}{},
		logger: logger,
	}
}

// Publish delivers an update to every subscriber of the market. Non-blocking:
// a full subscriber buffer drops the update for that subscriber only.
func (h *Hub) Publish(update PriceUpdate) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[update.MarketID] {
		select {
		case ch <- update:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (h *Hub) subscribe(marketID string) chan PriceUpdate {
	ch := make(chan PriceUpdate, 16)
	h.mu.Lock()
	if h.subs[marketID] == nil {
		h.subs[marketID] = map[chan PriceUpdate]struct{}{}
	}
	h.subs[marketID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(marketID string, ch chan PriceUpdate) {
	h.mu.Lock()
	delete(h.subs[marketID], ch)
	if len(h.subs[marketID]) == 0 {
		delete(h.subs, marketID)
	}
	h.mu.Unlock()
}

// Serve upgrades the connection and streams updates for one market until the
// client disconnects or ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, marketID string) {
	if h == nil || conn == nil {
		return
	}
	ch := h.subscribe(marketID)
	defer h.unsubscribe(marketID, ch)

	// Drain client frames so pings are answered and closes are noticed.
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(readCtx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readCtx.Done():
			return
		case update := <-ch:
			writeCtx, writeCancel := context.WithTimeout(readCtx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, update)
			writeCancel()
			if err != nil {
				if h.logger != nil {
					h.logger.Debug("stream write failed", zap.String("market_id", marketID), zap.Error(err))
				}
				return
			}
		}
	}
}
