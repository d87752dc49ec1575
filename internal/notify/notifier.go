// Package notify delivers best-effort user notifications (resolution results,
// cancellation refunds). Delivery is fire-and-forget: a failed emit is logged
// and dropped, never retried, and never fails the triggering operation.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notification types emitted by the engine.
const (
	TypeMarketResolved  = "market_resolved"
	TypeMarketCancelled = "market_cancelled"
)

type Notification struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

type Notifier interface {
	Emit(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the service log. Always available; used
// when no webhook sink is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l *LogNotifier) Emit(_ context.Context, n Notification) {
	if l == nil || l.Logger == nil {
		return
	}
	l.Logger.Info("notification",
		zap.String("user_id", n.UserID),
		zap.String("market_id", n.MarketID),
		zap.String("type", n.Type),
		zap.String("message", n.Message),
	)
}

// WebhookNotifier POSTs notifications to an external sink.
type WebhookNotifier struct {
	URL    string
	HTTP   *http.Client
	Logger *zap.Logger
}

func (w *WebhookNotifier) Emit(ctx context.Context, n Notification) {
	if w == nil || strings.TrimSpace(w.URL) == "" {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.httpClient().Do(req)
	if err != nil {
		w.warn("notify webhook failed", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.warn("notify webhook rejected", fmt.Errorf("http %d", resp.StatusCode))
	}
}

func (w *WebhookNotifier) httpClient() *http.Client {
	if w.HTTP != nil {
		return w.HTTP
	}
	return http.DefaultClient
}

func (w *WebhookNotifier) warn(msg string, err error) {
	if w.Logger != nil {
		w.Logger.Warn(msg, zap.Error(err))
	}
}
