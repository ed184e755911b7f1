package alertfeed

import (
	"context"
	"io"
	"strings"
	"time"

	"alert_bot/internal/pipeline"
	"alert_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Client consumes alerts from a websocket relay as a second intake next to
// the HTTP webhook. Relays forward either the raw alert line or a JSON
// frame with a "message" field.
type Client struct {
	url      string
	dialer   *websocket.Dialer
	pipeline *pipeline.Pipeline
}

func NewClient(url string, p *pipeline.Pipeline) *Client {
	return &Client{
		url:      url,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		pipeline: p,
	}
}

// Run reads the relay until the context is cancelled, reconnecting with a
// linear backoff on any failure.
func (c *Client) Run(ctx context.Context) {
	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			retry++
			logger.Error("alert feed dial failed (attempt %d): %v", retry, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(min(retry, 10)) * time.Second):
			}
			continue
		}
		retry = 0
		logger.Info("alert feed connected: %s", c.url)

		c.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	// done releases the watcher when the read loop exits on its own, so
	// reconnects do not pile up one watcher goroutine per dead connection.
	done := make(chan struct{})
	defer close(done)
	go watchClose(ctx, done, conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("alert feed read failed: %v", err)
			}
			return
		}

		raw := extractAlert(msg)
		if raw == "" {
			continue
		}
		outcome := c.pipeline.Process(ctx, raw)
		logger.Info("alert feed outcome for %s: %s", outcome.Symbol, outcome.Kind)
	}
}

// watchClose unblocks a pending ReadMessage by closing the connection when
// the context is cancelled. It exits quietly once the read loop is done.
func watchClose(ctx context.Context, done <-chan struct{}, conn io.Closer) {
	select {
	case <-ctx.Done():
		_ = conn.Close()
	case <-done:
	}
}

func extractAlert(msg []byte) string {
	raw := strings.TrimSpace(string(msg))
	if !strings.HasPrefix(raw, "{") {
		return raw
	}
	var frame struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return ""
	}
	return strings.TrimSpace(frame.Message)
}
