package solana

// logsSubscribe listener: the chain-subscription event source that runs next
// to the Helius webhook. Log notifications mentioning the launch program are
// converted to raw events and fed through the same ingestion pipeline, so
// dedup decides when both sources deliver the same token.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	logging "pumpwatch/internal/infra/log"
	"pumpwatch/internal/pipeline"
)

// ListenerConfig tunes connection behavior.
type ListenerConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultListenerConfig returns the defaults used in production.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// BatchProcessor matches the ingestion pipeline surface the listener feeds.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, events []pipeline.RawEvent) pipeline.Report
}

// Listener maintains a logsSubscribe subscription on the launch program.
type Listener struct {
	endpoint  string
	program   string
	config    ListenerConfig
	processor BatchProcessor
}

// NewListener creates a listener on endpoint (wss://...) watching program.
func NewListener(endpoint, program string, processor BatchProcessor, config *ListenerConfig) *Listener {
	cfg := DefaultListenerConfig()
	if config != nil {
		cfg = *config
	}
	return &Listener{
		endpoint:  endpoint,
		program:   program,
		config:    cfg,
		processor: processor,
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	Method string `json:"method"`
	Params *struct {
		Result struct {
			Value logValue `json:"value"`
		} `json:"result"`
	} `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type logValue struct {
	Signature string   `json:"signature"`
	Err       any      `json:"err"`
	Logs      []string `json:"logs"`
}

// Run connects and consumes notifications until ctx ends, reconnecting with
// exponential backoff on failure.
func (l *Listener) Run(ctx context.Context) {
	delay := l.config.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}

		err := l.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		logging.LogWarn("WebSocket session ended, reconnecting",
			zap.Error(err), zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > l.config.MaxReconnectDelay {
			delay = l.config.MaxReconnectDelay
		}
	}
}

// runOnce runs one connect-subscribe-read session.
func (l *Listener) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	sub := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{l.program}},
			map[string]string{"commitment": "confirmed"},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(l.config.WriteTimeout))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("logsSubscribe request: %w", err)
	}

	logging.LogSuccess("Chain subscription established",
		zap.String("program", l.program))

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go l.pingLoop(ctx, conn)

	for {
		conn.SetReadDeadline(time.Now().Add(l.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.LogDebug("Unparseable websocket message", zap.Error(err))
			continue
		}
		if msg.Error != nil {
			return fmt.Errorf("subscription error %d: %s", msg.Error.Code, msg.Error.Message)
		}
		if msg.Method != "logsNotification" || msg.Params == nil {
			continue
		}

		value := msg.Params.Result.Value
		if value.Err != nil {
			// Failed transaction, not a launch.
			continue
		}

		l.processor.ProcessBatch(ctx, []pipeline.RawEvent{{
			ProgramID: l.program,
			Signature: value.Signature,
		}})
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(l.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(l.config.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
