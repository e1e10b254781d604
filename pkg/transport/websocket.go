package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig configures the primary push-transport dialer.
type WebSocketConfig struct {
	// URL is the websocket endpoint, e.g. "wss://api.example.com/notifications/ws".
	URL              string        `env:"PUSH_WS_URL,required"`
	HandshakeTimeout time.Duration `env:"PUSH_WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	WriteTimeout     time.Duration `env:"PUSH_WS_WRITE_TIMEOUT" envDefault:"10s"`
}

// WebSocketDialer dials the push transport over a websocket. The upgrade
// either succeeds as a full-duplex connection or fails; there is no silent
// degradation to request-polling, which would break the latency assumptions
// of the rest of the engine.
type WebSocketDialer struct {
	cfg WebSocketConfig
}

// NewWebSocketDialer creates a dialer for the given endpoint configuration.
func NewWebSocketDialer(cfg WebSocketConfig) *WebSocketDialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &WebSocketDialer{cfg: cfg}
}

func (d *WebSocketDialer) Dial(ctx context.Context, credential string) (Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}

	ws, resp, err := dialer.DialContext(ctx, d.cfg.URL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, errors.Join(ErrDialFailed, err)
	}

	return &wsConn{
		ws:           ws,
		writeTimeout: d.cfg.WriteTimeout,
	}, nil
}

// wsConn frames every signal as one JSON text message: {"event": ..., "data": ...}.
type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) Send(ctx context.Context, name string, payload any) error {
	env := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: name, Data: payload}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	// Gorilla allows one concurrent writer; serialize sends here.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Receive(ctx context.Context) (Signal, error) {
	// ReadMessage has no context support; closing the conn from another
	// goroutine unblocks it. Watch the context to honor cancellation.
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return Signal{}, ctx.Err()
		}
		return Signal{}, err
	}

	var sig Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return Signal{}, errors.Join(ErrMalformedSignal, err)
	}
	return sig, nil
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
