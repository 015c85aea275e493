// Package waclient talks to the messaging bridge that hosts the actual
// WhatsApp web clients. One websocket connection per pairing session.
package waclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/pairing"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

// Frame types exchanged with the bridge.
const (
	FrameQR            = "qr"
	FrameReady         = "ready"
	FrameAuthenticated = "authenticated"
	FrameDisconnected  = "disconnected"
	FrameDestroy       = "destroy"
)

// Frame is the JSON envelope used in both directions.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var ErrClosed = errors.New("bridge connection closed")

// Dialer opens bridge connections. It implements pairing.ClientFactory.
type Dialer struct {
	baseURL string
	dialer  websocket.Dialer
}

func NewDialer(baseURL string, handshakeTimeout time.Duration) *Dialer {
	return &Dialer{
		baseURL: baseURL,
		dialer: websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *Dialer) Open(ctx context.Context, sessionID, ownerID, accountID string, sink pairing.EventSink) (pairing.Client, error) {
	wsURL, err := d.clientURL(sessionID, ownerID, accountID)
	if err != nil {
		return nil, fmt.Errorf("build bridge url: %w", err)
	}

	ws, resp, err := d.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge dial failed: status=%d, err=%w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("bridge dial: %w", err)
	}

	c := &Conn{
		sessionID: sessionID,
		ws:        ws,
		sink:      sink,
		done:      make(chan struct{}),
	}
	go c.readLoop()

	log.Debug().Str("sessionId", sessionID).Msg("bridge client opened")
	return c, nil
}

func (d *Dialer) clientURL(sessionID, ownerID, accountID string) (string, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/clients"

	q := u.Query()
	q.Set("session", sessionID)
	q.Set("owner", ownerID)
	q.Set("account", accountID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Conn is one live bridge client. It implements pairing.Client.
type Conn struct {
	sessionID string
	ws        *websocket.Conn
	sink      pairing.EventSink

	writeMu sync.Mutex

	mu   sync.Mutex
	info *pairing.ClientInfo

	destroying atomic.Bool
	done       chan struct{}
}

func (c *Conn) Info() *pairing.ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info == nil {
		return nil
	}
	info := *c.info
	return &info
}

// Destroy asks the bridge to tear the client down and closes the connection.
// The socket is closed even when the destroy frame cannot be sent. Destroying
// a connection the bridge already dropped is a no-op.
//
// The read loop is not awaited: it may be inside a sink callback and exits
// on its own once that returns, without reporting a disconnect.
func (c *Conn) Destroy(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	if c.destroying.Swap(true) {
		return nil
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	sendErr := c.writeFrame(Frame{Type: FrameDestroy}, deadline)

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "destroy"), deadline)
	c.writeMu.Unlock()

	_ = c.ws.Close()

	if sendErr != nil {
		return fmt.Errorf("send destroy: %w", sendErr)
	}
	log.Debug().Str("sessionId", c.sessionID).Msg("bridge client destroyed")
	return nil
}

func (c *Conn) writeFrame(f Frame, deadline time.Time) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// readLoop delivers bridge events to the sink one at a time, in order. A
// dropped connection is reported as a disconnect unless Destroy caused it.
func (c *Conn) readLoop() {
	defer close(c.done)

	c.ws.SetReadLimit(maxFrameSize)
	reported := false

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !reported && !c.destroying.Load() {
				reason := "connection closed"
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("bridge connection lost")
					reason = "connection lost"
				}
				c.sink.HandleDisconnected(reason)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("skipping malformed bridge frame")
			continue
		}

		if c.dispatch(f) {
			reported = true
		}
	}
}

// dispatch reports whether the frame was a disconnect.
func (c *Conn) dispatch(f Frame) bool {
	switch f.Type {
	case FrameQR:
		var payload string
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("invalid qr frame")
			return false
		}
		c.sink.HandleQR(payload)
	case FrameReady:
		var info pairing.ClientInfo
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &info); err != nil {
				log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("invalid ready frame")
			}
		}
		c.mu.Lock()
		c.info = &info
		c.mu.Unlock()
	case FrameAuthenticated:
		c.sink.HandleAuthenticated()
	case FrameDisconnected:
		var reason string
		if len(f.Data) > 0 {
			_ = json.Unmarshal(f.Data, &reason)
		}
		c.sink.HandleDisconnected(reason)
		return true
	default:
		log.Debug().Str("sessionId", c.sessionID).Str("type", f.Type).Msg("ignoring bridge frame")
	}
	return false
}
