// Package stream maintains the live event feed connection to the backend.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arbdeck/console/internal/errs"
	"github.com/arbdeck/console/internal/event"
	"github.com/arbdeck/console/internal/session"
)

// Reconnection and timeout constants.
const (
	InitialBackoff   = 1 * time.Second
	MaxBackoff       = 60 * time.Second
	BackoffFactor    = 2.0
	JitterPercent    = 0.2
	HandshakeTimeout = 10 * time.Second
)

// State is the connection lifecycle state of a stream handle.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// URLFunc derives the feed URL (with the token as a query parameter) from a
// credential.
type URLFunc func(token string) (string, error)

// Client opens stream handles. Reconnect, when enabled, retries with bounded
// exponential backoff after an unexpected drop, but never once the credential
// held by the handle is no longer the session's current one.
type Client struct {
	urlFor    URLFunc
	tokens    *session.Store
	events    chan<- event.Event
	reconnect bool
}

// NewClient creates a stream client delivering decoded events to events.
// Delivery preserves reception order; the channel is never closed by the
// stream layer.
func NewClient(urlFor URLFunc, tokens *session.Store, events chan<- event.Event, reconnect bool) *Client {
	return &Client{
		urlFor:    urlFor,
		tokens:    tokens,
		events:    events,
		reconnect: reconnect,
	}
}

// Handle is one live feed session. Close is the single required teardown
// call and is safe to invoke from any goroutine, more than once.
type Handle struct {
	c     *Client
	token string

	conn   *websocket.Conn
	connMu sync.Mutex

	state     atomic.Int32
	dropped   atomic.Int64
	backoff   time.Duration
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open dials the feed with the given credential. It returns once the
// connection is established; the returned handle delivers events until the
// transport fails, the credential is revoked, or Close is called.
func (c *Client) Open(ctx context.Context, token string) (*Handle, error) {
	if token == "" {
		return nil, errs.ErrAuthRequired
	}

	h := &Handle{
		c:        c,
		token:    token,
		backoff:  InitialBackoff,
		stopChan: make(chan struct{}),
	}

	h.state.Store(int32(StateConnecting))
	if err := h.connect(ctx); err != nil {
		h.state.Store(int32(StateClosed))
		return nil, err
	}
	h.state.Store(int32(StateOpen))

	h.wg.Add(1)
	go h.runLoop(ctx)

	return h, nil
}

// State reports the handle's lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// DroppedFrames reports how many malformed frames the handle has dropped.
func (h *Handle) DroppedFrames() int64 {
	return h.dropped.Load()
}

// Close tears down the connection and stops event delivery. Already-delivered
// events are unaffected.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		close(h.stopChan)
		h.closeConnection()
	})
	h.wg.Wait()
	h.state.Store(int32(StateClosed))
}

// runLoop reads messages and, if enabled, reconnects after drops.
func (h *Handle) runLoop(ctx context.Context) {
	defer h.wg.Done()
	defer h.state.Store(int32(StateClosed))

	for {
		if err := h.readLoop(ctx); err != nil {
			slog.Warn("stream_read_error", "error", err)
		}
		h.closeConnection()

		select {
		case <-ctx.Done():
			slog.Info("stream_stopping", "reason", "context cancelled")
			return
		case <-h.stopChan:
			slog.Info("stream_stopping", "reason", "closed")
			return
		default:
		}

		if !h.c.reconnect {
			slog.Info("stream_stopping", "reason", "transport closed")
			return
		}
		if !h.credentialCurrent() {
			slog.Info("stream_stopping", "reason", "credential revoked")
			return
		}

		h.state.Store(int32(StateConnecting))
		h.waitBackoff(ctx)

		if !h.credentialCurrent() {
			slog.Info("stream_stopping", "reason", "credential revoked")
			return
		}

		if err := h.connect(ctx); err != nil {
			slog.Error("stream_reconnect_failed", "error", err, "backoff", h.backoff)
			continue
		}
		h.state.Store(int32(StateOpen))
	}
}

// connect dials the feed URL derived from the handle's credential.
func (h *Handle) connect(ctx context.Context) error {
	url, err := h.c.urlFor(h.token)
	if err != nil {
		return fmt.Errorf("derive stream URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
		}
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	h.connMu.Lock()
	h.conn = conn
	h.connMu.Unlock()

	h.backoff = InitialBackoff
	slog.Info("stream_connected")
	return nil
}

// readLoop reads frames until the connection fails or the handle stops.
func (h *Handle) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.stopChan:
			return nil
		default:
		}

		h.connMu.Lock()
		conn := h.conn
		h.connMu.Unlock()

		if conn == nil {
			return fmt.Errorf("connection is nil")
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-h.stopChan:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("%w: remote closed", errs.ErrTransportClosed)
			}
			return fmt.Errorf("%w: %v", errs.ErrTransportClosed, err)
		}

		h.handleFrame(message)
	}
}

// handleFrame decodes a frame and forwards the event. A malformed frame is
// logged and dropped; it never terminates the connection.
func (h *Handle) handleFrame(data []byte) {
	ev, err := event.Decode(data)
	if err != nil {
		h.dropped.Add(1)
		slog.Warn("stream_decode_failed", "error", errors.Join(errs.ErrDecodeFailed, err))
		return
	}

	select {
	case h.c.events <- ev:
	case <-h.stopChan:
	}
}

// credentialCurrent reports whether the handle's token is still the session's
// active credential.
func (h *Handle) credentialCurrent() bool {
	current, ok := h.c.tokens.Get()
	return ok && current == h.token
}

// closeConnection safely closes the websocket connection.
func (h *Handle) closeConnection() {
	h.connMu.Lock()
	defer h.connMu.Unlock()

	if h.conn != nil {
		h.conn.Close()
		h.conn = nil
		slog.Info("stream_disconnected")
	}
}

// waitBackoff waits for the backoff duration with jitter, then grows it.
func (h *Handle) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(h.backoff) * JitterPercent * (rand.Float64()*2 - 1))
	wait := h.backoff + jitter

	slog.Debug("stream_waiting_backoff", "duration", wait)

	select {
	case <-ctx.Done():
	case <-h.stopChan:
	case <-time.After(wait):
	}

	h.backoff = time.Duration(float64(h.backoff) * BackoffFactor)
	if h.backoff > MaxBackoff {
		h.backoff = MaxBackoff
	}
}
