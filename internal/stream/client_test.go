package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arbdeck/console/internal/errs"
	"github.com/arbdeck/console/internal/event"
	"github.com/arbdeck/console/internal/session"
)

// feedServer is a test websocket endpoint that records dial attempts and
// hands each accepted connection to handler.
func feedServer(t *testing.T, dials *int32, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			t.Error("Expected token query parameter on dial")
		}
		if dials != nil {
			atomic.AddInt32(dials, 1)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func urlFuncFor(server *httptest.Server) URLFunc {
	wsURL := strings.Replace(server.URL, "http://", "ws://", 1)
	return func(token string) (string, error) {
		return wsURL + "/ws?token=" + token, nil
	}
}

func waitState(t *testing.T, h *Handle, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Handle never reached state %v, stuck at %v", want, h.State())
}

func receiveEvent(t *testing.T, events <-chan event.Event) event.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return nil
	}
}

func TestOpenDeliversDecodedEvents(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	server := feedServer(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"ticker","coin":"BTC","spread_percent":0.015,`+
				`"best_buy":{"exchange":"binance","price":61000.12},`+
				`"best_sell":{"exchange":"kraken","price":61915.30}}`))
		<-hold
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, false)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	if handle.State() != StateOpen {
		t.Errorf("Expected state open after Open, got %v", handle.State())
	}

	ticker, ok := receiveEvent(t, events).(event.TickerSpread)
	if !ok {
		t.Fatal("Expected TickerSpread event")
	}
	if ticker.Coin != "BTC" || ticker.SpreadPercent != 0.015 {
		t.Errorf("Unexpected ticker: %+v", ticker)
	}
}

func TestMalformedFrameDroppedConnectionSurvives(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	server := feedServer(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"trade","coin":"ETH","buy":["a",1.0],"sell":["b",1.1],`+
				`"amount":2,"profit":0.2,"mode":"sandbox","status":"executed"}`))
		<-hold
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, false)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	// The malformed frame is dropped; the next valid frame still arrives.
	trade, ok := receiveEvent(t, events).(event.TradeExecution)
	if !ok {
		t.Fatal("Expected TradeExecution event after dropped frame")
	}
	if trade.Coin != "ETH" {
		t.Errorf("Unexpected trade: %+v", trade)
	}
	if handle.State() != StateOpen {
		t.Errorf("Connection should survive a malformed frame, state %v", handle.State())
	}
	if got := handle.DroppedFrames(); got != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", got)
	}
}

func TestUnknownTypePassesThrough(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	server := feedServer(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat","seq":1}`))
		<-hold
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, false)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	unknown, ok := receiveEvent(t, events).(event.Unknown)
	if !ok {
		t.Fatal("Expected Unknown event for unrecognized type")
	}
	if unknown.Type != "heartbeat" {
		t.Errorf("Expected type heartbeat, got %q", unknown.Type)
	}
	if handle.State() != StateOpen {
		t.Errorf("Session must stay open after unknown type, state %v", handle.State())
	}
}

func TestCredentialClearClosesStream(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	server := feedServer(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ticker","coin":"BTC"}`))
		<-hold
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, true)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	tokens.OnClear(handle.Close)

	// Already-buffered delivery is unaffected by a later logout.
	receiveEvent(t, events)

	tokens.Clear()
	waitState(t, handle, StateClosed)

	select {
	case ev := <-events:
		t.Errorf("Expected no events after logout, got %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNoReconnectAfterRevocation(t *testing.T) {
	var dials int32
	closeConn := make(chan struct{})
	server := feedServer(t, &dials, func(conn *websocket.Conn) {
		<-closeConn
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, true)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	// Revoke the credential, then drop the connection from the server side.
	tokens.Clear()
	close(closeConn)

	waitState(t, handle, StateClosed)
	if got := atomic.LoadInt32(&dials); got != 1 {
		t.Errorf("Expected no reconnect after revocation, saw %d dials", got)
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	var dials int32
	server := feedServer(t, &dials, func(conn *websocket.Conn) {
		// Drop every connection immediately.
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, true)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer handle.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&dials) >= 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Expected a reconnect attempt, saw %d dials", atomic.LoadInt32(&dials))
}

func TestCloseIsIdempotent(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)
	server := feedServer(t, nil, func(conn *websocket.Conn) {
		<-hold
	})

	tokens := session.NewStore()
	tokens.Set("abc")
	events := make(chan event.Event, 10)
	client := NewClient(urlFuncFor(server), tokens, events, false)

	handle, err := client.Open(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	handle.Close()
	handle.Close()

	if handle.State() != StateClosed {
		t.Errorf("Expected state closed, got %v", handle.State())
	}
}

func TestOpenWithoutCredential(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	tokens := session.NewStore()
	events := make(chan event.Event, 1)
	client := NewClient(urlFuncFor(server), tokens, events, false)

	_, err := client.Open(context.Background(), "")
	if !errors.Is(err, errs.ErrAuthRequired) {
		t.Fatalf("Expected ErrAuthRequired, got %v", err)
	}
}

func TestOpenDialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tokens := session.NewStore()
	events := make(chan event.Event, 1)
	client := NewClient(urlFuncFor(server), tokens, events, false)

	handle, err := client.Open(context.Background(), "abc")
	if err == nil {
		handle.Close()
		t.Fatal("Expected dial failure against non-websocket endpoint")
	}
}
