package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/config"
	"github.com/walletwire/walletwire/internal/handlers"
	"github.com/walletwire/walletwire/internal/relay"
	"github.com/walletwire/walletwire/internal/transport/ws"
)

type wireFrame struct {
	Type     string          `json:"type"`
	Identity string          `json:"identity,omitempty"`
	To       string          `json:"to,omitempty"`
	From     string          `json:"from,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	State    string          `json:"state,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func newTestServer(t *testing.T) (*httptest.Server, *relay.Relay) {
	t.Helper()
	rly := relay.New(zerolog.Nop(), relay.Config{})
	wsHandler := ws.NewHandler(zerolog.Nop(), rly, ws.DefaultConfig())
	h := handlers.NewHandler(rly, nil, nil, nil)
	router := NewRouter(zerolog.Nop(), &config.Config{}, h, wsHandler, nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, rly
}

func dialWS(t *testing.T, srv *httptest.Server, identity string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			t.Fatalf("dial %s: %v (status %d)", wsURL, err, resp.StatusCode)
		}
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(wireFrame{Type: "register", Identity: identity}); err != nil {
		t.Fatalf("register %s: %v", identity, err)
	}
	return conn
}

func waitOnline(t *testing.T, rly *relay.Relay, identity string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !rly.IsOnline(identity) {
		if time.Now().After(deadline) {
			t.Fatalf("%s never came online", identity)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f wireFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// The upgrade must survive the full middleware chain; a wrapper that hides
// http.Hijacker turns every /ws request into a 500 before the relay is ever
// reached.
func TestRouterWebsocketUpgrade(t *testing.T) {
	srv, rly := newTestServer(t)

	alice := dialWS(t, srv, "alice")
	waitOnline(t, rly, "alice")
	_ = dialWS(t, srv, "bob")

	// Alice observing bob's join proves both registrations completed.
	f := readFrame(t, alice)
	if f.Type != "presence" || f.Identity != "bob" || f.State != "joined" {
		t.Fatalf("expected bob's joined event, got %+v", f)
	}
	if !rly.IsOnline("alice") || !rly.IsOnline("bob") {
		t.Fatal("both identities should be online after the handshake")
	}
}

func TestRouterWebsocketDelivery(t *testing.T) {
	srv, rly := newTestServer(t)

	alice := dialWS(t, srv, "alice")
	waitOnline(t, rly, "alice")
	bob := dialWS(t, srv, "bob")

	// Wait for bob's join before sending so the send path is the direct one.
	if f := readFrame(t, alice); f.Type != "presence" || f.Identity != "bob" {
		t.Fatalf("expected bob's joined event, got %+v", f)
	}

	if err := alice.WriteJSON(wireFrame{Type: "send", To: "bob", Payload: json.RawMessage(`"hello"`)}); err != nil {
		t.Fatal(err)
	}

	f := readFrame(t, bob)
	if f.Type != "message" || f.From != "alice" || string(f.Payload) != `"hello"` {
		t.Fatalf("expected alice's message, got %+v", f)
	}
}
