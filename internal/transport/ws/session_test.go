package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/relay"
)

// newBareSession builds a session without a live websocket connection. Frame
// dispatch and delivery buffering never touch the conn, so they can be
// exercised directly.
func newBareSession(t *testing.T, rly *relay.Relay, buffer int) *session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SendBuffer = buffer
	return newSession("test-session", zerolog.Nop(), rly, nil, cfg)
}

func TestDispatchRegisterThenSend(t *testing.T) {
	rly := relay.New(zerolog.Nop(), relay.Config{})
	alice := newBareSession(t, rly, 8)
	bob := newBareSession(t, rly, 8)

	alice.dispatch(inboundFrame{Type: frameRegister, Identity: "alice"})
	bob.dispatch(inboundFrame{Type: frameRegister, Identity: "bob"})
	if alice.registeredIdentity() != "alice" || bob.registeredIdentity() != "bob" {
		t.Fatal("register should bind the session identity")
	}

	alice.dispatch(inboundFrame{Type: frameSend, To: "bob", Payload: json.RawMessage(`"hi"`)})

	select {
	case f := <-bob.send:
		if f.Type != frameMessage || f.From != "alice" || string(f.Payload) != `"hi"` {
			t.Fatalf("unexpected frame: %+v", f)
		}
	default:
		t.Fatal("bob's session buffer should hold the delivered message")
	}
}

func TestDispatchRejectsMalformedSend(t *testing.T) {
	rly := relay.New(zerolog.Nop(), relay.Config{})
	s := newBareSession(t, rly, 8)
	s.dispatch(inboundFrame{Type: frameRegister, Identity: "alice"})

	s.dispatch(inboundFrame{Type: frameSend, To: ""})

	select {
	case f := <-s.send:
		if f.Type != frameError {
			t.Fatalf("expected error frame, got %+v", f)
		}
	default:
		t.Fatal("expected an error frame for the malformed send")
	}

	if rly.Stats().BufferedMessages != 0 {
		t.Fatal("malformed send must not reach the store")
	}
}

func TestDispatchSendBeforeRegister(t *testing.T) {
	rly := relay.New(zerolog.Nop(), relay.Config{})
	s := newBareSession(t, rly, 8)

	s.dispatch(inboundFrame{Type: frameSend, To: "bob", Payload: json.RawMessage(`"x"`)})

	// Rejected with an error frame; the session stays open so the client can
	// register and retry.
	select {
	case f := <-s.send:
		if f.Type != frameError {
			t.Fatalf("expected error frame, got %+v", f)
		}
	default:
		t.Fatal("expected an error frame for the unregistered send")
	}
	if rly.Stats().BufferedMessages != 0 || rly.Stats().Online != 0 {
		t.Fatal("unregistered send must not mutate relay state")
	}

	s.dispatch(inboundFrame{Type: frameRegister, Identity: "alice"})
	if !rly.IsOnline("alice") {
		t.Fatal("session should still accept a register after a rejected send")
	}
}

func TestDispatchRejectedRegisterKeepsSessionOpen(t *testing.T) {
	rly := relay.New(zerolog.Nop(), relay.Config{})
	s := newBareSession(t, rly, 8)

	s.dispatch(inboundFrame{Type: frameRegister, Identity: ""})

	select {
	case f := <-s.send:
		if f.Type != frameError {
			t.Fatalf("expected error frame, got %+v", f)
		}
	default:
		t.Fatal("expected an error frame for the empty identity")
	}

	s.dispatch(inboundFrame{Type: frameRegister, Identity: "alice"})
	if !rly.IsOnline("alice") {
		t.Fatal("register retry after a rejected register should succeed")
	}
}

func TestReRegisterNewIdentityReleasesOld(t *testing.T) {
	rly := relay.New(zerolog.Nop(), relay.Config{})
	s := newBareSession(t, rly, 8)

	s.dispatch(inboundFrame{Type: frameRegister, Identity: "alice"})
	s.dispatch(inboundFrame{Type: frameRegister, Identity: "alice2"})

	if rly.IsOnline("alice") {
		t.Fatal("old identity must leave the registry when the session re-registers")
	}
	if !rly.IsOnline("alice2") {
		t.Fatal("new identity should be online")
	}
	if s.registeredIdentity() != "alice2" {
		t.Fatalf("session identity should follow the latest register, got %q", s.registeredIdentity())
	}

	// Teardown must release the latest identity, leaving nothing behind.
	rly.Disconnect(s.registeredIdentity(), s)
	if rly.Stats().Online != 0 {
		t.Fatalf("expected empty registry after disconnect, got %d online", rly.Stats().Online)
	}
}

func TestPushBackpressure(t *testing.T) {
	rly := relay.New(zerolog.Nop(), relay.Config{})
	s := newBareSession(t, rly, 1)

	if err := s.push(outboundFrame{Type: frameMessage}); err != nil {
		t.Fatal(err)
	}
	if err := s.push(outboundFrame{Type: frameMessage}); !errors.Is(err, ErrSlowConsumer) {
		t.Fatalf("expected ErrSlowConsumer on a full buffer, got %v", err)
	}

	s.once.Do(func() { close(s.done) })
	if err := s.push(outboundFrame{Type: frameMessage}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed after close, got %v", err)
	}
}
