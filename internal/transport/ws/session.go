package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/models"
	"github.com/walletwire/walletwire/internal/relay"
)

var (
	// ErrSlowConsumer means the session's send buffer is full. The relay
	// treats this as a per-attempt delivery failure, never as a reason to
	// stall other identities.
	ErrSlowConsumer = errors.New("session send buffer full")

	ErrSessionClosed = errors.New("session closed")
)

// session is one websocket connection. It implements relay.Handle: deliveries
// go through a bounded channel drained by the writer goroutine, so Deliver*
// never blocks on the network.
type session struct {
	id    string
	log   zerolog.Logger
	relay *relay.Relay
	conn  *websocket.Conn
	cfg   Config

	send chan outboundFrame
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	identity string // set by the first register frame
}

func newSession(id string, logger zerolog.Logger, rly *relay.Relay, conn *websocket.Conn, cfg Config) *session {
	return &session{
		id:    id,
		log:   logger.With().Str("session", id).Logger(),
		relay: rly,
		conn:  conn,
		cfg:   cfg,
		send:  make(chan outboundFrame, cfg.SendBuffer),
		done:  make(chan struct{}),
	}
}

// DeliverMessage implements relay.Handle.
func (s *session) DeliverMessage(msg models.Message) error {
	return s.push(outboundFrame{
		Type:      frameMessage,
		From:      msg.From,
		Payload:   msg.Payload,
		Timestamp: msg.Timestamp,
	})
}

// DeliverPresence implements relay.Handle.
func (s *session) DeliverPresence(p models.Presence) error {
	return s.push(outboundFrame{
		Type:     framePresence,
		Identity: p.Identity,
		State:    string(p.State),
	})
}

// Close implements relay.Handle.
func (s *session) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.conn.Close()
}

func (s *session) push(f outboundFrame) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- f:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// run drives the session until the transport closes, then unregisters the
// identity (guarded, so a stale close cannot evict a fresher session).
func (s *session) run() {
	go s.writeLoop()
	s.readLoop()

	s.Close()
	if id := s.registeredIdentity(); id != "" {
		s.relay.Disconnect(id, s)
	}
}

func (s *session) registeredIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *session) readLoop() {
	s.conn.SetReadLimit(s.cfg.MaxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		var f inboundFrame
		if err := s.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		s.dispatch(f)
	}
}

// dispatch handles one inbound frame. Malformed frames are rejected with an
// error frame and never reach the registry or store; the session stays open
// so the client can correct itself.
func (s *session) dispatch(f inboundFrame) {
	switch f.Type {
	case frameRegister:
		req := relay.RegisterRequest{
			Identity:  f.Identity,
			Timestamp: f.Timestamp,
			Nonce:     f.Nonce,
			Signature: f.Signature,
		}
		prev := s.registeredIdentity()
		if err := s.relay.Register(req, s); err != nil {
			s.reject(err)
			return
		}
		// Re-registering under a new identity releases the old one,
		// otherwise it would stay in the registry bound to this session
		// until the process exits.
		if prev != "" && prev != f.Identity {
			s.relay.Disconnect(prev, s)
		}
		s.mu.Lock()
		s.identity = f.Identity
		s.mu.Unlock()

	case frameSend:
		if err := s.relay.Send(s.registeredIdentity(), f.To, f.Payload); err != nil {
			s.reject(err)
		}

	default:
		s.reject(errors.New("unknown frame type"))
	}
}

func (s *session) reject(err error) {
	// Best-effort: the session may be gone already.
	_ = s.push(outboundFrame{Type: frameError, Error: err.Error()})
}

func (s *session) writeLoop() {
	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case f := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteJSON(f); err != nil {
				s.log.Debug().Err(err).Msg("write failed")
				s.Close()
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}
