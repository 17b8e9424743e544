// Package ws binds the relay to websocket transports. Each accepted
// connection becomes a session whose handle delivers through a bounded send
// buffer, so one slow consumer can never stall the relay.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/crypto"
	"github.com/walletwire/walletwire/internal/relay"
)

// Config tunes the websocket transport.
type Config struct {
	SendBuffer   int
	MaxFrameSize int64
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:   32,
		MaxFrameSize: 16 * 1024,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongTimeout:  75 * time.Second,
	}
}

// Handler upgrades HTTP requests to relay sessions.
type Handler struct {
	log      zerolog.Logger
	relay    *relay.Relay
	cfg      Config
	upgrader websocket.Upgrader
}

// NewHandler creates the upgrade handler.
func NewHandler(logger zerolog.Logger, rly *relay.Relay, cfg Config) *Handler {
	if cfg.SendBuffer <= 0 {
		cfg = DefaultConfig()
	}
	return &Handler{
		log:   logger.With().Str("component", "ws").Logger(),
		relay: rly,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Identity is proven by registration, not by origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the session to completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	id := crypto.NewUUIDv7().String()
	s := newSession(id, h.log, h.relay, conn, h.cfg)
	h.log.Debug().Str("session", id).Str("remote", r.RemoteAddr).Msg("session opened")
	s.run()
	h.log.Debug().Str("session", id).Msg("session closed")
}
