// Package relay implements the wallet-addressed message relay: a registry of
// live connections, a bounded per-recipient buffer for offline recipients,
// and presence fan-out. Directed messages are delivered immediately when the
// recipient is online and buffered otherwise; on (re)registration the buffer
// is drained and replayed in order.
package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/crypto"
	"github.com/walletwire/walletwire/internal/metrics"
	"github.com/walletwire/walletwire/internal/models"
)

var (
	ErrIdentityRequired  = errors.New("identity is required")
	ErrRecipientRequired = errors.New("recipient is required")
	ErrPayloadRequired   = errors.New("payload is required")
	ErrNotRegistered     = errors.New("session is not registered")
)

// Config tunes the relay.
type Config struct {
	// InboxDepth bounds the per-recipient offline buffer.
	InboxDepth int

	// RequireSignedRegister demands proof of identity-key ownership on every
	// registration. Identities must then be base64 Ed25519 public keys.
	RequireSignedRegister bool

	// RegisterWindow is how far in the past a signed registration timestamp
	// may lie. Zero means 30s.
	RegisterWindow time.Duration
}

// RegisterRequest carries a registration event. Timestamp, Nonce and
// Signature are only consulted when signed registration is enabled.
type RegisterRequest struct {
	Identity  string
	Timestamp int64
	Nonce     string
	Signature string
}

// Stats is a point-in-time view of relay state.
type Stats struct {
	Online             int `json:"online"`
	BufferedMessages   int `json:"buffered_messages"`
	BufferedRecipients int `json:"buffered_recipients"`
}

// Relay is the core: it owns the registry and the store and is the only
// mutation path into either.
type Relay struct {
	log      zerolog.Logger
	cfg      Config
	registry *Registry
	store    *Store

	// lastTS keeps per-recipient timestamps monotonically non-decreasing.
	mu     sync.Mutex
	lastTS map[string]int64

	nonces *nonceCache

	sinkMu       sync.RWMutex
	presenceSink func(models.Presence)
}

// New creates a relay.
func New(logger zerolog.Logger, cfg Config) *Relay {
	if cfg.RegisterWindow <= 0 {
		cfg.RegisterWindow = 30 * time.Second
	}
	return &Relay{
		log:      logger.With().Str("component", "relay").Logger(),
		cfg:      cfg,
		registry: NewRegistry(),
		store:    NewStore(cfg.InboxDepth),
		lastTS:   make(map[string]int64),
		nonces:   newNonceCache(3 * time.Minute),
	}
}

// SetPresenceSink installs a best-effort mirror for presence events, used by
// the channel-broker adapter. Must be called before traffic starts.
func (r *Relay) SetPresenceSink(fn func(models.Presence)) {
	r.sinkMu.Lock()
	r.presenceSink = fn
	r.sinkMu.Unlock()
}

// Register establishes presence for an identity on the given handle,
// replacing any prior handle for the same identity, then drains and replays
// everything buffered for it. A genuinely new identity is announced to all
// other online sessions; a silent replace is not.
func (r *Relay) Register(req RegisterRequest, h Handle) error {
	if req.Identity == "" {
		return ErrIdentityRequired
	}
	if r.cfg.RequireSignedRegister {
		if err := r.verifyRegistration(req); err != nil {
			return err
		}
	}

	prev := r.registry.Register(req.Identity, h)
	metrics.ConnectionsOnline.Set(float64(r.registry.Len()))

	r.replay(req.Identity, h)

	if prev == nil {
		r.log.Info().Str("identity", req.Identity).Msg("identity joined")
		r.broadcast(models.Presence{Identity: req.Identity, State: models.PresenceJoined})
	} else {
		r.log.Debug().Str("identity", req.Identity).Msg("connection replaced")
	}
	return nil
}

// Send delivers payload to recipient if online, otherwise buffers it.
// Fire-and-forget: the sender gets no delivery confirmation, only ingress
// validation errors.
func (r *Relay) Send(from, to string, payload json.RawMessage) error {
	if from == "" {
		return ErrNotRegistered
	}
	if to == "" {
		return ErrRecipientRequired
	}
	if len(payload) == 0 {
		return ErrPayloadRequired
	}

	msg := models.Message{
		ID:        ulid.Make().String(),
		From:      from,
		To:        to,
		Payload:   payload,
		Timestamp: r.stamp(to),
	}

	if h, ok := r.registry.Lookup(to); ok {
		if err := h.DeliverMessage(msg); err != nil {
			metrics.DeliveryFailures.Inc()
			r.log.Warn().Str("to", to).Str("msg_id", msg.ID).Err(err).Msg("direct delivery failed, buffering")
			r.buffer(msg)
			return nil
		}
		metrics.MessagesDelivered.WithLabelValues("direct").Inc()
		return nil
	}

	r.buffer(msg)
	return nil
}

// Disconnect tears down the session for identity, but only if h is still the
// handle on record: a stale disconnect racing a fresher registration must not
// evict the new connection.
func (r *Relay) Disconnect(identity string, h Handle) {
	if identity == "" {
		return
	}
	if !r.registry.Unregister(identity, h) {
		r.log.Debug().Str("identity", identity).Msg("stale disconnect ignored")
		return
	}
	metrics.ConnectionsOnline.Set(float64(r.registry.Len()))
	r.log.Info().Str("identity", identity).Msg("identity left")
	r.broadcast(models.Presence{Identity: identity, State: models.PresenceLeft})
}

// Online returns all identities with a live connection.
func (r *Relay) Online() []string {
	return r.registry.Snapshot()
}

// IsOnline reports whether identity has a live connection.
func (r *Relay) IsOnline(identity string) bool {
	_, ok := r.registry.Lookup(identity)
	return ok
}

// Stats returns current relay counters.
func (r *Relay) Stats() Stats {
	msgs, recips := r.store.Totals()
	return Stats{
		Online:             r.registry.Len(),
		BufferedMessages:   msgs,
		BufferedRecipients: recips,
	}
}

// replay drains the store for identity and delivers every buffered message in
// order. On a delivery failure the undelivered tail goes back to the front of
// the store so nothing is lost and order is kept.
func (r *Relay) replay(identity string, h Handle) {
	pending := r.store.Drain(identity)
	for i, msg := range pending {
		if err := h.DeliverMessage(msg); err != nil {
			metrics.DeliveryFailures.Inc()
			r.store.Requeue(identity, pending[i:])
			r.log.Warn().
				Str("identity", identity).
				Int("requeued", len(pending)-i).
				Err(err).
				Msg("replay interrupted, tail requeued")
			return
		}
		metrics.MessagesDelivered.WithLabelValues("replay").Inc()
	}
}

func (r *Relay) buffer(msg models.Message) {
	dropped, overflowed := r.store.Enqueue(msg)
	metrics.MessagesBuffered.Inc()
	if overflowed {
		metrics.StoreOverflows.Inc()
		r.log.Warn().
			Str("recipient", msg.To).
			Str("dropped_id", dropped.ID).
			Msg("store overflow, oldest message dropped")
	}
}

// stamp assigns an ingress timestamp, clamped so timestamps never decrease
// for a given recipient.
func (r *Relay) stamp(recipient string) int64 {
	now := time.Now().UnixMilli()
	r.mu.Lock()
	defer r.mu.Unlock()
	if last := r.lastTS[recipient]; now < last {
		now = last
	}
	r.lastTS[recipient] = now
	return now
}

func (r *Relay) verifyRegistration(req RegisterRequest) error {
	pubkey, err := crypto.ParseIdentityKey(req.Identity)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	if req.Timestamp <= now-r.cfg.RegisterWindow.Milliseconds() || req.Timestamp > now {
		return crypto.ErrSignatureExpired
	}
	if len(req.Nonce) < 24 {
		return crypto.ErrInvalidNonce
	}
	if !r.nonces.mark(req.Identity + "|" + req.Nonce) {
		return crypto.ErrInvalidNonce
	}
	return crypto.VerifySignature(pubkey, crypto.RegisterPayload(req.Identity, req.Nonce, req.Timestamp), req.Signature)
}
