// Package broker bridges the relay to a NATS channel broker. The broker is a
// plain unicast/broadcast substrate: offline buffering and replay stay with
// the relay, which is exactly the guarantee the broker itself does not give.
//
// Subjects:
//
//	relay.send            inbound directed sends from backend services
//	relay.attach          attach an identity; its events go to relay.ident.<identity>
//	relay.detach          detach a previously attached identity
//	relay.ident.<identity> outbound message/presence events for one identity
//	relay.presence        mirror of every presence event
package broker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/metrics"
	"github.com/walletwire/walletwire/internal/models"
	"github.com/walletwire/walletwire/internal/relay"
)

const (
	subjectSend     = "relay.send"
	subjectAttach   = "relay.attach"
	subjectDetach   = "relay.detach"
	subjectPresence = "relay.presence"
	identPrefix     = "relay.ident."
)

// sendEvent is a directed send published by a backend service.
type sendEvent struct {
	From    string          `json:"from"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// attachEvent attaches or detaches an identity.
type attachEvent struct {
	Identity string `json:"identity"`
}

// messageEvent is the outbound envelope published to an identity subject.
type messageEvent struct {
	Type      string          `json:"type"` // "message" or "presence"
	From      string          `json:"from,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
	Identity  string          `json:"identity,omitempty"`
	State     string          `json:"state,omitempty"`
}

// Bridge is the broker-backed channel adapter.
type Bridge struct {
	log   zerolog.Logger
	relay *relay.Relay
	nc    *nats.Conn
	subs  []*nats.Subscription

	mu       sync.Mutex
	attached map[string]*brokerHandle
}

// Dial connects to the broker and wires the relay to it.
func Dial(logger zerolog.Logger, rly *relay.Relay, url string) (*Bridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("walletwire-relay"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		log:      logger.With().Str("component", "broker").Logger(),
		relay:    rly,
		nc:       nc,
		attached: make(map[string]*brokerHandle),
	}

	for subject, handler := range map[string]nats.MsgHandler{
		subjectSend:   b.onSend,
		subjectAttach: b.onAttach,
		subjectDetach: b.onDetach,
	} {
		sub, err := nc.Subscribe(subject, handler)
		if err != nil {
			nc.Close()
			return nil, err
		}
		b.subs = append(b.subs, sub)
	}

	rly.SetPresenceSink(b.publishPresence)
	b.log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to channel broker")
	return b, nil
}

// Ping reports broker connectivity, for health checks.
func (b *Bridge) Ping(ctx context.Context) error {
	return b.nc.FlushWithContext(ctx)
}

// Close detaches everything and drops the broker connection.
func (b *Bridge) Close() {
	b.mu.Lock()
	handles := b.attached
	b.attached = make(map[string]*brokerHandle)
	b.mu.Unlock()

	for identity, h := range handles {
		b.relay.Disconnect(identity, h)
	}
	metrics.BrokerAttached.Set(0)

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.nc.Close()
}

func (b *Bridge) onSend(m *nats.Msg) {
	metrics.BrokerEventsIn.WithLabelValues(subjectSend).Inc()
	var ev sendEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		b.log.Warn().Err(err).Msg("malformed send event dropped")
		return
	}
	if err := b.relay.Send(ev.From, ev.To, ev.Payload); err != nil {
		b.log.Warn().Str("to", ev.To).Err(err).Msg("broker send rejected")
	}
}

func (b *Bridge) onAttach(m *nats.Msg) {
	metrics.BrokerEventsIn.WithLabelValues(subjectAttach).Inc()
	var ev attachEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil || ev.Identity == "" {
		b.log.Warn().Msg("malformed attach event dropped")
		return
	}

	h := &brokerHandle{nc: b.nc, subject: identPrefix + ev.Identity}
	if err := b.relay.Register(relay.RegisterRequest{Identity: ev.Identity}, h); err != nil {
		b.log.Warn().Str("identity", ev.Identity).Err(err).Msg("broker attach rejected")
		return
	}

	b.mu.Lock()
	b.attached[ev.Identity] = h
	metrics.BrokerAttached.Set(float64(len(b.attached)))
	b.mu.Unlock()
}

func (b *Bridge) onDetach(m *nats.Msg) {
	metrics.BrokerEventsIn.WithLabelValues(subjectDetach).Inc()
	var ev attachEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil || ev.Identity == "" {
		return
	}

	b.mu.Lock()
	h, ok := b.attached[ev.Identity]
	if ok {
		delete(b.attached, ev.Identity)
	}
	metrics.BrokerAttached.Set(float64(len(b.attached)))
	b.mu.Unlock()

	if ok {
		// Guarded: if a websocket session replaced the broker handle in the
		// meantime, this is a no-op.
		b.relay.Disconnect(ev.Identity, h)
	}
}

func (b *Bridge) publishPresence(p models.Presence) {
	data, err := json.Marshal(messageEvent{
		Type:     "presence",
		Identity: p.Identity,
		State:    string(p.State),
	})
	if err != nil {
		return
	}
	if err := b.nc.Publish(subjectPresence, data); err != nil {
		b.log.Debug().Err(err).Msg("presence mirror failed")
	}
}

// brokerHandle publishes one identity's outbound events to its subject.
type brokerHandle struct {
	nc      *nats.Conn
	subject string
}

func (h *brokerHandle) DeliverMessage(msg models.Message) error {
	data, err := json.Marshal(messageEvent{
		Type:      "message",
		From:      msg.From,
		Payload:   msg.Payload,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return err
	}
	return h.nc.Publish(h.subject, data)
}

func (h *brokerHandle) DeliverPresence(p models.Presence) error {
	data, err := json.Marshal(messageEvent{
		Type:     "presence",
		Identity: p.Identity,
		State:    string(p.State),
	})
	if err != nil {
		return err
	}
	return h.nc.Publish(h.subject, data)
}

func (h *brokerHandle) Close() error { return nil }
