package relay

import (
	"github.com/walletwire/walletwire/internal/metrics"
	"github.com/walletwire/walletwire/internal/models"
)

// broadcast fans a presence event out to every online session except the
// subject itself. Best-effort: a handle that cannot take the event right now
// just misses it, and no ordering is promised relative to concurrent message
// deliveries. Presence is advisory; routing always goes through a fresh
// registry lookup at send time.
func (r *Relay) broadcast(p models.Presence) {
	for _, id := range r.registry.Snapshot() {
		if id == p.Identity {
			continue
		}
		h, ok := r.registry.Lookup(id)
		if !ok {
			continue
		}
		if err := h.DeliverPresence(p); err != nil {
			r.log.Debug().
				Str("to", id).
				Str("subject", p.Identity).
				Err(err).
				Msg("presence delivery skipped")
		}
	}
	metrics.PresenceEvents.WithLabelValues(string(p.State)).Inc()

	r.sinkMu.RLock()
	sink := r.presenceSink
	r.sinkMu.RUnlock()
	if sink != nil {
		sink(p)
	}
}
