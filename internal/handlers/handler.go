package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/walletwire/walletwire/internal/ledger"
	"github.com/walletwire/walletwire/internal/relay"
)

// Pinger is a connectivity check on an optional backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers. redis, broker
// and ledger may be nil when the corresponding service is not configured.
type Handler struct {
	relay  *relay.Relay
	redis  Pinger
	broker Pinger
	ledger *ledger.Client
}

// NewHandler creates a new Handler.
func NewHandler(rly *relay.Relay, redis, broker Pinger, ledgerClient *ledger.Client) *Handler {
	return &Handler{relay: rly, redis: redis, broker: broker, ledger: ledgerClient}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
