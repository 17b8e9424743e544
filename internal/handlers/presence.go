package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// PresenceListResponse is the bulk presence query response.
type PresenceListResponse struct {
	Identities []string `json:"identities"`
	Count      int      `json:"count"`
}

// PresenceResponse is the single-identity presence response.
type PresenceResponse struct {
	Identity string `json:"identity"`
	Online   bool   `json:"online"`
}

// ListPresence returns all currently online identities.
func (h *Handler) ListPresence(w http.ResponseWriter, r *http.Request) {
	online := h.relay.Online()
	sort.Strings(online)

	h.JSON(w, http.StatusOK, PresenceListResponse{
		Identities: online,
		Count:      len(online),
	})
}

// GetPresence reports whether one identity is online. Presence is advisory:
// a send to an identity reported offline is still buffered, never rejected.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		h.Error(w, http.StatusBadRequest, "identity is required")
		return
	}

	h.JSON(w, http.StatusOK, PresenceResponse{
		Identity: identity,
		Online:   h.relay.IsOnline(identity),
	})
}
