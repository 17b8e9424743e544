package handlers

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	Online             int    `json:"online"`
	BufferedMessages   int    `json:"buffered_messages"`
	BufferedRecipients int    `json:"buffered_recipients"`
	Uptime             string `json:"uptime"`
}

// Stats returns relay statistics for dashboards and the landing page.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.relay.Stats()

	h.JSON(w, http.StatusOK, StatsResponse{
		Online:             s.Online,
		BufferedMessages:   s.BufferedMessages,
		BufferedRecipients: s.BufferedRecipients,
		Uptime:             time.Since(startedAt).Round(time.Second).String(),
	})
}
