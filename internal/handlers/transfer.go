package handlers

import (
	"encoding/json"
	"net/http"
)

// TransferRequest represents the transfer request body.
type TransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// TransferResponse represents the transfer response.
type TransferResponse struct {
	Signature string `json:"signature"`
}

// Transfer proxies a token transfer to the external ledger service. It is
// glue around the relay: transfers do not touch relay state.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		h.Error(w, http.StatusServiceUnavailable, "ledger service not configured")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Recipient == "" {
		h.Error(w, http.StatusBadRequest, "recipient is required")
		return
	}
	if req.Amount == 0 {
		h.Error(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	sig, err := h.ledger.Transfer(r.Context(), req.Recipient, req.Amount)
	if err != nil {
		h.Error(w, http.StatusBadGateway, "transfer failed")
		return
	}

	h.JSON(w, http.StatusOK, TransferResponse{Signature: sig})
}
