package ws

import "encoding/json"

// Inbound frame types.
const (
	frameRegister = "register"
	frameSend     = "send"
)

// Outbound frame types.
const (
	frameMessage  = "message"
	framePresence = "presence"
	frameError    = "error"
)

// inboundFrame is a decoded client frame. Fields beyond Type are populated
// depending on the frame type.
type inboundFrame struct {
	Type string `json:"type"`

	// register
	Identity  string `json:"identity,omitempty"`
	Timestamp int64  `json:"ts,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Signature string `json:"sig,omitempty"`

	// send
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outboundFrame is a frame pushed to a client.
type outboundFrame struct {
	Type string `json:"type"`

	// message
	From      string          `json:"from,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`

	// presence
	Identity string `json:"identity,omitempty"`
	State    string `json:"state,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}
