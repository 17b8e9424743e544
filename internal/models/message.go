package models

import "encoding/json"

// Message is a directed message in flight through the relay. The payload is
// opaque: the relay never inspects it.
type Message struct {
	ID        string          `json:"id"` // ULID
	From      string          `json:"from"`
	To        string          `json:"to"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"ts"` // Unix ms, assigned at ingress
}
