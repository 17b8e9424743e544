// Package walletwire provides a Go client for the walletwire relay: a
// websocket session addressed by a wallet identity key, with payload sealing
// helpers for end-to-end privacy between clients.
package walletwire

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is a relayed message as seen by the client.
type Message struct {
	From      string          `json:"from"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"ts"`
}

// Presence is an advisory join/leave notification for another identity.
type Presence struct {
	Identity string `json:"identity"`
	State    string `json:"state"` // "joined" or "left"
}

// Options configures a relay session.
type Options struct {
	// Identity is the session identity. If empty and PrivateKey is set, the
	// base64 public key is used.
	Identity string

	// PrivateKey enables signed registration and payload opening.
	PrivateKey ed25519.PrivateKey

	// SignRegistration sends a key-ownership proof with the register frame.
	// Requires PrivateKey.
	SignRegistration bool

	// OnMessage is invoked for every relayed message, in delivery order.
	OnMessage func(Message)

	// OnPresence is invoked for presence events.
	OnPresence func(Presence)

	// OnError is invoked when the relay rejects a frame.
	OnError func(error)
}

type frame struct {
	Type      string          `json:"type"`
	Identity  string          `json:"identity,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
	Nonce     string          `json:"nonce,omitempty"`
	Signature string          `json:"sig,omitempty"`
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	State     string          `json:"state,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Client is a live relay session.
type Client struct {
	identity string
	priv     ed25519.PrivateKey
	opts     Options

	conn *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

// Dial connects to the relay at rawURL (http, https, ws or wss), registers
// the identity and starts dispatching events. Buffered messages for the
// identity are replayed by the relay immediately after registration.
func Dial(rawURL string, opts Options) (*Client, error) {
	identity := opts.Identity
	if identity == "" && opts.PrivateKey != nil {
		identity = base64.StdEncoding.EncodeToString(opts.PrivateKey.Public().(ed25519.PublicKey))
	}
	if identity == "" {
		return nil, fmt.Errorf("identity is required")
	}

	wsURL, err := toWebsocketURL(rawURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Client{
		identity: identity,
		priv:     opts.PrivateKey,
		opts:     opts,
		conn:     conn,
		done:     make(chan struct{}),
	}

	if err := c.register(); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// Identity returns the registered identity.
func (c *Client) Identity() string {
	return c.identity
}

// Send relays payload to another identity. Fire-and-forget: the relay
// delivers immediately when the recipient is online and buffers otherwise.
func (c *Client) Send(to string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.write(frame{Type: "send", To: to, Payload: data})
}

// SendSealed seals plaintext for the recipient's identity key before
// relaying it. The relay only ever sees the sealed blob.
func (c *Client) SendSealed(to string, plaintext string) error {
	sealed, err := SealPayload(plaintext, to)
	if err != nil {
		return err
	}
	return c.Send(to, sealed)
}

// OpenSealed opens a sealed payload received from another client. Requires
// the session's private key.
func (c *Client) OpenSealed(msg Message) (string, error) {
	if c.priv == nil {
		return "", &CryptoError{Message: "no private key configured"}
	}
	var sealed string
	if err := json.Unmarshal(msg.Payload, &sealed); err != nil {
		return "", &CryptoError{Message: "payload is not a sealed blob"}
	}
	return OpenPayload(sealed, c.priv)
}

// Close ends the session. The relay broadcasts a left event to other online
// identities.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *Client) register() error {
	f := frame{Type: "register", Identity: c.identity}

	if c.opts.SignRegistration {
		if c.priv == nil {
			return fmt.Errorf("signed registration requires a private key")
		}
		nonceBytes := make([]byte, 12) // 24 hex chars for adequate entropy
		rand.Read(nonceBytes)
		f.Nonce = hex.EncodeToString(nonceBytes)
		f.Timestamp = time.Now().UnixMilli()

		payload := fmt.Sprintf("%s|%s|%d", c.identity, f.Nonce, f.Timestamp)
		f.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(c.priv, []byte(payload)))
	}

	return c.write(f)
}

func (c *Client) write(f frame) error {
	select {
	case <-c.done:
		return fmt.Errorf("session closed")
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(f)
}

func (c *Client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				if c.opts.OnError != nil {
					c.opts.OnError(fmt.Errorf("connection lost: %w", err))
				}
			}
			return
		}

		switch f.Type {
		case "message":
			if c.opts.OnMessage != nil {
				c.opts.OnMessage(Message{From: f.From, Payload: f.Payload, Timestamp: f.Timestamp})
			}
		case "presence":
			if c.opts.OnPresence != nil {
				c.opts.OnPresence(Presence{Identity: f.Identity, State: f.State})
			}
		case "error":
			if c.opts.OnError != nil {
				c.opts.OnError(fmt.Errorf("relay: %s", f.Error))
			}
		}
	}
}

// toWebsocketURL converts an http(s) base URL to the relay's ws endpoint.
func toWebsocketURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid relay URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}
