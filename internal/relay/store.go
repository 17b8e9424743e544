package relay

import (
	"sync"

	"github.com/walletwire/walletwire/internal/models"
)

// DefaultInboxDepth is the per-recipient buffer bound used when the config
// does not set one.
const DefaultInboxDepth = 256

// Store buffers directed messages for identities with no live connection.
// Entries are FIFO per recipient and bounded: when a recipient's inbox is
// full the oldest message is dropped so the buffer cannot grow without limit.
// The store is process-lifetime and in-memory only.
type Store struct {
	mu      sync.Mutex
	depth   int
	inboxes map[string][]models.Message
}

// NewStore creates a store with the given per-recipient depth bound.
func NewStore(depth int) *Store {
	if depth <= 0 {
		depth = DefaultInboxDepth
	}
	return &Store{depth: depth, inboxes: make(map[string][]models.Message)}
}

// Enqueue appends msg to its recipient's inbox. If the inbox is at capacity
// the oldest message is dropped and returned with overflowed=true so the
// caller can report the store-overflow condition.
func (s *Store) Enqueue(msg models.Message) (dropped models.Message, overflowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.inboxes[msg.To]
	if len(inbox) >= s.depth {
		dropped, inbox = inbox[0], inbox[1:]
		overflowed = true
	}
	s.inboxes[msg.To] = append(inbox, msg)
	return dropped, overflowed
}

// Requeue puts an undelivered tail back at the front of the recipient's
// inbox, preserving original order ahead of anything buffered since the
// drain. No-op for an empty tail.
func (s *Store) Requeue(recipient string, tail []models.Message) {
	if len(tail) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inboxes[recipient] = append(append([]models.Message{}, tail...), s.inboxes[recipient]...)
}

// Drain atomically removes and returns all buffered messages for recipient in
// insertion order. Returns nil if none are buffered.
func (s *Store) Drain(recipient string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox := s.inboxes[recipient]
	if inbox == nil {
		return nil
	}
	delete(s.inboxes, recipient)
	return inbox
}

// Pending returns the number of messages buffered for recipient.
func (s *Store) Pending(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inboxes[recipient])
}

// Totals returns the number of buffered messages and of recipients with a
// non-empty inbox.
func (s *Store) Totals() (messages, recipients int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inbox := range s.inboxes {
		messages += len(inbox)
	}
	return messages, len(s.inboxes)
}
