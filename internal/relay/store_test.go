package relay

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/walletwire/walletwire/internal/models"
)

func testMsg(to string, n int) models.Message {
	return models.Message{
		ID:      fmt.Sprintf("msg-%d", n),
		From:    "sender",
		To:      to,
		Payload: json.RawMessage(`"hi"`),
	}
}

func TestStoreFIFO(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 5; i++ {
		if _, overflowed := s.Enqueue(testMsg("carol", i)); overflowed {
			t.Fatalf("unexpected overflow at %d", i)
		}
	}

	drained := s.Drain("carol")
	if len(drained) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(drained))
	}
	for i, msg := range drained {
		if msg.ID != fmt.Sprintf("msg-%d", i) {
			t.Fatalf("order violated at %d: got %s", i, msg.ID)
		}
	}

	// Drain removes the entry entirely.
	if again := s.Drain("carol"); again != nil {
		t.Fatalf("second drain should be empty, got %d messages", len(again))
	}
}

func TestStoreOverflowDropsOldest(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 3; i++ {
		s.Enqueue(testMsg("bob", i))
	}

	dropped, overflowed := s.Enqueue(testMsg("bob", 3))
	if !overflowed {
		t.Fatal("expected overflow at depth 3")
	}
	if dropped.ID != "msg-0" {
		t.Fatalf("expected oldest message dropped, got %s", dropped.ID)
	}

	drained := s.Drain("bob")
	if len(drained) != 3 {
		t.Fatalf("expected 3 messages after overflow, got %d", len(drained))
	}
	if drained[0].ID != "msg-1" || drained[2].ID != "msg-3" {
		t.Fatalf("unexpected window after overflow: %s..%s", drained[0].ID, drained[2].ID)
	}
}

func TestStoreRequeuePreservesOrder(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 4; i++ {
		s.Enqueue(testMsg("erin", i))
	}

	drained := s.Drain("erin")

	// A message arrives while the tail is in flight.
	s.Enqueue(testMsg("erin", 99))

	// Delivery failed after the first two; the tail goes back in front.
	s.Requeue("erin", drained[2:])

	got := s.Drain("erin")
	want := []string{"msg-2", "msg-3", "msg-99"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestStoreTotals(t *testing.T) {
	s := NewStore(10)
	s.Enqueue(testMsg("a", 0))
	s.Enqueue(testMsg("a", 1))
	s.Enqueue(testMsg("b", 2))

	msgs, recips := s.Totals()
	if msgs != 3 || recips != 2 {
		t.Fatalf("expected 3 messages across 2 recipients, got %d/%d", msgs, recips)
	}
	if s.Pending("a") != 2 {
		t.Fatalf("expected 2 pending for a, got %d", s.Pending("a"))
	}
}
