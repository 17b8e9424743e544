package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Recipient != "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin" || req.Amount != 1000 {
			t.Fatalf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(TransferResult{Signature: "5j7s8b"})
	}))
	defer srv.Close()

	sig, err := New(srv.URL).Transfer(context.Background(), "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if sig != "5j7s8b" {
		t.Fatalf("expected signature 5j7s8b, got %s", sig)
	}
}

func TestTransferServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(TransferResult{Error: "insufficient funds"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Transfer(context.Background(), "addr", 1)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestTransferValidation(t *testing.T) {
	c := New("http://ledger.invalid")
	if _, err := c.Transfer(context.Background(), "", 1); !errors.Is(err, ErrTransferFailed) {
		t.Fatal("empty recipient should fail before any network call")
	}
	if _, err := c.Transfer(context.Background(), "addr", 0); !errors.Is(err, ErrTransferFailed) {
		t.Fatal("zero amount should fail before any network call")
	}
}
