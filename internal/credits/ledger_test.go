package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
)

type balanceFake struct {
	reserveStatus int
	reserveBody   map[string]string
	reserves      atomic.Int64
	refunds       atomic.Int64
}

func (f *balanceFake) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/credits/reserve":
			f.reserves.Add(1)
			status := f.reserveStatus
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			if f.reserveBody != nil {
				_ = json.NewEncoder(w).Encode(f.reserveBody)
			}
		case "/v1/credits/refund":
			f.refunds.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestReserveInsufficientBalanceShortCircuits(t *testing.T) {
	fake := &balanceFake{reserveStatus: http.StatusPaymentRequired, reserveBody: map[string]string{"error": "insufficient_credits"}}
	srv := fake.server()
	defer srv.Close()

	ledger := NewLedger(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	if _, err := ledger.Reserve(context.Background(), "u1", 5); err != domain.ErrInsufficientCredits {
		t.Fatalf("Reserve error = %v, want ErrInsufficientCredits", err)
	}
}

func TestReserveAdvisoryFailureContinues(t *testing.T) {
	fake := &balanceFake{reserveStatus: http.StatusInternalServerError}
	srv := fake.server()
	defer srv.Close()

	ledger := NewLedger(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	res, err := ledger.Reserve(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}
	if res == nil {
		t.Fatalf("Reserve returned nil reservation on advisory failure")
	}
}

func TestReleaseRefundsAtMostOnce(t *testing.T) {
	fake := &balanceFake{}
	srv := fake.server()
	defer srv.Close()

	ledger := NewLedger(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	res, err := ledger.Reserve(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}

	res.Release(context.Background())
	res.Release(context.Background())
	if got := fake.refunds.Load(); got != 1 {
		t.Fatalf("refund calls = %d, want 1", got)
	}
}

func TestReleaseAfterSettleIsNoop(t *testing.T) {
	fake := &balanceFake{}
	srv := fake.server()
	defer srv.Close()

	ledger := NewLedger(Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	res, err := ledger.Reserve(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Reserve returned error: %v", err)
	}

	res.Settle()
	res.Release(context.Background())
	if got := fake.refunds.Load(); got != 0 {
		t.Fatalf("refund calls = %d, want 0", got)
	}
	if !res.Resolved() {
		t.Fatalf("reservation should be resolved after settle")
	}
}
