package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"boundless/config"
	"boundless/internal/domain"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.LedgerConfig{
		RPCURL:          srv.URL,
		ContractAddress: "CESCROW",
		TimeoutSeconds:  2,
	}, zap.NewNop())
	return c, srv
}

func TestInvokeSuccess(t *testing.T) {
	var gotReq invokeRequest
	var gotIdemHeader string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotIdemHeader = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(invokeResponse{Status: "SUCCESS", TxHash: "abc123"})
	})

	hash, err := c.Invoke(context.Background(), FundProject{
		ProjectID:     "p1",
		Amount:        100,
		Funder:        "GFUNDER",
		TokenContract: "CTOKEN",
	}, "contrib-42")
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if hash != "abc123" {
		t.Fatalf("tx hash = %q, want %q", hash, "abc123")
	}
	if gotReq.Method != "fund_project" {
		t.Fatalf("method = %q, want %q", gotReq.Method, "fund_project")
	}
	if gotReq.ContractID != "CESCROW" {
		t.Fatalf("contract_id = %q, want %q", gotReq.ContractID, "CESCROW")
	}
	if gotIdemHeader != "contrib-42" {
		t.Fatalf("Idempotency-Key = %q, want %q", gotIdemHeader, "contrib-42")
	}
	if gotReq.Args["project_id"] != "p1" {
		t.Fatalf("args.project_id = %v, want p1", gotReq.Args["project_id"])
	}
}

func TestInvokeDecodesContractRejection(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(invokeResponse{Status: "FAILED", ErrorCode: 16})
	})

	_, err := c.Invoke(context.Background(), ReleaseMilestone{ProjectID: "p1", MilestoneNumber: 1, Admin: "GADMIN"}, "ms-1")
	if !domain.IsKind(err, domain.KindInsufficientFunds) {
		t.Fatalf("error = %v, want insufficient_funds", err)
	}
}

func TestInvokeTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := NewClient(config.LedgerConfig{RPCURL: srv.URL, TimeoutSeconds: 1}, zap.NewNop())

	_, err := c.Invoke(context.Background(), Refund{ProjectID: "p1", ContributionID: "c1"}, "c1")
	if !domain.IsKind(err, domain.KindLedgerUnavailable) {
		t.Fatalf("error = %v, want ledger_unavailable", err)
	}
	kind, _ := domain.KindOf(err)
	if !kind.Retryable() {
		t.Fatalf("transport failure kind %v not retryable", kind)
	}
}

func TestInvoke5xxIsUnavailableAndTripsBreaker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		_, err := c.Invoke(context.Background(), VoteProject{ProjectID: "p1", Voter: "GVOTER", VoteValue: 1}, "")
		if !domain.IsKind(err, domain.KindLedgerUnavailable) {
			t.Fatalf("attempt %d error = %v, want ledger_unavailable", i, err)
		}
	}
	// breaker open now, call short-circuits with the same retryable kind
	_, err := c.Invoke(context.Background(), VoteProject{ProjectID: "p1", Voter: "GVOTER", VoteValue: 1}, "")
	if !domain.IsKind(err, domain.KindLedgerUnavailable) {
		t.Fatalf("open-breaker error = %v, want ledger_unavailable", err)
	}
}

func TestInvokeRejectionDoesNotTripBreaker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(invokeResponse{Status: "FAILED", ErrorCode: 10})
	})

	for i := 0; i < 10; i++ {
		_, err := c.Invoke(context.Background(), VoteProject{ProjectID: "p1", Voter: "GVOTER", VoteValue: 1}, "")
		if !domain.IsKind(err, domain.KindConflict) {
			t.Fatalf("attempt %d error = %v, want conflict", i, err)
		}
	}
}
