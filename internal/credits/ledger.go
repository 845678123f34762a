// Package credits fronts the external balance service. A reservation is made
// before any provider call and compensated with a refund on every downstream
// failure; reserve-then-(settle-or-refund) is a single pair per request.
package credits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
)

// Ledger is an HTTP client for the balance service.
type Ledger struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Options configures a Ledger.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// NewLedger builds a Ledger. An empty base URL yields a ledger whose calls
// are advisory no-ops, which keeps local development working without the
// balance service.
func NewLedger(opts Options) *Ledger {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Ledger{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: client,
		log:        opts.Logger,
	}
}

// Reserve places a tentative debit of amount credits for the user. An
// insufficient-balance reply is fatal and returns
// domain.ErrInsufficientCredits; any other failure is advisory accounting and
// is logged without blocking the flow. The returned Reservation must be
// resolved exactly once via Settle or Release before the request finishes.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount int) (*Reservation, error) {
	res := &Reservation{ledger: l, userID: userID, amount: amount}
	if l.baseURL == "" {
		return res, nil
	}
	status, body, err := l.post(ctx, "/v1/credits/reserve", userID, amount)
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Int("amount", amount).Msg("credit reserve failed, continuing")
		return res, nil
	}
	if status == http.StatusPaymentRequired || body.Error == "insufficient_credits" {
		return nil, domain.ErrInsufficientCredits
	}
	if status >= http.StatusBadRequest {
		l.log.Warn().Int("status", status).Str("user_id", userID).Msg("credit reserve rejected, continuing")
	}
	return res, nil
}

func (l *Ledger) refund(ctx context.Context, userID string, amount int) error {
	if l.baseURL == "" {
		return nil
	}
	status, _, err := l.post(ctx, "/v1/credits/refund", userID, amount)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("credits: refund: http %d", status)
	}
	return nil
}

type balanceReply struct {
	Error string `json:"error"`
}

func (l *Ledger) post(ctx context.Context, path, userID string, amount int) (int, balanceReply, error) {
	payload, _ := json.Marshal(map[string]any{"user_id": userID, "amount": amount})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, balanceReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return 0, balanceReply{}, fmt.Errorf("credits: %s: %w", path, err)
	}
	defer resp.Body.Close()
	var body balanceReply
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body, nil
}

// Reservation is a tentative credit debit. It is resolved exactly once:
// Settle marks the debit final, Release refunds it unless already settled.
// Release is safe to defer on every exit path; only the first resolution
// does anything.
type Reservation struct {
	ledger   *Ledger
	userID   string
	amount   int
	resolved bool
}

// Settle marks the reservation as final. No refund will be issued afterwards.
func (r *Reservation) Settle() {
	if r == nil || r.resolved {
		return
	}
	r.resolved = true
}

// Release refunds the reservation unless it was settled. Refund is attempted
// at most once; a failed refund attempt is logged, never retried here.
func (r *Reservation) Release(ctx context.Context) {
	if r == nil || r.resolved {
		return
	}
	r.resolved = true
	if err := r.ledger.refund(ctx, r.userID, r.amount); err != nil {
		r.ledger.log.Error().Err(err).Str("user_id", r.userID).Int("amount", r.amount).Msg("credit refund failed")
	}
}

// Resolved reports whether the reservation reached a terminal state.
func (r *Reservation) Resolved() bool {
	return r == nil || r.resolved
}
