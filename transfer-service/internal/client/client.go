// Package client holds the HTTP clients the orchestrator uses to talk to the
// identity and wallet services. Every call carries a bounded timeout;
// transport failures map to UpstreamUnavailable so callers can tell "the
// service said no" apart from "the service didn't answer".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
	"github.com/andreecahyadi/digital-bank-system/shared/middleware"
)

const defaultTimeout = 5 * time.Second

// Interfaces consumed by the orchestrator. They mirror the collaborator
// contracts, not the collaborators' full APIs.

type IdentityClient interface {
	Exists(ctx context.Context, userID string) (bool, error)
	VerifyPIN(ctx context.Context, userID, pin string) (bool, error)
}

type WalletClient interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doJSON performs one request and decodes a 2xx response body into out
// (when out is non-nil). Non-2xx responses come back as *httpError so the
// per-endpoint callers can map status and code to the taxonomy.
func doJSON(ctx context.Context, client *http.Client, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		// Timeouts, refused connections, DNS failures: the upstream never
		// gave an answer. Never conflate with NotFound.
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "upstream call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &httpError{status: resp.StatusCode}
		var body middleware.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			herr.code = body.Code
			herr.message = body.Message
		}
		return herr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Wrap(apperr.KindUpstreamUnavailable, "failed to decode upstream response", err)
		}
	}
	return nil
}

// httpError is a non-2xx answer from a collaborator, before taxonomy mapping.
type httpError struct {
	status  int
	code    string
	message string
}

func (e *httpError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.status, e.message)
	}
	return fmt.Sprintf("upstream returned %d", e.status)
}

// retryRead retries fn once when the upstream gave no usable answer
// (transport failure or 5xx). Only idempotent reads go through this; debit
// and credit are single-shot per ledger reference.
func retryRead(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !retriable(err) {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(200 * time.Millisecond):
	}
	return fn()
}

func retriable(err error) bool {
	if apperr.Is(err, apperr.KindUpstreamUnavailable) {
		return true
	}
	if herr, ok := err.(*httpError); ok {
		return herr.status >= 500
	}
	return false
}
