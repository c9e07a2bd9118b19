package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
)

// WalletHTTPClient talks to the wallet service. Debit carries the
// authoritative sufficiency check: the wallet service re-checks the balance
// atomically, so a 409 here is the final word regardless of what the
// advisory balance read said.
type WalletHTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewWalletClient(baseURL string, timeout time.Duration) *WalletHTTPClient {
	return &WalletHTTPClient{
		baseURL: baseURL,
		http:    newHTTPClient(timeout),
	}
}

func (c *WalletHTTPClient) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var response struct {
		Balance decimal.Decimal `json:"balance"`
	}
	url := fmt.Sprintf("%s/api/wallets/balance/%s", c.baseURL, userID)

	err := retryRead(ctx, func() error {
		return doJSON(ctx, c.http, http.MethodGet, url, nil, &response)
	})
	if err != nil {
		return decimal.Zero, mapWalletError(err)
	}
	return response.Balance, nil
}

func (c *WalletHTTPClient) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	url := fmt.Sprintf("%s/api/wallets/%s/debit", c.baseURL, userID)
	body := map[string]decimal.Decimal{"amount": amount}
	if err := doJSON(ctx, c.http, http.MethodPost, url, body, nil); err != nil {
		return mapWalletError(err)
	}
	return nil
}

func (c *WalletHTTPClient) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	url := fmt.Sprintf("%s/api/wallets/%s/credit", c.baseURL, userID)
	body := map[string]decimal.Decimal{"amount": amount}
	if err := doJSON(ctx, c.http, http.MethodPost, url, body, nil); err != nil {
		return mapWalletError(err)
	}
	return nil
}

func mapWalletError(err error) error {
	herr, ok := err.(*httpError)
	if !ok {
		return err
	}
	switch herr.status {
	case http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, "wallet not found")
	case http.StatusConflict:
		switch herr.code {
		case apperr.KindInsufficientFunds.Code():
			return apperr.New(apperr.KindInsufficientFunds, "insufficient funds")
		case apperr.KindInactiveAccount.Code():
			return apperr.New(apperr.KindInactiveAccount, "wallet is not active")
		}
	}
	return upstreamProtocolError("wallet", herr)
}

// upstreamProtocolError covers answers outside a collaborator's contract
// (5xx, unexpected statuses). The call completed, but we can't trust the
// outcome, so it classifies as UpstreamUnavailable.
func upstreamProtocolError(service string, herr *httpError) error {
	return apperr.Wrap(apperr.KindUpstreamUnavailable, service+" service returned an unexpected response", herr)
}
