package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// IdentityHTTPClient talks to the identity service. Existence and PIN checks
// are pure reads; nothing from them is ever cached or persisted here.
type IdentityHTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewIdentityClient(baseURL string, timeout time.Duration) *IdentityHTTPClient {
	return &IdentityHTTPClient{
		baseURL: baseURL,
		http:    newHTTPClient(timeout),
	}
}

func (c *IdentityHTTPClient) Exists(ctx context.Context, userID string) (bool, error) {
	var response struct {
		Exists bool `json:"exists"`
	}
	url := fmt.Sprintf("%s/api/users/%s/exists", c.baseURL, userID)

	err := retryRead(ctx, func() error {
		return doJSON(ctx, c.http, http.MethodGet, url, nil, &response)
	})
	if err != nil {
		return false, mapIdentityError(err)
	}
	return response.Exists, nil
}

func (c *IdentityHTTPClient) VerifyPIN(ctx context.Context, userID, pin string) (bool, error) {
	request := map[string]string{"userId": userID, "pin": pin}
	var response struct {
		Valid bool `json:"valid"`
	}
	url := c.baseURL + "/api/users/verify-pin"

	// PIN verification is not retried: a single authoritative answer per
	// attempt keeps the failure mode simple.
	if err := doJSON(ctx, c.http, http.MethodPost, url, request, &response); err != nil {
		return false, mapIdentityError(err)
	}
	return response.Valid, nil
}

func mapIdentityError(err error) error {
	if herr, ok := err.(*httpError); ok {
		return upstreamProtocolError("identity", herr)
	}
	return err
}
