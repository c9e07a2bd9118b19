package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreecahyadi/digital-bank-system/shared/apperr"
)

func TestIdentityClientExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/usr-001/exists", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]bool{"exists": true})
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second)
	exists, err := c.Exists(context.Background(), "usr-001")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIdentityClientExistsFalseIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"exists": false})
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second)
	exists, err := c.Exists(context.Background(), "usr-ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdentityClientVerifyPIN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/verify-pin", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]bool{"valid": body["pin"] == "123456"})
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second)

	valid, err := c.VerifyPIN(context.Background(), "usr-001", "123456")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = c.VerifyPIN(context.Background(), "usr-001", "000000")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIdentityClientVerifyPINIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second)
	_, err := c.VerifyPIN(context.Background(), "usr-001", "123456")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdentityClientExistsRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"exists": true})
	}))
	defer server.Close()

	c := NewIdentityClient(server.URL, time.Second)
	exists, err := c.Exists(context.Background(), "usr-001")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdentityClientUnreachable(t *testing.T) {
	c := NewIdentityClient("http://127.0.0.1:1", 50*time.Millisecond)
	_, err := c.Exists(context.Background(), "usr-001")
	assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
}
