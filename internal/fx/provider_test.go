package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fallback = decimal.RequireFromString("0.75")

func newTestClient(upstream string) *Client {
	return NewClient(upstream, fallback, 2*time.Second, time.Minute, nil)
}

func TestGetRateLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("base"))
		assert.Equal(t, "JOD", r.URL.Query().Get("symbols"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"rates":{"JOD":0.782},"timestamp":1700000000,"base":"EUR"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).GetRate(context.Background(), "EUR", "JOD")
	require.True(t, res.Live)
	assert.True(t, res.Rate.Equal(decimal.RequireFromString("0.782")), "rate = %s", res.Rate)
}

func TestGetRateFallbackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).GetRate(context.Background(), "EUR", "JOD")
	assert.False(t, res.Live)
	assert.True(t, res.Rate.Equal(fallback))
}

func TestGetRateFallbackOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"rates":`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).GetRate(context.Background(), "EUR", "JOD")
	assert.False(t, res.Live)
	assert.True(t, res.Rate.Equal(fallback))
}

func TestGetRateFallbackOnUpstreamFailureFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"rates":{}}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).GetRate(context.Background(), "EUR", "JOD")
	assert.False(t, res.Live)
	assert.True(t, res.Rate.Equal(fallback))
}

func TestGetRateFallbackOnMissingSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"rates":{"USD":1.08}}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).GetRate(context.Background(), "EUR", "JOD")
	assert.False(t, res.Live)
	assert.True(t, res.Rate.Equal(fallback))
}

func TestGetRateFallbackOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true,"rates":{"JOD":0.78}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, fallback, 50*time.Millisecond, time.Minute, nil)
	res := client.GetRate(context.Background(), "EUR", "JOD")
	assert.False(t, res.Live)
	assert.True(t, res.Rate.Equal(fallback))
}
