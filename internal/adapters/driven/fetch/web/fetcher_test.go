package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>" + r.Header.Get("User-Agent") + "</p>"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	})
	mux.HandleFunc("/slow-down", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newTestServer(t)
	f := New(Config{UserAgent: "test-agent"})

	res, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "<p>test-agent</p>", string(res.Body))
	assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/page", res.URL)
}

func TestFetch_FinalURLAfterRedirect(t *testing.T) {
	srv := newTestServer(t)
	res, err := New(Config{}).Fetch(context.Background(), srv.URL+"/moved")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/page", res.URL)
}

func TestFetch_Errors(t *testing.T) {
	srv := newTestServer(t)
	f := New(Config{})

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.Fetch(context.Background(), srv.URL+"/slow-down")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = f.Fetch(context.Background(), srv.URL+"/empty")
	assert.ErrorIs(t, err, domain.ErrEmptyBody)

	_, err = f.Fetch(context.Background(), "ftp://example.com/x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := newTestServer(t)

	_, err := New(Config{MaxBodyBytes: 10}).Fetch(context.Background(), srv.URL+"/big")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.Contains(t, err.Error(), "exceeds 10 bytes")

	res, err := New(Config{MaxBodyBytes: 100}).Fetch(context.Background(), srv.URL+"/big")
	require.NoError(t, err)
	assert.Len(t, res.Body, 100)
}

func TestFetch_PerHostLimiter(t *testing.T) {
	srv := newTestServer(t)
	f := New(Config{RequestsPerSecond: 20})

	start := time.Now()
	for range 3 {
		_, err := f.Fetch(context.Background(), srv.URL+"/page")
		require.NoError(t, err)
	}
	// Burst of one: the second and third requests each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Len(t, f.limiters, 1)
}

func TestFetch_Cancelled(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Fetch(ctx, srv.URL+"/page")
	assert.ErrorIs(t, err, context.Canceled)
}
