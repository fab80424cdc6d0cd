package httpdispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSyncReturnsStatusHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewDispatcher()
	req := &Request{Method: "GET", URL: srv.URL}
	res, err := d.DoSync(context.Background(), "api-1", false, req, TLSConfig{}, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.Status)
	require.Equal(t, "yes", res.Headers["X-Test"])
	require.JSONEq(t, `{"ok":true}`, res.Body)
}

func TestDoSyncReusesSessionClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	req := &Request{Method: "GET", URL: srv.URL}
	_, err := d.DoSync(context.Background(), "api-1", true, req, TLSConfig{}, time.Second)
	require.NoError(t, err)

	client1 := d.sessions["api-1"]
	require.NotNil(t, client1)

	_, err = d.DoSync(context.Background(), "api-1", true, req, TLSConfig{}, time.Second)
	require.NoError(t, err)
	require.Same(t, client1, d.sessions["api-1"])
}

func TestDoSyncTimesOutOnSlowServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	req := &Request{Method: "GET", URL: srv.URL}
	_, err := d.DoSync(context.Background(), "api-1", false, req, TLSConfig{}, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestDoAsyncTimesOutReturningErrTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	req := &Request{Method: "GET", URL: srv.URL}
	_, err := d.DoAsync(context.Background(), "api-1", false, req, TLSConfig{}, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestDoAsyncSucceedsWithinTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDispatcher()
	req := &Request{Method: "GET", URL: srv.URL}
	res, err := d.DoAsync(context.Background(), "api-1", false, req, TLSConfig{}, time.Second)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "ok", res.Body)
}

func TestCloseSessionsClearsMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher()
	req := &Request{Method: "GET", URL: srv.URL}
	_, err := d.DoSync(context.Background(), "api-1", true, req, TLSConfig{}, time.Second)
	require.NoError(t, err)
	require.Len(t, d.sessions, 1)

	d.CloseSessions()
	require.Empty(t, d.sessions)
}
