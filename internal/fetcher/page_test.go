package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *PageFetcher {
	return NewPageFetcher(PageOptions{
		UserAgent: "test-agent",
		Timeout:   5 * time.Second,
	})
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"newco.com", "https://newco.com"},
		{"  newco.com/contact ", "https://newco.com/contact"},
		{"http://newco.com", "http://newco.com"},
		{"HTTPS://NewCo.com", "HTTPS://NewCo.com"},
		{"//cdn.newco.com", "https://cdn.newco.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><a href="mailto:info@newco.com">mail</a></html>`))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "info@newco.com")
}

func TestFetch_ErrorStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, 1, calls, "page fetches are never retried")
}

func TestFetch_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("cf-ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Attention required"))
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked (cloudflare)")
}

func TestFetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodyBytes+1024)))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, MaxBodyBytes)
}

func TestFetch_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Café" in latin-1.
		_, _ = w.Write([]byte{'C', 'a', 'f', 0xE9})
	}))
	defer srv.Close()

	body, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Café", body)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewPageFetcher(PageOptions{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetch_EmptyURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "   ")
	require.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	out, err := decodeBody("", []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = decodeBody("text/html; charset=UTF-8", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	_, err = decodeBody("text/html; charset=not-a-charset", []byte("x"))
	require.Error(t, err)
}
