package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte("<html><h1>Widget</h1></html>"))
	}))
	defer server.Close()

	f := New(5*time.Second, slog.Default())
	body, err := f.Fetch(context.Background(), server.URL, RandomIdentity())
	require.NoError(t, err)
	assert.Contains(t, string(body), "Widget")
	assert.Contains(t, gotUserAgent, "Mozilla/5.0")
}

func TestFetchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	f := New(5*time.Second, slog.Default())
	_, err := f.Fetch(context.Background(), server.URL, RandomIdentity())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestFetchConnectionFailure(t *testing.T) {
	f := New(time.Second, slog.Default())
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1", RandomIdentity())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestRandomIdentity(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := RandomIdentity()

		ua := h.Get("User-Agent")
		found := false
		for _, known := range userAgents {
			if ua == known {
				found = true
				break
			}
		}
		assert.True(t, found, "user agent must come from the fixed pool")
		assert.True(t, strings.HasPrefix(h.Get("Accept"), "text/html"))
		assert.Equal(t, "en-US,en;q=0.9", h.Get("Accept-Language"))
		assert.Empty(t, h.Get("Accept-Encoding"))
	}
}
