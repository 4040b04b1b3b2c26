package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// memTokens is an in-memory TokenStore.
type memTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	sets    int
	clears  int
}

func newMemTokens(access, refresh string) *memTokens {
	return &memTokens{access: access, refresh: refresh}
}

func (m *memTokens) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.access != ""
}

func (m *memTokens) RefreshToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, m.refresh != ""
}

func (m *memTokens) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
	m.sets++
	return nil
}

func (m *memTokens) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	m.clears++
	return nil
}

func newTestServer(t *testing.T, r chi.Router) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string, tokens TokenStore, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, tokens, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// refreshHandler accepts refresh token want and issues access.
func refreshHandler(t *testing.T, want, access string, calls *int32Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.inc()
		if r.Header.Get("Authorization") != "" {
			t.Errorf("refresh request must be unauthenticated, got %q", r.Header.Get("Authorization"))
		}
		var body refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh != want {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": access})
	}
}

type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
