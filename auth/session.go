package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/habedi/petcli/client"
	"github.com/habedi/petcli/db"
	"github.com/rs/zerolog/log"
)

const storeTimeout = 5 * time.Second

var _ client.TokenStore = (*Session)(nil)

// Session is the credential store the API client reads from. Tokens are
// cached in memory and written through to the underlying storer, so a
// refreshed access token survives the process.
type Session struct {
	storer TokenStorer

	mu      sync.RWMutex
	access  string
	refresh string
}

// NewSession returns an empty Session. Call Load to read persisted tokens.
func NewSession(storer TokenStorer) *Session {
	return &Session{storer: storer}
}

// Load reads the persisted tokens into memory. A missing record leaves the
// session logged out.
func (s *Session) Load(ctx context.Context) error {
	token, err := s.storer.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored tokens: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == nil {
		s.access, s.refresh = "", ""
		return nil
	}
	s.access, s.refresh = token.AccessToken, token.RefreshToken
	return nil
}

func (s *Session) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.access != ""
}

func (s *Session) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh, s.refresh != ""
}

// SetTokens replaces both tokens. The in-memory copy is updated even when
// persisting fails, so the current process keeps working.
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.storer.Upsert(ctx, &db.Token{AccessToken: access, RefreshToken: refresh}); err != nil {
		log.Error().Err(err).Msg("Failed to persist tokens")
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// ClearTokens forgets both tokens.
func (s *Session) ClearTokens() error {
	s.mu.Lock()
	s.access, s.refresh = "", ""
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.storer.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear stored tokens")
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is held.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.AccessToken()
	return ok
}
