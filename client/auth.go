package client

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	loginEndpoint            = "/api/auth/login/"
	registerEndpoint         = "/api/auth/register/"
	meEndpoint               = "/api/auth/me/"
	generateThoughtsEndpoint = "/api/auth/generate-thoughts/"
)

// AuthService wraps the account endpoints and owns the login/logout side of
// the credential lifecycle.
type AuthService struct {
	api    *Client
	tokens TokenStore
}

// NewAuthService returns an AuthService that stores credentials in tokens,
// which should be the same store the client reads from.
func NewAuthService(api *Client, tokens TokenStore) *AuthService {
	return &AuthService{api: api, tokens: tokens}
}

// Login exchanges credentials for a token pair and stores it.
func (s *AuthService) Login(ctx context.Context, creds LoginCredentials) (*Tokens, error) {
	if err := ValidateLogin(creds); err != nil {
		return nil, err
	}

	var tokens Tokens
	if err := s.api.Post(ctx, loginEndpoint, creds, &tokens, WithoutAuth()); err != nil {
		return nil, err
	}
	if tokens.Access == "" || tokens.Refresh == "" {
		return nil, fmt.Errorf("login response is missing tokens")
	}
	if err := s.tokens.SetTokens(tokens.Access, tokens.Refresh); err != nil {
		return nil, fmt.Errorf("failed to store tokens: %w", err)
	}
	log.Info().Str("username", creds.Username).Msg("Logged in")
	return &tokens, nil
}

// Register creates an account. It does not log in.
func (s *AuthService) Register(ctx context.Context, data RegisterData, confirmPassword string) (*User, error) {
	if err := ValidateRegistration(data, confirmPassword); err != nil {
		return nil, err
	}
	var user User
	if err := s.api.Post(ctx, registerEndpoint, data, &user, WithoutAuth()); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var user User
	if err := s.api.Get(ctx, meEndpoint, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GenerateThoughts asks the server to write a new thought of the day for
// each of the user's animals.
func (s *AuthService) GenerateThoughts(ctx context.Context) (*ThoughtsResult, error) {
	var result ThoughtsResult
	if err := s.api.Post(ctx, generateThoughtsEndpoint, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout forgets the stored credentials.
func (s *AuthService) Logout() error {
	if err := s.tokens.ClearTokens(); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	log.Info().Msg("Logged out")
	return nil
}

// IsAuthenticated reports whether an access token is stored.
func (s *AuthService) IsAuthenticated() bool {
	_, ok := s.tokens.AccessToken()
	return ok
}
