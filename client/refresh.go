package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

const refreshFlightKey = "refresh"

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// refresh returns the access token to retry a rejected request with.
// staleToken is the bearer the rejected request carried. When the store
// already holds a different token another call refreshed in the meantime,
// and that token is reused without contacting the server. A failed refresh
// expires the session exactly once, inside the flight, so every waiter sees
// the same error without repeating the teardown.
func (c *Client) refresh(ctx context.Context, staleToken string) (string, error) {
	v, err, shared := c.refreshGroup.Do(refreshFlightKey, func() (any, error) {
		current, ok := c.tokens.AccessToken()
		if current != staleToken {
			if ok {
				log.Debug().Msg("Access token was already refreshed, reusing it")
				return current, nil
			}
			// An earlier flight failed and already cleared the session.
			return "", errSessionCleared
		}
		// One caller giving up must not fail the others waiting on this flight.
		token, err := c.performRefresh(context.WithoutCancel(ctx))
		if err != nil {
			c.expireSession(err)
			return "", err
		}
		return token, nil
	})
	if shared {
		log.Debug().Msg("Shared an in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// performRefresh posts the stored refresh token and persists the new access
// token. The refresh token itself is kept as is.
func (c *Client) performRefresh(ctx context.Context) (string, error) {
	refreshToken, ok := c.tokens.RefreshToken()
	if !ok || refreshToken == "" {
		refreshesTotal.WithLabelValues("no_token").Inc()
		return "", errNoRefreshToken
	}

	data, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", fmt.Errorf("failed to encode refresh request: %w", err)
	}

	log.Info().Msg("Access token rejected, refreshing...")
	ro := newRequestOptions([]RequestOption{WithoutAuth()})
	resp, err := c.send(ctx, http.MethodPost, c.baseURL+c.refreshEndpoint, &payload{data: data, contentType: contentTypeJSON}, ro, "")
	if err != nil {
		refreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to perform token refresh: %w", err)
	}
	defer closeResponseBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		refreshesTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("token refresh failed with status %d", resp.StatusCode)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		refreshesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to read token refresh response: %w", err)
	}
	var result refreshResponse
	if err := json.Unmarshal(body, &result); err != nil {
		refreshesTotal.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("failed to parse token refresh response: %w", err)
	}
	if result.Access == "" {
		refreshesTotal.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("token refresh response has no access token")
	}

	if err := c.tokens.SetTokens(result.Access, refreshToken); err != nil {
		log.Warn().Err(err).Msg("Failed to persist refreshed access token")
	}
	refreshesTotal.WithLabelValues("success").Inc()
	log.Info().Msg("Token refreshed successfully.")
	return result.Access, nil
}
