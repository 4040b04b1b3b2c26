package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the API origin used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	defaultRefreshEndpoint = "/api/auth/refresh/"
	defaultHTTPTimeout     = 30 * time.Second

	headerRequestID = "X-Request-ID"
	contentTypeJSON = "application/json"
)

// TokenStore holds the credential pair the client authenticates with.
// An empty token is reported as absent.
type TokenStore interface {
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	SetTokens(access, refresh string) error
	ClearTokens() error
}

// Client talks to the PetCare API. It attaches bearer authentication and
// recovers once from an expired access token by refreshing it and retrying
// the request. A Client is safe for concurrent use.
type Client struct {
	baseURL string
	base    *url.URL
	http    *http.Client
	tokens  TokenStore

	defaultHeader    http.Header
	refreshEndpoint  string
	onSessionExpired func()

	// Concurrent 401s share a single refresh exchange.
	refreshGroup singleflight.Group
}

// New constructs a Client for the API served at baseURL.
func New(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}
	trimmed := strings.TrimSuffix(baseURL, "/")
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: expected http(s)://host", baseURL)
	}

	c := &Client{
		baseURL:         trimmed,
		base:            base,
		http:            &http.Client{Timeout: defaultHTTPTimeout},
		tokens:          tokens,
		defaultHeader:   http.Header{},
		refreshEndpoint: defaultRefreshEndpoint,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the configured API origin without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET and decodes the JSON response into out (nil discards it).
func (c *Client) Get(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, nil, out, opts)
}

// Post issues a POST with body encoded as JSON, or as multipart for a *Form.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, body, out, opts)
}

// Put issues a PUT. See Post for body encoding.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPut, endpoint, body, out, opts)
}

// Patch issues a PATCH. See Post for body encoding.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPatch, endpoint, body, out, opts)
}

// Delete issues a DELETE. A 204 leaves out untouched.
func (c *Client) Delete(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, out, opts)
}

// Download GETs ref and streams a successful body into w. ref is either an
// endpoint path or an absolute URL. Credentials are only ever sent to the
// configured origin.
func (c *Client) Download(ctx context.Context, ref string, w io.Writer, opts ...RequestOption) (int64, error) {
	target, sameOrigin, err := c.resolve(ref)
	if err != nil {
		return 0, err
	}
	ro := newRequestOptions(opts)
	if !sameOrigin {
		ro.requireAuth = false
	}

	resp, err := c.exchange(ctx, http.MethodGet, target, &payload{}, ro)
	if err != nil {
		return 0, err
	}
	defer closeResponseBody(resp)

	var body io.Reader = resp.Body
	if ro.download != nil {
		body = ro.download(body, resp.ContentLength)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("failed to stream %s: %w", target, err)
	}
	return n, nil
}

// payload is an encoded request body. The same bytes are resent on retry.
type payload struct {
	data        []byte
	contentType string
}

func encodeBody(body any) (*payload, error) {
	switch b := body.(type) {
	case nil:
		return &payload{contentType: contentTypeJSON}, nil
	case *Form:
		if b == nil {
			return &payload{contentType: contentTypeJSON}, nil
		}
		data, contentType, err := b.encode()
		if err != nil {
			return nil, err
		}
		return &payload{data: data, contentType: contentType}, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		return &payload{data: data, contentType: contentTypeJSON}, nil
	}
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any, opts []RequestOption) error {
	if !strings.HasPrefix(endpoint, "/") {
		return fmt.Errorf("%q: %w", endpoint, ErrInvalidEndpoint)
	}
	p, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	resp, err := c.exchange(ctx, method, c.baseURL+endpoint, p, newRequestOptions(opts))
	if err != nil {
		return err
	}
	defer closeResponseBody(resp)
	return decodeResponse(resp, out)
}

// exchange runs try -> refresh once on 401 -> retry once, and returns a 2xx
// response whose body the caller must close.
func (c *Client) exchange(ctx context.Context, method, target string, p *payload, ro requestOptions) (*http.Response, error) {
	var token string
	if ro.requireAuth {
		token, _ = c.tokens.AccessToken()
	}

	resp, err := c.send(ctx, method, target, p, ro, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && ro.requireAuth {
		closeResponseBody(resp)
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthExpired, err)
		}
		resp, err = c.send(ctx, method, target, p, ro, fresh)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, failure(resp)
	}
	return resp, nil
}

// send performs one HTTP exchange with the given bearer token.
func (c *Client) send(ctx context.Context, method, target string, p *payload, ro requestOptions, token string) (*http.Response, error) {
	var body io.Reader
	if len(p.data) > 0 {
		body = bytes.NewReader(p.data)
		if ro.upload != nil {
			body = ro.upload(body, int64(len(p.data)))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("url", target).Msg("Failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.ContentLength = int64(len(p.data))
	}

	for key, values := range c.defaultHeader {
		req.Header[key] = append([]string(nil), values...)
	}
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	for key, values := range ro.header {
		req.Header[key] = append([]string(nil), values...)
	}
	if ro.requireAuth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}
	requestID := req.Header.Get(headerRequestID)

	log.Debug().Str("method", method).Str("url", target).Str("request_id", requestID).Msg("Sending HTTP request")
	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		log.Error().Err(err).Str("method", method).Str("url", target).Str("request_id", requestID).Msg("HTTP request failed")
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	requestsTotal.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()
	log.Debug().Str("method", method).Str("url", target).Str("request_id", requestID).Int("status", resp.StatusCode).Msg("HTTP response received")
	return resp, nil
}

// expireSession tears down the credentials after a failed refresh.
func (c *Client) expireSession(cause error) {
	log.Warn().Err(cause).Msg("Token refresh failed, clearing session")
	if err := c.tokens.ClearTokens(); err != nil {
		log.Error().Err(err).Msg("Failed to clear stored tokens")
	}
	sessionsExpiredTotal.Inc()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

// failure converts a non-2xx response into an *HTTPError and closes it.
func failure(resp *http.Response) error {
	defer closeResponseBody(resp)
	body, err := readResponseBody(resp)
	if err != nil {
		body = nil
	}
	httpErr := newHTTPError(resp.StatusCode, body)
	log.Debug().Int("status", resp.StatusCode).Str("message", httpErr.Message).Msg("HTTP request returned non-successful status")
	return httpErr
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return &NetworkError{Method: resp.Request.Method, URL: resp.Request.URL.String(), Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error().Err(err).Str("body_preview", string(body[:min(len(body), 200)])).Msg("Failed to parse response JSON")
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read response body")
		return nil, err
	}
	return body, nil
}

func closeResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, 1024*1024)
	_ = resp.Body.Close()
}

// resolve turns ref into an absolute URL and reports whether it points at the
// configured origin.
func (c *Client) resolve(ref string) (string, bool, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false, fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", false, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
		}
		return u.String(), u.Scheme == c.base.Scheme && u.Host == c.base.Host, nil
	}
	if !strings.HasPrefix(ref, "/") {
		return "", false, fmt.Errorf("%q: %w", ref, ErrInvalidEndpoint)
	}
	return c.baseURL + ref, true, nil
}

// endpointFor converts a link returned by the API (absolute on the configured
// origin, or root-relative) back into an endpoint for this client.
func (c *Client) endpointFor(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", link, err)
	}
	if u.IsAbs() && (u.Scheme != c.base.Scheme || u.Host != c.base.Host) {
		return "", fmt.Errorf("link %q points outside %s", link, c.baseURL)
	}
	if !strings.HasPrefix(u.Path, "/") {
		return "", fmt.Errorf("%q: %w", link, ErrInvalidEndpoint)
	}
	path := u.Path
	if prefix := c.base.Path; prefix != "" && prefix != "/" {
		if !strings.HasPrefix(path, prefix+"/") {
			return "", fmt.Errorf("link %q is not under %s", link, c.baseURL)
		}
		path = strings.TrimPrefix(path, prefix)
	}
	if u.RawQuery != "" {
		path += "?" + strings.TrimSuffix(u.RawQuery, "&")
	}
	return path, nil
}
