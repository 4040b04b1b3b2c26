package client

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.http = hc
		return nil
	}
}

// WithHTTPTimeout sets the http.Client timeout. Zero disables the timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("http timeout must be >= 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithOnSessionExpired registers a callback invoked after the stored
// credentials were cleared because a refresh failed. It runs before the
// failing call returns ErrAuthExpired.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) error {
		c.onSessionExpired = fn
		return nil
	}
}

// WithRefreshEndpoint overrides the token refresh endpoint.
func WithRefreshEndpoint(endpoint string) Option {
	return func(c *Client) error {
		if !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("refresh endpoint %q: %w", endpoint, ErrInvalidEndpoint)
		}
		c.refreshEndpoint = endpoint
		return nil
	}
}

// WithDefaultHeader adds a header sent on every request, including refreshes.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) error {
		c.defaultHeader.Set(key, value)
		return nil
	}
}

// requestOptions are the per-call knobs of a request descriptor.
type requestOptions struct {
	requireAuth bool
	header      http.Header
	upload      ProgressFunc
	download    ProgressFunc
}

// ProgressFunc wraps a body stream of the given size (-1 when unknown),
// typically to drive a progress bar or a rate limiter.
type ProgressFunc func(r io.Reader, size int64) io.Reader

// RequestOption adjusts a single call.
type RequestOption func(*requestOptions)

// WithoutAuth sends the request without an Authorization header and never
// attempts a refresh on 401.
func WithoutAuth() RequestOption {
	return WithRequireAuth(false)
}

// WithRequireAuth overrides the default (true).
func WithRequireAuth(required bool) RequestOption {
	return func(o *requestOptions) { o.requireAuth = required }
}

// WithHeader sets an extra header on the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.header.Set(key, value) }
}

// WithUploadProgress wraps the request body on every attempt.
func WithUploadProgress(fn ProgressFunc) RequestOption {
	return func(o *requestOptions) { o.upload = fn }
}

// WithDownloadProgress wraps the response body streamed by Download.
func WithDownloadProgress(fn ProgressFunc) RequestOption {
	return func(o *requestOptions) { o.download = fn }
}

func newRequestOptions(opts []RequestOption) requestOptions {
	ro := requestOptions{requireAuth: true, header: http.Header{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&ro)
		}
	}
	return ro
}
