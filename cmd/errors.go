package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/habedi/petcli/client"
	"github.com/habedi/petcli/pkg/clierr"
	"github.com/habedi/petcli/pkg/validation"
)

// toCLIError classifies err into the user-facing taxonomy.
func toCLIError(err error) *clierr.Error {
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return clierr.New(clierr.Validation, formatFieldErrors(fieldErrs), err)
	}
	var fieldErr *validation.FieldError
	if errors.As(err, &fieldErr) {
		return clierr.New(clierr.Validation, formatFieldErrors(validation.Errors{fieldErr}), err)
	}

	if errors.Is(err, client.ErrAuthExpired) {
		return clierr.New(clierr.Auth, sessionExpiredMessage, err)
	}

	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound:
			return clierr.New(clierr.NotFound, "Not found: "+httpErr.Message, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return clierr.New(clierr.Auth, httpErr.Summary(), err)
		default:
			return clierr.New(clierr.HTTP, fmt.Sprintf("Request failed (%d): %s", httpErr.StatusCode, httpErr.Summary()), err)
		}
	}

	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		if errors.Is(err, context.Canceled) {
			return clierr.New(clierr.Network, "Request cancelled.", err)
		}
		return clierr.New(clierr.Network, fmt.Sprintf("Could not reach the server at %s: %v", netErr.URL, netErr.Err), err)
	}

	return clierr.New(clierr.Internal, err.Error(), err)
}

func formatFieldErrors(errs validation.Errors) string {
	var b strings.Builder
	b.WriteString("Invalid input:")
	for _, fe := range errs {
		fmt.Fprintf(&b, "\n  %s: %s", fe.Field, fe.Message)
	}
	return b.String()
}
