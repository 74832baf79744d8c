package api

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// AuthenticatedHTTPClient returns an HTTP client that attaches the
// given API key as a bearer token to every request. Plausible keys are
// static, so a StaticTokenSource is sufficient; there is no refresh
// flow.
func AuthenticatedHTTPClient(ctx context.Context, apiKey string) *http.Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	})
	return oauth2.NewClient(ctx, source)
}
