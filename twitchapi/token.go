// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for live-stream metadata (title, game, preview thumbnail), using an app
// access token.
package twitchapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenURL = "https://id.twitch.tv/oauth2/token"

// TokenSource fetches and caches a Twitch app access (client credentials)
// token via golang.org/x/oauth2. NOTE: this token CANNOT be used for IRC chat;
// chat requires a user (bot) OAuth token with chat:read/chat:edit scopes.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // override for tests; defaults to the Twitch endpoint

	mu   sync.Mutex
	conf *clientcredentials.Config
}

// Get returns a valid (fresh or cached) app access token.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", errors.New("missing client id/secret for twitch app token")
	}
	ts.mu.Lock()
	if ts.conf == nil {
		u := ts.TokenURL
		if u == "" {
			u = tokenURL
		}
		ts.conf = &clientcredentials.Config{
			ClientID:     ts.ClientID,
			ClientSecret: ts.ClientSecret,
			TokenURL:     u,
		}
	}
	conf := ts.conf
	ts.mu.Unlock()

	tok, err := conf.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// WithHTTPClient returns a context that routes the underlying token request
// through hc (test seam; this is oauth2's standard ContextClient convention).
func WithHTTPClient(ctx context.Context, hc *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}
