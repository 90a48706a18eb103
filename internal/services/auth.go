package services

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/clientcredentials"
)

// NewTokenClient returns an *http.Client that attaches bearer tokens
// obtained via the OAuth2 client-credentials grant, refreshing them as they
// expire. Used when the progress backend requires service authentication;
// the local dev server does not.
func NewTokenClient(ctx context.Context, tokenURL, clientID, clientSecret string) *http.Client {
	if tokenURL == "" {
		return http.DefaultClient
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return conf.Client(ctx)
}
