// Package auth holds the delegated-access credential issued by Google and the
// signed session that carries it between requests.
//
// Components never read session state on their own: HTTP handlers pull the
// Session out of the request and pass its Credential explicitly to every
// remote call.
package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// Scopes requested at sign-in. drive.file limits access to files the app creates or opens.
var Scopes = []string{"openid", "email", "profile", drive.DriveFileScope}

// Credential is a time-bounded, refreshable access token for the user's Google account.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Token converts the credential into an oauth2 token.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.Expiry,
	}
}

// IsZero reports whether the credential carries no access token.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// TokenSource returns a source for c. With a non-nil cfg the source refreshes
// an expired access token using the refresh token; the refreshed token lives
// only as long as the returned source.
func (c Credential) TokenSource(ctx context.Context, cfg *oauth2.Config) oauth2.TokenSource {
	if cfg == nil {
		return oauth2.StaticTokenSource(c.Token())
	}
	return cfg.TokenSource(ctx, c.Token())
}

// CredentialFromToken copies the fields of an oauth2 token.
func CredentialFromToken(tok *oauth2.Token) Credential {
	return Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}

// NewOAuthConfig returns the Google OAuth2 client configuration.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}
