package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const stateCookie = "oauth_state"

// Identity is the subset of the Google profile the service keeps.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityFetcher resolves the signed-in user from a fresh token source.
type IdentityFetcher func(ctx context.Context, ts oauth2.TokenSource) (*Identity, error)

// GoogleUserinfo fetches the identity from the Google OAuth2 userinfo endpoint.
func GoogleUserinfo(ctx context.Context, ts oauth2.TokenSource) (*Identity, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	return &Identity{Subject: info.Id, Email: info.Email, Name: info.Name}, nil
}

// GoogleLogin implements the authorization-code flow that issues sessions.
type GoogleLogin struct {
	config        *oauth2.Config
	codec         *SessionCodec
	fetchIdentity IdentityFetcher
	secureCookies bool
}

// NewGoogleLogin creates the login handlers. A nil fetch uses GoogleUserinfo.
func NewGoogleLogin(cfg *oauth2.Config, codec *SessionCodec, fetch IdentityFetcher, secureCookies bool) *GoogleLogin {
	if fetch == nil {
		fetch = GoogleUserinfo
	}
	return &GoogleLogin{config: cfg, codec: codec, fetchIdentity: fetch, secureCookies: secureCookies}
}

// HandleLogin redirects to Google's consent screen. Offline access with a
// forced consent prompt guarantees a refresh token on every sign-in.
func (g *GoogleLogin) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	url := g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleCallback exchanges the authorization code and sets the session cookie.
func (g *GoogleLogin) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, err := r.Cookie(stateCookie)
	if err != nil || sc.Value == "" || sc.Value != r.URL.Query().Get("state") {
		http.Error(w, "Bad Request: invalid oauth state", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Bad Request: missing authorization code", http.StatusBadRequest)
		return
	}

	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		slog.Error("OAuth code exchange failed", "error", err)
		http.Error(w, "Unauthorized: code exchange failed", http.StatusUnauthorized)
		return
	}
	identity, err := g.fetchIdentity(ctx, g.config.TokenSource(ctx, tok))
	if err != nil || identity.Subject == "" {
		slog.Error("Failed to resolve signed-in identity", "error", err)
		http.Error(w, "Unauthorized: could not resolve identity", http.StatusUnauthorized)
		return
	}

	token, err := g.codec.Encode(Session{
		OwnerID:    identity.Subject,
		Email:      identity.Email,
		Name:       identity.Name,
		Credential: CredentialFromToken(tok),
	})
	if err != nil {
		slog.Error("Failed to issue session", "error", err)
		http.Error(w, "Internal Server Error: failed to issue session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.codec.TTL().Seconds()),
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("User signed in", "ownerId", identity.Subject)
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout clears the session cookie.
func (g *GoogleLogin) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
