package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

// Session is the authenticated caller: the identity-provider subject plus the
// credential forwarded to remote calls.
type Session struct {
	OwnerID    string
	Email      string
	Name       string
	Credential Credential
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt,omitempty"`
	TokenExpiry  int64  `json:"tex,omitempty"`
}

// SessionCodec signs and verifies session tokens (HS256).
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec creates a codec. ttl bounds the session, not the access token.
func NewSessionCodec(secret []byte, ttl time.Duration) *SessionCodec {
	return &SessionCodec{secret: secret, ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// Encode signs s into a compact JWT.
func (c *SessionCodec) Encode(s Session) (string, error) {
	if s.OwnerID == "" {
		return "", fmt.Errorf("encode session: %w", ErrInvalidSession)
	}
	now := c.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.OwnerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email:        s.Email,
		Name:         s.Name,
		AccessToken:  s.Credential.AccessToken,
		RefreshToken: s.Credential.RefreshToken,
	}
	if !s.Credential.Expiry.IsZero() {
		claims.TokenExpiry = s.Credential.Expiry.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Decode verifies a token and returns its session.
func (c *SessionCodec) Decode(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	s := &Session{
		OwnerID: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Credential: Credential{
			AccessToken:  claims.AccessToken,
			RefreshToken: claims.RefreshToken,
		},
	}
	if claims.TokenExpiry != 0 {
		s.Credential.Expiry = time.Unix(claims.TokenExpiry, 0)
	}
	return s, nil
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom extracts the session installed by the middleware.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
