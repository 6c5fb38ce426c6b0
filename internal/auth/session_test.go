package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		OwnerID: "google-sub-1",
		Email:   "a@example.com",
		Name:    "A",
		Credential: Credential{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       time.Unix(1_900_000_000, 0),
		},
	}
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewSessionCodec([]byte("secret"), time.Hour)
	tok, err := codec.Encode(testSession())
	require.NoError(t, err)

	got, err := codec.Decode(tok)
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", got.OwnerID)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, "access", got.Credential.AccessToken)
	assert.Equal(t, "refresh", got.Credential.RefreshToken)
	assert.True(t, got.Credential.Expiry.Equal(time.Unix(1_900_000_000, 0)))
}

func TestSessionCodec_Expired(t *testing.T) {
	t.Parallel()

	codec := NewSessionCodec([]byte("secret"), time.Minute)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := codec.Encode(testSession())
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Decode(tok)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionCodec_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewSessionCodec([]byte("right"), time.Hour).Encode(testSession())
	require.NoError(t, err)

	_, err = NewSessionCodec([]byte("wrong"), time.Hour).Decode(tok)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionCodec_RejectsEmptyOwner(t *testing.T) {
	t.Parallel()

	_, err := NewSessionCodec([]byte("s"), time.Hour).Encode(Session{})
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = NewSessionCodec([]byte("s"), time.Hour).Decode("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRequire(t *testing.T) {
	t.Parallel()

	codec := NewSessionCodec([]byte("secret"), time.Hour)
	tok, err := codec.Encode(testSession())
	require.NoError(t, err)

	var seen *Session
	h := codec.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("cookie", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "google-sub-1", seen.OwnerID)
	})

	t.Run("bearer", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
	})

	t.Run("missing", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"errorKind":"Unauthorized"`)
		assert.Nil(t, seen)
	})
}

func TestCredential_TokenSource(t *testing.T) {
	t.Parallel()

	cred := Credential{AccessToken: "at"}
	tok, err := cred.TokenSource(context.Background(), nil).Token()
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.False(t, cred.IsZero())
	assert.True(t, Credential{}.IsZero())
}
