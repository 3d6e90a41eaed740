package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pactum/pkg/requestcontext"
)

var signingKey = []byte("test-signing-key")

func signToken(t *testing.T, claims ActorClaims, key []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func actorProbe(t *testing.T) (http.Handler, *struct{ id, name string }) {
	t.Helper()
	seen := &struct{ id, name string }{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.id = requestcontext.ActorID(r.Context())
		seen.name = requestcontext.ActorName(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ActorFromToken(signingKey, logger)(next), seen
}

func TestActorFromValidToken(t *testing.T) {
	handler, seen := actorProbe(t)
	token := signToken(t, ActorClaims{
		Name: "Ana",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, signingKey)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", seen.id)
	assert.Equal(t, "Ana", seen.name)
}

func TestMissingHeaderPassesThrough(t *testing.T) {
	handler, seen := actorProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, seen.id)
	assert.Empty(t, seen.name)
}

func TestMalformedHeaderRejected(t *testing.T) {
	handler, _ := actorProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	handler, _ := actorProbe(t)
	token := signToken(t, ActorClaims{
		Name: "Ana",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, signingKey)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "token has expired")
}

func TestTokenSignedWithWrongKeyRejected(t *testing.T) {
	handler, _ := actorProbe(t)
	token := signToken(t, ActorClaims{
		Name: "Ana",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, []byte("other-key"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid token")
}
