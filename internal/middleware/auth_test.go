package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Duration
}

func (m *memoryRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[string]time.Duration)
	}
	m.ids[tokenID] = ttl
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[tokenID]
	return ok, nil
}

func serveWithToken(m *AuthMiddleware, token string, next http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	m.Middleware(next).ServeHTTP(w, r)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, nil, nil)

	token, err := m.IssueToken(42)
	require.NoError(t, err)

	nextCalled := false
	w := serveWithToken(m, token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != 42 {
			t.Fatalf("user id from context = %d, want 42", id)
		}
	}))

	if !nextCalled {
		t.Fatalf("next handler was not called, status %d", w.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, nil, nil)
	other := NewAuthMiddleware("other-secret", time.Hour, nil, nil)
	expired := NewAuthMiddleware("test-secret", -time.Minute, nil, nil)

	foreign, err := other.IssueToken(1)
	require.NoError(t, err)
	stale, err := expired.IssueToken(1)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{name: "no token", token: "", message: "authentication required"},
		{name: "garbage", token: "not-a-jwt", message: "invalid token"},
		{name: "foreign signature", token: foreign, message: "invalid token"},
		{name: "alg none", token: none, message: "invalid token"},
		{name: "expired", token: stale, message: "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithToken(m, tt.token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			}))

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.message, errorMessage(t, w))
		})
	}
}

func TestAuthMiddleware_Revoke(t *testing.T) {
	store := &memoryRevocations{}
	m := NewAuthMiddleware("test-secret", time.Hour, store, nil)

	token, err := m.IssueToken(7)
	require.NoError(t, err)

	w := serveWithToken(m, token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Revoke(r.Context()))
	}))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.ids, 1)
	for _, ttl := range store.ids {
		assert.Greater(t, ttl, 59*time.Minute)
	}

	w = serveWithToken(m, token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("revoked token must be rejected")
	}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token revoked", errorMessage(t, w))
}

func TestAuthMiddleware_RevokeWithoutStore(t *testing.T) {
	m := NewAuthMiddleware("", time.Hour, nil, nil)
	assert.NoError(t, m.Revoke(context.Background()))
}
