package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/bazaar/bazaar-backend/internal/testutil"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// mockJWTValidator is a test double for JWT validation
type mockJWTValidator struct {
	subject string
	err     error
}

func (m *mockJWTValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	return m.subject, m.err
}

var testAllowedOrigins = []string{"http://localhost:3000", "https://bazaar.app"}

func wsRequest(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebSocketHandler_HandleWS_InvalidIdentity(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{subject: "auth0|1"}, testAllowedOrigins)

	c, _ := wsRequest("/ws?identity=not-base58!&token=valid")
	err := h.HandleWS(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_UnknownEntity(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), nil, testAllowedOrigins)
	alice := testutil.NewWallet(1)

	c, _ := wsRequest("/ws?identity=" + alice.Identity.String() + "&entities=payment,loan")
	err := h.HandleWS(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_MissingToken(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{subject: "auth0|1"}, testAllowedOrigins)
	alice := testutil.NewWallet(1)

	c, _ := wsRequest("/ws?identity=" + alice.Identity.String())
	err := h.HandleWS(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_InvalidToken(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), &mockJWTValidator{err: errors.New("expired")}, testAllowedOrigins)
	alice := testutil.NewWallet(1)

	c, _ := wsRequest("/ws?identity=" + alice.Identity.String() + "&token=invalid-jwt")
	err := h.HandleWS(c)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_AnonymousWithoutValidator_NoUpgrade(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), nil, testAllowedOrigins)
	alice := testutil.NewWallet(1)

	c, _ := wsRequest("/ws?identity=" + alice.Identity.String())
	err := h.HandleWS(c)

	// Not an upgrade request, so the upgrader fails after the identity check passes
	assert.Error(t, err)
	_, isHTTPErr := err.(*echo.HTTPError)
	assert.False(t, isHTTPErr)
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), nil, testAllowedOrigins)

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"allowed origin", "http://localhost:3000", true},
		{"allowed origin https", "https://bazaar.app", true},
		{"disallowed origin", "https://evil.com", false},
		{"empty origin (same-origin)", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expected, h.checkOrigin(req))
		})
	}
}
