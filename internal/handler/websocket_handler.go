package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTValidator validates JWT tokens and returns the subject
type JWTValidator interface {
	ValidateToken(ctx context.Context, token string) (subject string, err error)
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *websocket.Hub
	validator      JWTValidator
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. A nil validator leaves the
// stream open to anonymous subscribers, since settlement records are public.
func NewWebSocketHandler(hub *websocket.Hub, validator JWTValidator, allowedOrigins []string) *WebSocketHandler {
	// Build origin lookup map
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		validator:      validator,
		allowedOrigins: originMap,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Allow requests with no Origin header (e.g., same-origin or non-browser clients)
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles WebSocket connection requests at
// GET /ws?identity=<base58>[&entities=payment,token_account]
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	identity, err := domain.ParseIdentity(c.QueryParam("identity"))
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket connection rejected: invalid identity")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid identity")
	}

	var entities []websocket.EntityType
	if raw := c.QueryParam("entities"); raw != "" {
		entities, err = websocket.ParseEntities(strings.Split(raw, ","))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	subject := ""
	if h.validator != nil {
		token := c.QueryParam("token")
		if token == "" {
			log.Debug().Msg("WebSocket connection rejected: missing token")
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}

		subject, err = h.validator.ValidateToken(c.Request().Context(), token)
		if err != nil {
			log.Debug().Err(err).Msg("WebSocket connection rejected: invalid token")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, identity, h.hub, entities...)
	h.hub.Register(client)

	log.Info().
		Str("identity", identity.String()).
		Str("subject", subject).
		Str("client_id", client.ID()).
		Interface("entities", client.Entities()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}
