package handler

import (
	"github.com/dafibh/bazaar/bazaar-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes. A nil authMiddleware leaves the admin
// routes unregistered.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, ipLimiter *middleware.RateLimiter, paymentHandler *PaymentHandler, programHandler *ProgramHandler, tokenAccountHandler *TokenAccountHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")
	if ipLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(ipLimiter, middleware.ClientIPKey))
	}

	// Payment routes (signed by the payer)
	payments := api.Group("/payments")
	payments.POST("", paymentHandler.ProcessPayment)
	payments.GET("", paymentHandler.ListPayments)
	payments.GET("/:orderId", paymentHandler.GetPayment)
	payments.GET("/:orderId/receipt", paymentHandler.GetReceipt)

	// Program routes
	api.GET("/program", programHandler.GetProgram)

	// Token account routes
	tokenAccounts := api.Group("/token-accounts")
	tokenAccounts.GET("/associated", tokenAccountHandler.GetAssociatedAddress)
	tokenAccounts.GET("/:address", tokenAccountHandler.GetTokenAccount)

	// Admin routes (protected)
	if authMiddleware != nil {
		admin := api.Group("/admin")
		admin.Use(authMiddleware.Authenticate())
		admin.Use(authMiddleware.RequirePermission(middleware.PermissionAdmin))
		admin.POST("/initialize", programHandler.Initialize)
		admin.POST("/token-accounts", tokenAccountHandler.OpenTokenAccount)
		admin.POST("/token-accounts/:address/mint", tokenAccountHandler.MintTo)
	}

	// WebSocket stream
	if wsHandler != nil {
		e.GET("/ws", wsHandler.HandleWS)
	}
}
