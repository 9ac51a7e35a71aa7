package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/bazaar/bazaar-backend/internal/config"
	"github.com/dafibh/bazaar/bazaar-backend/internal/domain"
	"github.com/dafibh/bazaar/bazaar-backend/internal/handler"
	"github.com/dafibh/bazaar/bazaar-backend/internal/messaging"
	"github.com/dafibh/bazaar/bazaar-backend/internal/middleware"
	"github.com/dafibh/bazaar/bazaar-backend/internal/repository/memory"
	"github.com/dafibh/bazaar/bazaar-backend/internal/repository/postgres"
	"github.com/dafibh/bazaar/bazaar-backend/internal/repository/storage"
	"github.com/dafibh/bazaar/bazaar-backend/internal/service"
	"github.com/dafibh/bazaar/bazaar-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Open the ledger
	var ledger domain.Ledger
	switch cfg.LedgerBackend {
	case config.LedgerBackendMemory:
		log.Warn().Msg("Using in-memory ledger; balances are lost on restart")
		ledger = memory.NewLedger()
	default:
		if cfg.AutoMigrate {
			if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("Failed to migrate database")
			}
		}

		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping database")
		}
		log.Info().Msg("Connected to database")
		ledger = postgres.NewLedgerRepository(pool)
	}

	// Initialize services
	programService := service.NewProgramService(ledger, log.Logger)
	paymentService := service.NewPaymentService(ledger, log.Logger)
	tokenAccountService := service.NewTokenAccountService(ledger, programService, log.Logger)

	// Live updates
	hub := websocket.NewHub()
	paymentService.SetEventPublisher(hub)
	tokenAccountService.SetEventPublisher(hub)

	if cfg.Program.Enabled() {
		if err := bootstrapProgram(context.Background(), programService, cfg.Program); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize program")
		}
	}

	// Event relay sinks
	var sinks []service.EventSink
	var kafkaSink *messaging.KafkaEventSink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink = messaging.NewKafkaEventSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Logger)
		sinks = append(sinks, kafkaSink)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka sink enabled")
	}
	var archive *storage.S3EventArchive
	if cfg.S3.Bucket != "" {
		archive, err = storage.NewS3EventArchive(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 event archive")
		}
		sinks = append(sinks, archive)
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("S3 archive enabled")
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	var relayWorker *service.EventRelayWorker
	if len(sinks) > 0 {
		relayWorker = service.NewEventRelayWorker(ledger, sinks, log.Logger, service.EventRelayWorkerConfig{
			Interval:  cfg.Relay.Interval,
			BatchSize: cfg.Relay.BatchSize,
		})
		relayWorker.Start(workerCtx)
	}

	// Auth (admin routes and WebSocket tokens)
	var authMiddleware *middleware.AuthMiddleware
	var wsValidator handler.JWTValidator
	if cfg.AuthEnabled() {
		authMiddleware, err = middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create auth middleware")
		}
		jwtValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
		}
		wsValidator = jwtValidator
	} else {
		log.Warn().Msg("Auth0 not configured; admin routes are disabled")
	}

	// Rate limiters
	ipLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer ipLimiter.Stop()
	payerLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	defer payerLimiter.Stop()

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(paymentService, programService)
	paymentHandler.SetPayerLimiter(payerLimiter)
	if archive != nil {
		paymentHandler.SetReceiptSigner(archive)
	}
	programHandler := handler.NewProgramHandler(programService)
	tokenAccountHandler := handler.NewTokenAccountHandler(tokenAccountService, programService)
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		status := map[string]interface{}{
			"status":            "ok",
			"websocket_clients": hub.TotalClientCount(),
		}
		if relayWorker != nil {
			status["relay_running"] = relayWorker.IsRunning()
		}
		return c.JSON(http.StatusOK, status)
	})

	// API documentation
	if cfg.Env != "production" {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
		e.GET("/openapi.json", handler.NewOpenAPI3Handler(handler.DefaultServers()))
	}

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, ipLimiter, paymentHandler, programHandler, tokenAccountHandler, wsHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("ledger", cfg.LedgerBackend).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if relayWorker != nil {
		relayWorker.Stop()
	}
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka writer")
		}
	}

	log.Info().Msg("Server exited")
}

// bootstrapProgram runs initialize with parameters from the environment.
// Restarting with the same parameters is a no-op.
func bootstrapProgram(ctx context.Context, programs *service.ProgramService, p config.ProgramConfig) error {
	authority, err := domain.ParseIdentity(p.Authority)
	if err != nil {
		return err
	}
	mint, err := domain.ParseIdentity(p.Mint)
	if err != nil {
		return err
	}
	tokenProgram, err := domain.ParseIdentity(p.TokenProgram)
	if err != nil {
		return err
	}

	_, err = programs.Initialize(ctx, domain.InitializeInput{
		Authority:    authority,
		Mint:         mint,
		TokenProgram: tokenProgram,
		Decimals:     uint8(p.Decimals),
	})
	return err
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			ev := log.Info()
			if res.Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
