// Package server assembles the HTTP API: routes, middleware chain, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/server/handler"
	"github.com/scimarket/scimarketd/internal/server/middleware"
	"github.com/scimarket/scimarketd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	RateLimit   int    // requests per minute per client; 0 disables
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Nfts     *handler.NftHandler
	Commands *handler.CommandHandler
	Activity *handler.ActivityHandler
	Scan     *handler.ScanHandler
}

// Server is the headless HTTP + WebSocket API for the marketplace.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. limiter and
// wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check, unauthenticated.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Token views.
	mux.HandleFunc("GET /api/nfts/owned", handlers.Nfts.ListOwned)
	mux.HandleFunc("GET /api/nfts/marketplace", handlers.Nfts.ListMarketplace)
	mux.HandleFunc("GET /api/nfts/{tokenId}", handlers.Nfts.GetToken)
	mux.HandleFunc("GET /api/nfts/{tokenId}/commands", handlers.Nfts.PermittedCommands)
	mux.HandleFunc("POST /api/nfts/{tokenId}/validate-bid", handlers.Nfts.ValidateBid)

	// Command execution and history.
	mux.HandleFunc("POST /api/commands/{name}", handlers.Commands.Execute)
	mux.HandleFunc("GET /api/activity", handlers.Activity.List)

	// Scan control.
	mux.HandleFunc("GET /api/scan/status", handlers.Scan.Status)
	mux.HandleFunc("POST /api/scan/trigger", handlers.Scan.Trigger)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Minute)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the server fails or shuts down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
