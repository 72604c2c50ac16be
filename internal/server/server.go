// Package server is the HTTP + WebSocket API surface of the node.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bitdex/dexnode/internal/server/handler"
	"github.com/bitdex/dexnode/internal/server/middleware"
	"github.com/bitdex/dexnode/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Offers  *handler.OfferHandler
	Catalog *handler.CatalogHandler
}

// Server is the HTTP + WebSocket API server for the node.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Public offer books.
	mux.HandleFunc("GET /api/offers/{book}", handlers.Offers.ListOffers)
	mux.HandleFunc("GET /api/offers/{book}/{txid}", handlers.Offers.GetOffer)

	// Local offers and payments.
	mux.HandleFunc("GET /api/my/offers", handlers.Offers.ListMyOffers)
	mux.HandleFunc("POST /api/my/offers", handlers.Offers.CreateOffer)
	mux.HandleFunc("DELETE /api/my/offers/{txid}", handlers.Offers.CancelOffer)
	mux.HandleFunc("POST /api/payments", handlers.Offers.PayOffer)

	// Reference catalogs and filters.
	mux.HandleFunc("GET /api/catalog/countries", handlers.Catalog.ListCountries)
	mux.HandleFunc("GET /api/catalog/currencies", handlers.Catalog.ListCurrencies)
	mux.HandleFunc("GET /api/catalog/payment-methods", handlers.Catalog.ListPaymentMethods)
	mux.HandleFunc("GET /api/filters", handlers.Catalog.ListFilters)
	mux.HandleFunc("POST /api/filters", handlers.Catalog.AddFilter)
	mux.HandleFunc("DELETE /api/filters", handlers.Catalog.DeleteFilter)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
