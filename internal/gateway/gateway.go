// ABOUTME: Gateway orchestrator wiring the manifest, action router, and adapters.
// ABOUTME: Manages the HTTP server lifecycle with graceful shutdown.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/chase-gateway/internal/action"
	"github.com/2389/chase-gateway/internal/analysis"
	"github.com/2389/chase-gateway/internal/cache"
	"github.com/2389/chase-gateway/internal/config"
	"github.com/2389/chase-gateway/internal/manifest"
	"github.com/2389/chase-gateway/internal/provider"
)

const shutdownTimeout = 5 * time.Second

// Gateway owns the HTTP server and the wiring between the manifest, the
// action router, and the analysis and explanation adapters.
type Gateway struct {
	config     *config.Config
	manifest   *manifest.Manifest
	router     *action.Router
	provider   provider.Provider
	cache      *cache.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a gateway from config, constructing the real adapters.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	m, err := manifest.Load()
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}

	prov, err := provider.New(cfg.Provider, logger)
	if err != nil {
		return nil, fmt.Errorf("creating explanation provider: %w", err)
	}

	c := cache.New(cfg.Analyzer.CacheTTL, cfg.Analyzer.CacheSize)
	analyzer := analysis.NewCached(analysis.NewScraper(cfg.Analyzer, logger), c, logger)

	return newGateway(cfg, m, analyzer, prov, c, logger), nil
}

// newGateway wires pre-built adapters, used directly by tests.
func newGateway(cfg *config.Config, m *manifest.Manifest, analyzer analysis.Analyzer, prov provider.Provider, c *cache.Cache, logger *slog.Logger) *Gateway {
	g := &Gateway{
		config:   cfg,
		manifest: m,
		router:   action.NewRouter(m, analyzer, prov, logger),
		provider: prov,
		cache:    c,
		logger:   logger.With("component", "gateway"),
	}
	g.httpServer = &http.Server{Handler: g.routes()}
	return g
}

// routes builds the HTTP mux for the gateway endpoints.
func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/.well-known/mcp", g.handleManifest)
	mux.HandleFunc("/mcp", g.handleMCP)
	mux.HandleFunc("/mcp/ws", g.handleStream)
	mux.HandleFunc("/analyze", g.handleAnalyze)

	return mux
}

// Run starts the HTTP server and blocks until ctx is canceled or the
// server fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", listener.Addr().String())
		if err := g.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := g.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// Shutdown stops the HTTP server and releases the analysis cache.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if g.cache != nil {
		g.cache.Close()
	}
	return errors.Join(errs...)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
