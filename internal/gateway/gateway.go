// Package gateway provides the HTTP API surface for the memory subsystem:
// message ingestion, session control, context assembly, compression triggers,
// backup, and monitoring. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/keepsake-ai/keepsake/internal/compress"
	ctxbuild "github.com/keepsake-ai/keepsake/internal/context"
	"github.com/keepsake-ai/keepsake/internal/memory"
	"github.com/keepsake-ai/keepsake/internal/safeguard"
)

// Compressor is the subset of the compression pipeline used by the gateway.
type Compressor interface {
	Compress(ctx context.Context) (compress.Result, error)
}

// Pinger reports durable store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Gateway is the HTTP server. Construct with New, then Start/Stop.
type Gateway struct {
	cfg       Config
	logger    *slog.Logger
	tiers     *memory.TierManager
	assembler *ctxbuild.Assembler
	pipeline  Compressor
	detector  *safeguard.Detector
	pinger    Pinger
	server    *http.Server
	startedAt time.Time
}

// Deps collects the collaborators the gateway serves.
type Deps struct {
	Tiers     *memory.TierManager
	Assembler *ctxbuild.Assembler
	Pipeline  Compressor
	Detector  *safeguard.Detector

	// Pinger is optional; when nil the health check only reports "ok".
	Pinger Pinger

	Logger *slog.Logger
}

// New creates a gateway. Tiers, Assembler, Pipeline, and Detector are required.
func New(cfg Config, deps Deps) (*Gateway, error) {
	cfg.defaults()

	if deps.Tiers == nil || deps.Assembler == nil || deps.Pipeline == nil || deps.Detector == nil {
		return nil, errors.New("gateway: missing required dependency")
	}
	if _, err := net.ResolveTCPAddr("tcp", cfg.Bind); err != nil {
		return nil, errors.New("gateway: invalid bind address: " + cfg.Bind)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gateway{
		cfg:       cfg,
		logger:    logger,
		tiers:     deps.Tiers,
		assembler: deps.Assembler,
		pipeline:  deps.Pipeline,
		detector:  deps.Detector,
		pinger:    deps.Pinger,
	}, nil
}

// Start begins serving. It returns once the listener is bound; serving
// continues on a background goroutine until Stop.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.cfg.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.cfg.ReadTimeout,
		WriteTimeout: g.cfg.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.cfg.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.cfg.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down with the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.cfg.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
