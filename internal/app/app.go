// Package app wires the mythweaver subsystems into a running service: the
// assembly engine, the optional Postgres reference store, the config
// watcher, and the HTTP surface (prompt API, health probes, metrics).
//
// New creates and connects everything; Run blocks until the context is
// cancelled; Shutdown tears the pieces down in reverse order.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ntbao/mythweaver/internal/config"
	"github.com/ntbao/mythweaver/internal/engine"
	"github.com/ntbao/mythweaver/internal/health"
	"github.com/ntbao/mythweaver/internal/refpack"
	"github.com/ntbao/mythweaver/pkg/state"
)

// App owns the service lifecycle.
type App struct {
	cfg     *config.Config
	eng     *engine.Engine
	pool    *pgxpool.Pool
	srv     *http.Server
	watcher *config.Watcher
}

// New builds the application from cfg. When storage.postgres_dsn is set the
// reference store is connected, migrated, and warm-loaded.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	var engOpts []engine.Option
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		store := refpack.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.pool = pool
		engOpts = append(engOpts, engine.WithStore(refpack.Guard(store)))
	}

	eng, err := engine.New(cfg, engOpts...)
	if err != nil {
		if a.pool != nil {
			a.pool.Close()
		}
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := eng.WarmUp(ctx); err != nil {
		slog.Warn("reference warm-load failed, sessions start cold", "err", err)
	}
	a.eng = eng

	if cfg.Server.MetricsAddr != "" {
		a.srv = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           a.routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a, nil
}

// Engine exposes the assembly engine, mainly for the one-shot CLI path.
func (a *App) Engine() *engine.Engine { return a.eng }

// AttachWatcher hands the config watcher to the app so shutdown stops it.
// The watcher is created after the app because its reload callback needs
// the engine.
func (a *App) AttachWatcher(w *config.Watcher) { a.watcher = w }

// routes builds the HTTP mux: prompt API, health probes, Prometheus metrics.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	probes := []health.Probe{
		{Name: "engine", Fn: func(context.Context) error { return nil }},
	}
	if a.pool != nil {
		probes = append(probes, health.Probe{Name: "database", Fn: a.pool.Ping})
	}
	health.New(probes...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/prompt", a.handleBuildPrompt)
	return mux
}

// promptRequest is the POST /v1/prompt body.
type promptRequest struct {
	SessionID   string          `json:"session_id"`
	PlayerInput string          `json:"player_input"`
	State       json.RawMessage `json:"state,omitempty"`
}

// promptResponse is the POST /v1/prompt reply.
type promptResponse struct {
	Prompt           string `json:"prompt"`
	Tokens           int    `json:"tokens"`
	CorrelationToken string `json:"correlation_token"`
	Truncated        bool   `json:"truncated,omitempty"`
	LoreActivations  int    `json:"lore_activations,omitempty"`
}

func (a *App) handleBuildPrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SessionID == "" {
		httpError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}

	var st *state.GameState
	if len(req.State) > 0 {
		var err error
		if st, err = state.LoadSnapshotJSON(req.State); err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
	}

	prompt, err := a.eng.BuildPrompt(r.Context(), req.SessionID, st, req.PlayerInput)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(promptResponse{
		Prompt:           prompt.Text,
		Tokens:           prompt.Tokens,
		CorrelationToken: prompt.CorrelationToken,
		Truncated:        prompt.Truncated,
		LoreActivations:  len(prompt.Lore.Activated),
	})
}

func httpError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Run serves HTTP (when configured) until ctx is cancelled, then shuts
// down. Without an HTTP surface it just blocks on ctx.
func (a *App) Run(ctx context.Context) error {
	if a.srv == nil {
		<-ctx.Done()
		return a.Shutdown(context.Background())
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return fmt.Errorf("app: http server: %w", err)
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(shutCtx)
	}
}

// Shutdown stops the HTTP server, the config watcher, and the database
// pool, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
