package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/backend"
	"github.com/raccommode/P-StreamRec/internal/cache"
	"github.com/raccommode/P-StreamRec/internal/config"
	"github.com/raccommode/P-StreamRec/internal/database"
	"github.com/raccommode/P-StreamRec/internal/handler"
	"github.com/raccommode/P-StreamRec/internal/router"
	"github.com/raccommode/P-StreamRec/internal/service"
)

// Agent is the dashboard synchronization agent: two recurring cycles
// (refresh + auto-record), the patch hub and the local HTTP API.
type Agent struct {
	cfg    *config.Config
	logger *zap.Logger
	srv    *http.Server

	engine  *service.Engine
	autorec *service.AutoRecorder
	hub     *service.PatchHub
}

// NewAgent creates the agent: validates config, picks the cache store,
// builds the gateway, engine and HTTP surface.
func NewAgent(cfg *config.Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	store := buildStore(cfg, logger)
	tiered := cache.New(store, cache.TTLs{
		Models:   cfg.ModelsTTL,
		Status:   cfg.StatusTTL,
		Snapshot: cfg.SnapshotTTL,
	})

	gw := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	syncer := service.NewSynchronizer(tiered, gw, logger)
	hub := service.NewPatchHub(cfg.WSReadBufferSize, cfg.WSWriteBufferSize, cfg.WSSendBuffer, logger)
	engine := service.NewEngine(syncer, hub, logger)
	hub.SetSnapshotSource(engine.SnapshotPatches)
	autorec := service.NewAutoRecorder(syncer, gw, cfg.AutoRecordFanOut, logger)

	dashboard := handler.NewDashboardHandler(engine, syncer, gw, logger)
	patchWS := handler.NewPatchWSHandler(hub, logger)
	health := handler.NewHealthHandler()

	r := router.New(dashboard, patchWS, health)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Agent{
		cfg:     cfg,
		logger:  logger,
		srv:     srv,
		engine:  engine,
		autorec: autorec,
		hub:     hub,
	}, nil
}

// buildStore returns the persistent store when CACHE_PERSIST is on and the
// database is reachable; otherwise the in-memory store. Cache persistence
// is advisory, so any failure here only costs first-paint latency.
func buildStore(cfg *config.Config, logger *zap.Logger) cache.Store {
	if !cfg.CachePersist {
		return cache.NewMemoryStore()
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		logger.Warn("cache persistence disabled: migrate failed", zap.Error(err))
		return cache.NewMemoryStore()
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		logger.Warn("cache persistence disabled: open failed", zap.Error(err))
		return cache.NewMemoryStore()
	}
	return cache.NewGormStore(db, logger)
}

// Run starts the HTTP server and both cycles, blocking until ctx is
// cancelled; then shuts down gracefully.
func (a *Agent) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.srv.Addr)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Dashboard:     %s/api/dashboard", base)
	log.Printf("  Models:        %s/api/models", base)
	log.Printf("  Patch stream:  ws://%s:%s/ws/dashboard", host, a.cfg.HTTPPort)

	go a.engine.Run(ctx, a.cfg.RefreshInterval)
	go a.autorec.Run(ctx, a.cfg.AutoRecordInterval)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	_ = a.logger.Sync()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
