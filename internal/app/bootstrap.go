// Package app is the composition root: bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"memoria.io/portal/internal/api/handlers"
	"memoria.io/portal/internal/api/middleware"
	"memoria.io/portal/internal/config"
	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/infrastructure"
	"memoria.io/portal/internal/jobs"
	"memoria.io/portal/internal/moderation"
	"memoria.io/portal/internal/notification"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/pkg/worker"
	"memoria.io/portal/internal/refresh"
	"memoria.io/portal/internal/registry"
	"memoria.io/portal/internal/taxonomy"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools

	coordinator *refresh.Coordinator
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		PollPoolSize:    cfg.Worker.PollPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	reg := newRegistry(cfg)

	// Notification inbox: Postgres in real deployments, in-process for dev.
	var db *infrastructure.DatabaseClients
	var store notification.Store
	if cfg.Database.InMemory {
		store = notification.NewMemoryStore()
		logger.Warn("notification inbox is in-memory; records are lost on restart")
	} else {
		db, err = infrastructure.NewDatabaseClients(ctx, cfg.Database)
		if err != nil {
			pools.Shutdown()
			return nil, fmt.Errorf("init database: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(ctx); err != nil {
				db.Close()
				pools.Shutdown()
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
		}
		store = notification.NewPGStore(db.Pool)
	}

	projector := counts.NewProjector(reg)
	broadcaster := refresh.NewBroadcaster(cfg.Refresh.BufferSize)
	coordinator := refresh.NewCoordinator(reg, projector, broadcaster, pools, cfg.Refresh)
	dispatcher := notification.NewDispatcher(store)
	gateway := moderation.NewGateway(reg, projector, dispatcher, coordinator)

	taxonomies := taxonomy.NewCache()
	if cfg.Taxonomy.FixturePath != "" {
		tax, err := taxonomy.LoadFile(cfg.Taxonomy.FixturePath)
		if err != nil {
			if db != nil {
				db.Close()
			}
			pools.Shutdown()
			return nil, fmt.Errorf("load taxonomy fixture: %w", err)
		}
		taxonomies.Put(tax)
		logger.Info("taxonomy fixture loaded",
			zap.String("period_id", tax.PeriodID()),
			zap.String("path", cfg.Taxonomy.FixturePath))
	}

	// Background maintenance runs through River when Postgres is present.
	if db != nil {
		workers := river.NewWorkers()
		river.AddWorker(workers, jobs.NewNotificationCleanupWorker(store, cfg.River.NotificationRetention))
		river.AddWorker(workers, jobs.NewCountReconcileWorker(reg, projector))

		periodic := []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(24*time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return jobs.NotificationCleanupArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.River.ReconcileInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return jobs.CountReconcileArgs{}, nil
				},
				nil,
			),
		}

		if err := db.InitRiverClient(workers, periodic, cfg.River); err != nil {
			db.Close()
			pools.Shutdown()
			return nil, fmt.Errorf("init river workers: %w", err)
		}
	}

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  cfg.Security.JWTExpiresIn,
	}

	server := handlers.NewServer(handlers.ServerDeps{
		Registry:    reg,
		Gateway:     gateway,
		Projector:   projector,
		Store:       store,
		Dispatcher:  dispatcher,
		Taxonomies:  taxonomies,
		Broadcaster: broadcaster,
		Pools:       pools,
		JWTCfg:      jwtCfg,
	})

	return &Application{
		Config:      cfg,
		Router:      newRouter(server, jwtCfg.SigningKey),
		DB:          db,
		Pools:       pools,
		coordinator: coordinator,
	}, nil
}

// newRegistry selects the submission registry backend. The data service is
// the store of record; the in-memory registry exists for dev and tests.
func newRegistry(cfg *config.Config) registry.Registry {
	if strings.HasPrefix(cfg.Upstream.BaseURL, "memory:") {
		logger.Warn("submission registry is in-memory; submissions are lost on restart")
		return registry.NewMemoryRegistry()
	}
	return registry.NewHTTPRegistry(cfg.Upstream.BaseURL, cfg.Upstream.RequestTimeout)
}
