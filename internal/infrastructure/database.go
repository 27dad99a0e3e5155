// Package infrastructure provides database and connection pool setup.
// The notification inbox and the River job queue share a single pgxpool.
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"memoria.io/portal/internal/config"
	"memoria.io/portal/internal/pkg/logger"
)

// notificationsSchema is the inbox table. Kept as plain DDL; the table is
// small and append-heavy, and the store hand-writes its SQL.
const notificationsSchema = `
CREATE TABLE IF NOT EXISTS notifications (
	id             TEXT PRIMARY KEY,
	period_id      TEXT NOT NULL,
	scope          TEXT NOT NULL,
	category       TEXT NOT NULL,
	priority       TEXT NOT NULL,
	read           BOOLEAN NOT NULL DEFAULT FALSE,
	subject_ref    TEXT NOT NULL DEFAULT '',
	rendered_title TEXT NOT NULL,
	rendered_body  TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	read_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_notifications_scope_created
	ON notifications (scope, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_scope_unread
	ON notifications (scope) WHERE read = FALSE;
`

// DatabaseClients bundles the shared connection pool and the River client.
type DatabaseClients struct {
	// Pool is the shared connection pool (inbox store + River).
	Pool *pgxpool.Pool

	// RiverClient is the River job queue client backed by the shared pool.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients creates the shared connection pool.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	// Timestamps are stored and compared in UTC.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &DatabaseClients{Pool: pool}, nil
}

// AutoMigrate creates the notifications table and the River queue tables.
// Only use in development; production schemas are migration-managed.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("Running inbox schema migration...")
	if _, err := c.Pool.Exec(ctx, notificationsSchema); err != nil {
		return fmt.Errorf("create notifications schema: %w", err)
	}

	logger.Info("Running River migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed",
			zap.Int("versions_applied", len(res.Versions)),
		)
	} else {
		logger.Info("River migration: already up-to-date")
	}
	return nil
}

// InitRiverClient creates a River client with registered workers and the
// periodic maintenance schedule.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, periodic []*river.PeriodicJob, cfg config.RiverConfig) error {
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized", zap.Int("max_workers", cfg.MaxWorkers))
	return nil
}

// Close closes the connection pool.
func (c *DatabaseClients) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
