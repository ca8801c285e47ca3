package postgres

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

// Connection owns the report archive pool.
type Connection struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *Config
}

func New(logger *logger.Logger, config *Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid archive database config: %w", err)
	}
	return &Connection{
		config: config,
		logger: logger.Component("archive/postgres"),
	}, nil
}

// poolConfig maps Config onto pgxpool settings without dialing.
func (c *Connection) poolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse archive connection string: %w", err)
	}
	cfg.MaxConns = c.config.MaxConns
	cfg.MinConns = c.config.MinConns
	cfg.MaxConnLifetime = c.config.MaxConnLifetime
	cfg.MaxConnIdleTime = c.config.MaxConnIdleTime
	cfg.HealthCheckPeriod = c.config.HealthCheckPeriod
	if c.config.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = c.config.ConnectTimeout
	}
	return cfg, nil
}

// Connect opens the pool and pings it once. The ping is bounded by
// ConnectTimeout.
func (c *Connection) Connect(ctx context.Context) error {
	cfg, err := c.poolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create archive pool: %w", err)
	}

	pingCtx, cancel := c.bounded(ctx, c.config.ConnectTimeout)
	defer cancel()

	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("ping archive database %s/%s: %w", c.config.Host, c.config.Database, err)
	}

	c.pool = pool

	c.logger.Info("report archive connected",
		"host", c.config.Host,
		"database", c.config.Database,
		"schema", c.config.Schema,
		"max_conns", c.config.MaxConns,
	)

	return nil
}

func (c *Connection) Pool() *pgxpool.Pool {
	if c.pool == nil {
		panic("archive pool not established, call Connect() first")
	}
	return c.pool
}

func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.logger.Info("report archive disconnected")
	}
}

// Health acquires a pooled connection within AcquireTimeout and pings it.
func (c *Connection) Health(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("archive pool not initialized")
	}

	ctx, cancel := c.bounded(ctx, c.config.AcquireTimeout)
	defer cancel()

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire archive connection: %w", err)
	}
	defer conn.Release()

	return conn.Ping(ctx)
}

func (c *Connection) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
