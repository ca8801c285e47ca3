package postgres

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/ZertGraf/changelog-builder/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"time"
)

// ArchiveTables must exist once the embedded migrations have been applied.
var ArchiveTables = []string{"changelog_reports", "changelog_report_stories"}

type MigrationConfig struct {
	Timeout time.Duration
	// VersionTable is tern's bookkeeping table.
	VersionTable string
	Enabled      bool
}

// Migrator brings the archive schema up to the embedded migrations.
type Migrator struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *MigrationConfig
}

func NewMigrator(pool *pgxpool.Pool, config *MigrationConfig, logger *logger.Logger) *Migrator {
	return &Migrator{
		pool:   pool,
		logger: logger.Component("archive/migrator"),
		config: config,
	}
}

// RunMigrations applies pending archive migrations and then checks that every
// archive table is present. With migrations disabled only the check runs.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if !m.config.Enabled {
		m.logger.Info("archive migrations disabled, checking schema only")
		return m.verifyTables(ctx, conn.Conn())
	}

	start := time.Now()

	tm, err := m.load(ctx, conn.Conn())
	if err != nil {
		return err
	}
	tm.OnStart = func(sequence int32, name, direction, _ string) {
		m.logger.Info("applying archive migration",
			"sequence", sequence,
			"name", name,
			"direction", direction,
		)
	}

	current, err := tm.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("get current archive schema version: %w", err)
	}
	latest := int32(len(tm.Migrations))

	if current >= latest {
		m.logger.Info("archive schema up to date", "version", current)
		return m.verifyTables(ctx, conn.Conn())
	}

	if err = tm.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate archive schema from version %d: %w", current, err)
	}
	if err = m.verifyTables(ctx, conn.Conn()); err != nil {
		return err
	}

	m.logger.Info("archive schema migrated",
		"from_version", current,
		"to_version", latest,
		"tables", ArchiveTables,
		"duration", time.Since(start),
	)

	return nil
}

// Health reports an error when the archive schema lags the embedded
// migrations or a table is missing.
func (m *Migrator) Health(ctx context.Context) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tm, err := m.load(ctx, conn.Conn())
	if err != nil {
		return err
	}

	current, err := tm.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("get current archive schema version: %w", err)
	}
	if latest := int32(len(tm.Migrations)); current < latest {
		return fmt.Errorf("archive schema at version %d, want %d", current, latest)
	}

	return m.verifyTables(ctx, conn.Conn())
}

func (m *Migrator) load(ctx context.Context, conn *pgx.Conn) (*migrate.Migrator, error) {
	tm, err := migrate.NewMigrator(ctx, conn, m.config.VersionTable)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if err = tm.LoadMigrations(migrations.MigrationFiles); err != nil {
		return nil, fmt.Errorf("load archive migrations: %w", err)
	}
	return tm, nil
}

func (m *Migrator) verifyTables(ctx context.Context, conn *pgx.Conn) error {
	var missing []string
	for _, table := range ArchiveTables {
		var exists bool
		if err := conn.QueryRow(ctx, `SELECT to_regclass($1::text) IS NOT NULL`, table).Scan(&exists); err != nil {
			return fmt.Errorf("check archive table %s: %w", table, err)
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("archive tables missing: %v", missing)
	}
	return nil
}
