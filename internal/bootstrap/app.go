package bootstrap

import (
	"context"
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/api"
	"github.com/ZertGraf/changelog-builder/internal/api/handler"
	"github.com/ZertGraf/changelog-builder/internal/bitbucket"
	"github.com/ZertGraf/changelog-builder/internal/jira"
	"github.com/ZertGraf/changelog-builder/internal/pkg/config"
	"github.com/ZertGraf/changelog-builder/internal/pkg/httpx"
	"github.com/ZertGraf/changelog-builder/internal/pkg/logger"
	"github.com/ZertGraf/changelog-builder/internal/pkg/postgres"
	"github.com/ZertGraf/changelog-builder/internal/repository"
	"github.com/ZertGraf/changelog-builder/internal/service"
	"io"
)

type Application struct {
	Config   *config.Config
	Logger   *logger.Logger
	Postgres *postgres.Connection // nil unless the archive is enabled
	Migrator *postgres.Migrator

	Bitbucket *bitbucket.Client
	Jira      *jira.Client

	ReportRepo repository.ReportRepository

	ChangelogService *service.ChangelogService

	MetaHandler   *handler.MetaHandler
	ReportHandler *handler.ReportHandler

	HTTPServer *api.HTTPServer
}

// Options tweak New for non-server entry points.
type Options struct {
	// LogOutput overrides where logs are written. The CLI sends them to
	// stderr so stdout carries only the report.
	LogOutput io.Writer
	// DisableArchive skips the database even if ARCHIVE_ENABLED is set.
	DisableArchive bool
}

func New(opts ...Options) (*Application, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}

	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opt.DisableArchive {
		cfg.ArchiveEnabled = false
	}

	log, err := logger.New(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: cfg.LogAddSource,
		Service:   cfg.ServiceName,
		Version:   cfg.ServiceVersion,
		Output:    opt.LogOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: log,
	}

	if cfg.ArchiveEnabled {
		app.Postgres, err = postgres.New(log, &postgres.Config{
			Host:              cfg.DatabaseHost,
			Port:              cfg.DatabasePort,
			Username:          cfg.DatabaseUser,
			Password:          cfg.DatabasePassword,
			Database:          cfg.DatabaseName,
			Schema:            cfg.DatabaseSchema,
			SSLMode:           cfg.DatabaseSSLMode,
			MaxConns:          cfg.DatabaseMaxConns,
			MinConns:          cfg.DatabaseMinConns,
			MaxConnLifetime:   cfg.DatabaseMaxConnLifetime,
			MaxConnIdleTime:   cfg.DatabaseMaxConnIdleTime,
			HealthCheckPeriod: cfg.DatabaseHealthCheckPeriod,
			ConnectTimeout:    cfg.DatabaseConnectTimeout,
			AcquireTimeout:    cfg.DatabaseAcquireTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres connection: %w", err)
		}
	}

	return app, nil
}

// InitPipeline connects the archive (if enabled) and wires the upstream
// clients and the report service. It starts nothing.
func (app *Application) InitPipeline(ctx context.Context) error {
	if app.Postgres != nil {
		if err := app.initArchive(ctx); err != nil {
			return err
		}
	}

	bitbucketAPI, err := httpx.New(&httpx.Config{
		BaseURL: app.Config.BitbucketBaseURL,
		Token:   app.Config.BitbucketAccessToken,
		Timeout: app.Config.BitbucketTimeout,
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create bitbucket client: %w", err)
	}

	jiraAPI, err := httpx.New(&httpx.Config{
		BaseURL: app.Config.JiraBaseURL,
		Token:   app.Config.JiraAccessToken,
		Timeout: app.Config.JiraTimeout,
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create jira client: %w", err)
	}

	app.Bitbucket = bitbucket.NewClient(bitbucketAPI, app.Logger)
	app.Jira = jira.NewClient(jiraAPI, jira.Config{
		EpicLinkField: app.Config.JiraEpicLinkField,
		PmEpicField:   app.Config.JiraPmEpicField,
	}, app.Logger)

	keys, err := service.NewKeyExtractor(app.Config.TicketProjectList())
	if err != nil {
		return fmt.Errorf("failed to create key extractor: %w", err)
	}

	app.ChangelogService = service.NewChangelogService(
		app.Bitbucket,
		service.NewTicketResolver(app.Jira, app.Logger),
		service.NewReportAssembler(keys, app.Logger),
		app.ReportRepo,
		app.Logger,
	)

	return nil
}

func (app *Application) initArchive(ctx context.Context) error {
	if err := app.Postgres.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect report archive: %w", err)
	}

	app.Migrator = postgres.NewMigrator(app.Postgres.Pool(), &postgres.MigrationConfig{
		Timeout:      app.Config.DatabaseMigrationTimeout,
		VersionTable: app.Config.DatabaseMigrationTable,
		Enabled:      app.Config.DatabaseMigrationEnabled,
	}, app.Logger)

	if err := app.Migrator.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to migrate report archive: %w", err)
	}

	app.ReportRepo = repository.NewReportRepo(app.Postgres.Pool(), app.Logger)
	return nil
}

func (app *Application) Init(ctx context.Context) error {
	app.Logger.Info("initializing application")

	if err := app.InitPipeline(ctx); err != nil {
		return err
	}

	app.MetaHandler = handler.NewMetaHandler(
		app.Config.Repositories(),
		app.Config.DefaultReleaseBranch,
		app.Config.ServiceVersion,
		app.Logger,
	)
	app.ReportHandler = handler.NewReportHandler(app.ChangelogService, app.Logger)

	serverConfig := &api.ServerConfig{
		Host:           app.Config.ServerHost,
		Port:           app.Config.ServerPort,
		ReadTimeout:    app.Config.ServerReadTimeout,
		WriteTimeout:   app.Config.ServerWriteTimeout,
		IdleTimeout:    app.Config.ServerIdleTimeout,
		RequestTimeout: app.Config.ServerRequestTimeout,
		AllowedOrigins: app.Config.CORSAllowedOrigins,
	}

	app.HTTPServer = api.NewHTTPServer(
		serverConfig,
		app.MetaHandler,
		app.ReportHandler,
		app.Logger,
	)

	if err := app.HTTPServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	app.Logger.Info("application initialized successfully",
		"repositories", len(app.Config.Repositories()),
		"archive_enabled", app.Postgres != nil,
	)
	return nil
}

func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")

	if app.HTTPServer != nil {
		if err := app.HTTPServer.Stop(ctx); err != nil {
			app.Logger.Error("error stopping http server", "error", err)
		}
	}

	if app.Postgres != nil {
		app.Postgres.Close()
	}

	app.Logger.Info("application shutdown completed")
	return nil
}

func (app *Application) Health(ctx context.Context) error {
	if app.Postgres == nil {
		return nil
	}
	if err := app.Postgres.Health(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if err := app.Migrator.Health(ctx); err != nil {
		return fmt.Errorf("migrator health check failed: %w", err)
	}
	return nil
}
