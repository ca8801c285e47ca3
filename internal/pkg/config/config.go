package config

import (
	"fmt"
	"github.com/ZertGraf/changelog-builder/internal/domain"
	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/ilyakaznacheev/cleanenv"
	"os"
	"strings"
	"time"
)

type Config struct {
	// application settings
	Environment    string `env:"ENVIRONMENT" env-default:"development"`
	ServiceName    string `env:"SERVICE_NAME" env-default:"changelog-builder"`
	ServiceVersion string `env:"SERVICE_VERSION" env-default:"1.0.0"`

	// logging configuration
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"text"`
	LogAddSource bool   `env:"LOG_ADD_SOURCE" env-default:"false"`

	// http server configuration
	ServerHost           string        `env:"SERVER_HOST" env-default:"0.0.0.0"`
	ServerPort           int           `env:"SERVER_PORT" env-default:"8081"`
	ServerReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	ServerWriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"3m"`
	ServerIdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" env-default:"2m"`
	CORSAllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`

	// upstream change source
	BitbucketBaseURL     string        `env:"BITBUCKET_BASE_URL" env-required:"true"`
	BitbucketAccessToken string        `env:"BITBUCKET_ACCESS_TOKEN" env-required:"true"`
	BitbucketTimeout     time.Duration `env:"BITBUCKET_TIMEOUT" env-default:"30s"`

	// upstream ticket tracker
	JiraBaseURL       string        `env:"JIRA_BASE_URL" env-required:"true"`
	JiraAccessToken   string        `env:"JIRA_ACCESS_TOKEN" env-required:"true"`
	JiraTimeout       time.Duration `env:"JIRA_TIMEOUT" env-default:"30s"`
	JiraEpicLinkField string        `env:"JIRA_EPIC_LINK_FIELD" env-default:"customfield_10371"`
	JiraPmEpicField   string        `env:"JIRA_PM_EPIC_FIELD" env-default:"customfield_12272"`

	// report settings
	TicketProjects       []string `env:"TICKET_PROJECTS" env-separator:"," env-default:"MBCS,MBBO,MBOS,MBSS"`
	RepositoryList       []string `env:"REPOSITORIES" env-separator:","`
	DefaultReleaseBranch string   `env:"DEFAULT_RELEASE_BRANCH" env-default:"release/2025-09"`

	// report archive
	ArchiveEnabled bool `env:"ARCHIVE_ENABLED" env-default:"false"`

	// database connection settings
	DatabaseHost     string `env:"DATABASE_HOST" env-default:"localhost"`
	DatabasePort     int    `env:"DATABASE_PORT" env-default:"5432"`
	DatabaseUser     string `env:"DATABASE_USER" env-default:"postgres"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_NAME" env-default:"postgres"`
	DatabaseSchema   string `env:"DATABASE_SCHEMA" env-default:"public"`
	DatabaseSSLMode  string `env:"DATABASE_SSL_MODE" env-default:"require"`

	// database connection pool settings
	DatabaseMaxConns          int32         `env:"DATABASE_MAX_CONNS" env-default:"10"`
	DatabaseMinConns          int32         `env:"DATABASE_MIN_CONNS" env-default:"1"`
	DatabaseMaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	DatabaseMaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	DatabaseHealthCheckPeriod time.Duration `env:"DATABASE_HEALTH_CHECK_PERIOD" env-default:"1m"`
	DatabaseConnectTimeout    time.Duration `env:"DATABASE_CONNECT_TIMEOUT" env-default:"30s"`
	DatabaseAcquireTimeout    time.Duration `env:"DATABASE_ACQUIRE_TIMEOUT" env-default:"10s"`

	// database migrations settings
	DatabaseMigrationEnabled bool          `env:"DATABASE_MIGRATION_ENABLED" env-default:"true"`
	DatabaseMigrationTimeout time.Duration `env:"DATABASE_MIGRATION_TIMEOUT" env-default:"5m"`
	DatabaseMigrationTable   string        `env:"DATABASE_MIGRATION_TABLE" env-default:"schema_version"`
}

func New() (*Config, error) {
	var cfg Config

	// read from .env file if exists (optional)
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read dotenv file: %w", err)
	}

	// read from environment variables (required)
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.ServerPort, Required, Min(1), Max(65535)),
		Field(&c.ServerRequestTimeout, Required, Min(time.Second)),
		Field(&c.BitbucketBaseURL, Required, is.URL),
		Field(&c.BitbucketAccessToken, Required),
		Field(&c.JiraBaseURL, Required, is.URL),
		Field(&c.JiraAccessToken, Required),
		Field(&c.JiraEpicLinkField, Required),
		Field(&c.JiraPmEpicField, Required),
		Field(&c.RepositoryList, By(validateRepositories)),
		Field(&c.DefaultReleaseBranch, Required),
	)
}

// Repositories returns the configured repositories in declaration order.
// Blank entries are skipped.
func (c *Config) Repositories() []domain.RepoRef {
	repos := make([]domain.RepoRef, 0, len(c.RepositoryList))
	for _, entry := range c.RepositoryList {
		repo, ok := parseRepository(entry)
		if ok {
			repos = append(repos, repo)
		}
	}
	return repos
}

func parseRepository(entry string) (domain.RepoRef, bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return domain.RepoRef{}, false
	}
	projectKey, slug, found := strings.Cut(entry, "/")
	if !found {
		return domain.RepoRef{}, false
	}
	return domain.RepoRef{
		ProjectKey: strings.TrimSpace(projectKey),
		Slug:       strings.TrimSpace(slug),
	}, true
}

func validateRepositories(value interface{}) error {
	entries, ok := value.([]string)
	if !ok {
		return fmt.Errorf("repositories must be a list")
	}
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		repo, ok := parseRepository(entry)
		if !ok || repo.Validate() != nil || strings.Contains(repo.Slug, "/") {
			return fmt.Errorf("repository %q must be in PROJECT/slug form", entry)
		}
		if seen[repo.String()] {
			return fmt.Errorf("repository %q is listed more than once", entry)
		}
		seen[repo.String()] = true
	}
	return nil
}

// TicketProjectList returns the ticket project prefixes with blanks removed.
func (c *Config) TicketProjectList() []string {
	projects := make([]string, 0, len(c.TicketProjects))
	for _, project := range c.TicketProjects {
		if project = strings.TrimSpace(project); project != "" {
			projects = append(projects, project)
		}
	}
	return projects
}
