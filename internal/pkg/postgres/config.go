package postgres

import (
	"fmt"
	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// ApplicationName is reported to the server so archive sessions are easy to
// spot in pg_stat_activity.
const ApplicationName = "changelog-builder"

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config describes the database that holds the report archive.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Schema   string
	SSLMode  string

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// ConnectTimeout bounds dialing a single connection and the initial ping.
	ConnectTimeout time.Duration
	// AcquireTimeout bounds taking a pooled connection for health checks.
	AcquireTimeout time.Duration
}

// ConnString renders the config as a postgres:// URL. Credentials are
// escaped, so passwords may contain spaces or quotes.
func (c *Config) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	} else {
		u.User = url.User(c.Username)
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	query.Set("application_name", ApplicationName)
	if c.Schema != "" && c.Schema != "public" {
		query.Set("search_path", c.Schema)
	}
	if c.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = query.Encode()

	return u.String()
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.Host, Required, is.Host),
		Field(&c.Port, Required, Min(1), Max(65535)),
		Field(&c.Username, Required, Length(1, 63)),
		Field(&c.Password, Length(0, 1000)),
		Field(&c.Database, Required, Length(1, 63)),
		Field(&c.Schema, Length(0, 63), Match(schemaPattern).Error("schema must be a lowercase identifier")),
		Field(&c.SSLMode, Required, In("disable", "allow", "prefer", "require", "verify-ca", "verify-full")),

		Field(&c.MaxConns, Required, Min(int32(1)), Max(int32(100))),
		Field(&c.MinConns, Min(int32(0)), By(c.validateMinConns)),
		Field(&c.MaxConnLifetime, Required, Min(time.Minute), Max(24*time.Hour)),
		Field(&c.MaxConnIdleTime, Required, Min(time.Second), Max(time.Hour)),
		Field(&c.HealthCheckPeriod, Required, Min(10*time.Second), Max(10*time.Minute)),
		Field(&c.ConnectTimeout, Min(time.Second), Max(time.Minute)),
		Field(&c.AcquireTimeout, Min(time.Duration(0)), Max(time.Minute)),
	)
}

func (c *Config) validateMinConns(value interface{}) error {
	minConns, ok := value.(int32)
	if !ok {
		return fmt.Errorf("min conns must be an int32")
	}
	if minConns > c.MaxConns {
		return fmt.Errorf("min conns (%d) cannot be greater than max conns (%d)", minConns, c.MaxConns)
	}
	return nil
}
