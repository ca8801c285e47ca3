package logger

import (
	"fmt"
	. "github.com/go-ozzo/ozzo-validation"
	"io"
	"log/slog"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type Config struct {
	Level     string
	Format    string
	AddSource bool

	// Service and Version, when set, are attached to every record.
	Service string
	Version string

	// Output defaults to stdout. The CLI points it at stderr so that the
	// rendered report owns stdout.
	Output io.Writer
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.Level, Required, By(knownLevel)),
		Field(&c.Format, Required, In("json", "text")),
		Field(&c.Version, Length(0, 64)),
	)
}

func knownLevel(value interface{}) error {
	level, _ := value.(string)
	if _, ok := levels[level]; !ok {
		return fmt.Errorf("must be one of debug, info, warn, error")
	}
	return nil
}

// SlogLevel maps Level onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	if level, ok := levels[c.Level]; ok {
		return level
	}
	return slog.LevelInfo
}
