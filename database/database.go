package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a guild has no stored config.
var ErrNotFound = errors.New("guild config not found")

// DB persists one opaque config blob per guild.
type DB interface {
	Close() error

	GetGuildConfig(ctx context.Context, gid string) ([]byte, error)
	SetGuildConfig(ctx context.Context, gid string, data []byte) error
	GuildIDs(ctx context.Context) ([]string, error)
}

type Config struct {
	Log *zap.Logger
	// Driver is "sqlite" or "json".
	Driver string
	Path   string
}

// Open returns the backend selected by c.Driver.
func Open(c *Config) (DB, error) {
	switch c.Driver {
	case "", "sqlite":
		return NewSQLiteDatabase(c)
	case "json":
		return NewJSONDatabase(c)
	}
	return nil, fmt.Errorf("unknown storage driver %q", c.Driver)
}
