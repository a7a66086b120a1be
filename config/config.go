// Package config loads the bot configuration from a TOML file, with the token optionally
// supplied through the environment or a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/intrntsrfr/meido/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

// TokenEnv overrides discord.token when set.
const TokenEnv = "DISCORD_TOKEN"

var ErrMissingToken = errors.New("discord token is not set")

type Config struct {
	Discord Discord `koanf:"discord"`
	Storage Storage `koanf:"storage"`
	Cache   Cache   `koanf:"cache"`
	Log     Log     `koanf:"log"`
	Metrics Metrics `koanf:"metrics"`
}

type Discord struct {
	Token string `koanf:"token"`
	// Shards is the shard count. 0 asks Discord for the recommended count.
	Shards int `koanf:"shards"`
}

type Storage struct {
	// Driver is "sqlite" or "json".
	Driver string `koanf:"driver"`
	// Path is the sqlite database or the JSON file holding guild configs.
	Path string `koanf:"path"`
	// CacheDir holds the snapshot cache.
	CacheDir string `koanf:"cache_dir"`
}

type Cache struct {
	MessageTTL        time.Duration `koanf:"message_ttl"`
	MaxAttachmentSize int64         `koanf:"max_attachment_size"`
}

type Log struct {
	Level string `koanf:"level"`
	// Format is "console" or "json".
	Format string `koanf:"format"`
}

type Metrics struct {
	// Addr serves /metrics when not empty.
	Addr string `koanf:"addr"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Driver:   "sqlite",
			Path:     "./data/guildlog.db",
			CacheDir: "./data/cache",
		},
		Cache: Cache{
			MessageTTL:        24 * time.Hour,
			MaxAttachmentSize: 1024 * 1024 * 10,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the TOML file at path on top of the defaults. An empty path skips the file. The
// given env files, or .env when none are given, are loaded into the environment first; missing
// env files are not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if token := os.Getenv(TokenEnv); token != "" {
		cfg.Discord.Token = token
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	if c.Discord.Shards < 0 {
		return fmt.Errorf("discord.shards must not be negative, got %d", c.Discord.Shards)
	}
	switch c.Storage.Driver {
	case "sqlite", "json":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Path == "" || c.Storage.CacheDir == "" {
		return errors.New("storage.path and storage.cache_dir are required")
	}
	if c.Cache.MessageTTL <= 0 {
		return fmt.Errorf("cache.message_ttl must be positive, got %s", c.Cache.MessageTTL)
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ZapLevel parses the configured log level.
func (l Log) ZapLevel() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Meido builds the framework config. shards is used when the file leaves the count at 0.
func (c *Config) Meido(shards int) *utils.Config {
	if c.Discord.Shards > 0 {
		shards = c.Discord.Shards
	}
	if shards <= 0 {
		shards = 1
	}
	cfg := utils.NewConfig()
	cfg.Set("token", c.Discord.Token)
	cfg.Set("shards", shards)
	return cfg
}
