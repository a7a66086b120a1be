package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS logging_guild_configs (
	guild_id TEXT PRIMARY KEY,
	config   TEXT NOT NULL
);`

type SQLiteDB struct {
	pool *sqlx.DB
	log  *zap.Logger
	path string
}

func NewSQLiteDatabase(c *Config) (*SQLiteDB, error) {
	db := &SQLiteDB{
		log:  c.Log,
		path: c.Path,
	}

	pool, err := sqlx.Connect("sqlite", db.path)
	if err != nil {
		db.log.Error("unable to connect to db", zap.Error(err))
		return nil, err
	}
	// a single writer connection avoids SQLITE_BUSY between concurrent handlers
	pool.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := pool.Exec(pragma); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run %q: %w", pragma, err)
		}
	}

	if _, err := pool.Exec(schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db.pool = pool
	return db, nil
}

func (p *SQLiteDB) Close() error {
	return p.pool.Close()
}

func (p *SQLiteDB) GetGuildConfig(ctx context.Context, gid string) ([]byte, error) {
	var blob string
	err := p.pool.GetContext(ctx, &blob, "SELECT config FROM logging_guild_configs WHERE guild_id = ?;", gid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(blob), nil
}

func (p *SQLiteDB) SetGuildConfig(ctx context.Context, gid string, data []byte) error {
	_, err := p.pool.ExecContext(ctx, `INSERT INTO logging_guild_configs (guild_id, config) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET config = excluded.config;`, gid, string(data))
	return err
}

func (p *SQLiteDB) GuildIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := p.pool.SelectContext(ctx, &ids, "SELECT guild_id FROM logging_guild_configs ORDER BY guild_id;")
	return ids, err
}
