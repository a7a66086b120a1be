package eventlog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/intrntsrfr/guildlog/database"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store caches guild configs in front of the database. Callers always receive their own copy,
// so mutating a returned config has no effect until it is passed to Put.
//
// Writes for the same guild are not serialized: two overlapping read-modify-write cycles end
// with the last Put winning.
type Store struct {
	db    database.DB
	log   *zap.Logger
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*GuildConfig
}

func NewStore(db database.DB, log *zap.Logger) *Store {
	return &Store{
		db:    db,
		log:   log,
		cache: make(map[string]*GuildConfig),
	}
}

// Get returns the config of gid. A guild seen for the first time gets a default config,
// which is persisted before it is returned.
func (s *Store) Get(ctx context.Context, gid string) (*GuildConfig, error) {
	if c, ok := s.cached(gid); ok {
		return c.Clone(), nil
	}

	v, err, _ := s.group.Do(gid, func() (interface{}, error) {
		return s.load(ctx, gid)
	})
	if err != nil {
		return nil, err
	}
	return v.(*GuildConfig).Clone(), nil
}

func (s *Store) load(ctx context.Context, gid string) (*GuildConfig, error) {
	if c, ok := s.cached(gid); ok {
		return c, nil
	}

	blob, err := s.db.GetGuildConfig(ctx, gid)
	if errors.Is(err, database.ErrNotFound) {
		c := NewGuildConfig()
		if err := s.persist(ctx, gid, c); err != nil {
			return nil, err
		}
		s.log.Debug("created default guild config", zap.String("guild", gid))
		s.set(gid, c)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load guild config %s: %w", gid, err)
	}

	c, err := DecodeConfig(blob)
	if err != nil {
		return nil, fmt.Errorf("guild %s: %w", gid, err)
	}
	s.set(gid, c)
	return c, nil
}

// Put caches c and then persists it. The cache is updated even when persisting fails.
func (s *Store) Put(ctx context.Context, gid string, c *GuildConfig) error {
	c = c.Clone()
	s.set(gid, c)
	return s.persist(ctx, gid, c)
}

// Update loads the config of gid, applies fn and stores the result.
// It is a plain read-modify-write and gives no isolation from other writers.
func (s *Store) Update(ctx context.Context, gid string, fn func(c *GuildConfig) error) (*GuildConfig, error) {
	c, err := s.Get(ctx, gid)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.Put(ctx, gid, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Forget drops gid from the cache. The stored record is kept.
func (s *Store) Forget(gid string) {
	s.mu.Lock()
	delete(s.cache, gid)
	s.mu.Unlock()
}

// Purge empties the cache.
func (s *Store) Purge() {
	s.mu.Lock()
	s.cache = make(map[string]*GuildConfig)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Store) cached(gid string) (*GuildConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[gid]
	return c, ok
}

func (s *Store) set(gid string, c *GuildConfig) {
	s.mu.Lock()
	s.cache[gid] = c
	s.mu.Unlock()
}

func (s *Store) persist(ctx context.Context, gid string, c *GuildConfig) error {
	blob, err := EncodeConfig(c)
	if err != nil {
		return err
	}
	if err := s.db.SetGuildConfig(ctx, gid, blob); err != nil {
		return fmt.Errorf("save guild config %s: %w", gid, err)
	}
	return nil
}
