package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/database"
	"go.uber.org/zap"
)

// Service ties the logging pipeline together. It owns the config cache and the database
// handle for as long as it runs.
type Service struct {
	Configs    *Store
	Resolver   *Resolver
	Dispatcher *Dispatcher
	Filter     *Filter
	Auditor    *Auditor

	db     database.DB
	client Client
	id     *identity
	log    *zap.Logger
}

func NewService(db database.DB, client Client, log *zap.Logger) *Service {
	id := &identity{client: client}
	store := NewStore(db, log.Named("configs"))
	resolver := newResolver(client, store, id, log.Named("resolver"))
	return &Service{
		Configs:    store,
		Resolver:   resolver,
		Dispatcher: newDispatcher(client, store, resolver, id, log.Named("dispatch")),
		Filter:     &Filter{store: store, log: log.Named("filter")},
		Auditor:    &Auditor{client: client, log: log.Named("audit"), now: time.Now},
		db:         db,
		client:     client,
		id:         id,
		log:        log,
	}
}

// Init fetches the bot identity used to name and adopt webhooks.
func (s *Service) Init(ctx context.Context) error {
	u, err := s.id.get(ctx)
	if err != nil {
		return err
	}
	s.log.Info("event logging ready", zap.String("user", u.Username), zap.String("id", u.ID))
	return nil
}

// Shutdown drops the config cache and closes the database.
func (s *Service) Shutdown() error {
	s.Configs.Purge()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Self returns the bot user, or nil when it could not be fetched.
func (s *Service) Self(ctx context.Context) *discordgo.User {
	u, err := s.id.get(ctx)
	if err != nil {
		return nil
	}
	return u
}

// IsSelf reports whether userID is the bot itself.
func (s *Service) IsSelf(ctx context.Context, userID string) bool {
	u := s.Self(ctx)
	return u != nil && u.ID == userID
}

// Dispatch is shorthand for s.Dispatcher.Dispatch.
func (s *Service) Dispatch(ctx context.Context, gid string, t EventType, p *Payload) {
	s.Dispatcher.Dispatch(ctx, gid, t, p)
}

// IsIgnored is shorthand for s.Filter.IsIgnored.
func (s *Service) IsIgnored(ctx context.Context, gid string, subject Subject) bool {
	return s.Filter.IsIgnored(ctx, gid, subject)
}
