package eventlog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher delivers payloads to the channel bound to their event type.
// Delivery is best effort: one retry after recreating a deleted webhook, no queue.
type Dispatcher struct {
	client   Client
	store    *Store
	resolver *Resolver
	id       *identity
	log      *zap.Logger
}

func newDispatcher(client Client, store *Store, resolver *Resolver, id *identity, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client:   client,
		store:    store,
		resolver: resolver,
		id:       id,
		log:      log,
	}
}

// Dispatch sends p to the channel bound to t in guild gid. It does nothing when logging is
// disabled, t is unbound, or the bound channel is gone. Failures are logged here, once, and
// never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, gid string, t EventType, p *Payload) {
	if d == nil || d.client == nil || gid == "" || p == nil {
		return
	}
	log := d.log.With(zap.String("guild", gid), zap.Stringer("type", t), zap.String("dispatch_id", uuid.NewString()))

	cfg, err := d.store.Get(ctx, gid)
	if err != nil {
		d.count(t, outcomeFailed)
		log.Error("failed to load guild config", zap.Error(err))
		return
	}
	if !cfg.Enabled {
		d.count(t, outcomeSkipped)
		return
	}
	channelID, ok := cfg.Channels[t]
	if !ok {
		d.count(t, outcomeSkipped)
		return
	}

	if _, err := d.client.Channel(ctx, channelID); err != nil {
		if errors.Is(err, ErrNotFound) {
			d.count(t, outcomeSkipped)
			log.Debug("log channel no longer exists", zap.String("channel", channelID))
			return
		}
		d.count(t, outcomeFailed)
		log.Warn("failed to look up log channel", zap.String("channel", channelID), zap.Error(err))
		return
	}

	hook, err := d.resolver.Resolve(ctx, gid, t, channelID)
	if err != nil {
		d.count(t, outcomeFailed)
		log.Warn("failed to resolve webhook", zap.String("channel", channelID), zap.Error(err))
		return
	}

	err = d.send(ctx, hook, p)
	if err == nil {
		d.count(t, outcomeSent)
		return
	}
	if !errors.Is(err, ErrNotFound) {
		d.count(t, outcomeFailed)
		log.Warn("failed to send notification", zap.String("webhook", hook.ID), zap.Error(err))
		return
	}

	// the webhook was deleted out of band
	d.count(t, outcomeRetried)
	log.Debug("webhook is gone, recreating", zap.String("webhook", hook.ID))
	if err := d.resolver.Invalidate(ctx, gid, t); err != nil {
		d.count(t, outcomeFailed)
		log.Error("failed to clear stale webhook", zap.Error(err))
		return
	}
	hook, err = d.resolver.Resolve(ctx, gid, t, channelID)
	if err != nil {
		d.count(t, outcomeFailed)
		log.Error("failed to recreate webhook", zap.String("channel", channelID), zap.Error(err))
		return
	}
	if err := d.send(ctx, hook, p); err != nil {
		d.count(t, outcomeFailed)
		log.Error("failed to send notification after recreating webhook", zap.String("webhook", hook.ID), zap.Error(err))
		return
	}
	d.count(t, outcomeSent)
}

func (d *Dispatcher) send(ctx context.Context, hook WebhookHandle, p *Payload) error {
	// without the bot user the webhook posts under its own name
	self, _ := d.id.get(ctx)
	return d.client.ExecuteWebhook(ctx, hook.ID, hook.Token, p.params(self))
}

func (d *Dispatcher) count(t EventType, outcome string) {
	notificationsTotal.WithLabelValues(t.String(), outcome).Inc()
}
