package eventlog

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSent    = "sent"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
	outcomeRetried = "retried"
)

var (
	notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guildlog",
		Name:      "notifications_total",
		Help:      "Notifications handled by the dispatcher, by event type and outcome.",
	}, []string{"type", "outcome"})

	webhooksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "guildlog",
		Name:      "webhooks_created_total",
		Help:      "Webhooks created by the resolver.",
	})
)

// Collectors returns the metrics of this package for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{notificationsTotal, webhooksCreatedTotal}
}
