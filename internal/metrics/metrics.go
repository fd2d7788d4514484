// Package metrics exposes the bot's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "amaa_remind"

var (
	providerAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_attempts_total",
		Help:      "Text generation attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Inbound messages by the route they took.",
	}, []string{"route"})

	events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calendar_writes_total",
		Help:      "Calendar writes by operation and outcome.",
	}, []string{"operation", "outcome"})

	reminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_total",
		Help:      "Reminder lifecycle transitions.",
	}, []string{"state"})
)

// ProviderAttempt records one generation attempt.
func ProviderAttempt(provider string, err error) {
	providerAttempts.WithLabelValues(provider, outcome(err)).Inc()
}

// Message records the route an inbound message took, such as "event" or
// "conversation".
func Message(route string) {
	messages.WithLabelValues(route).Inc()
}

// CalendarWrite records a calendar insert, patch or delete.
func CalendarWrite(operation string, err error) {
	events.WithLabelValues(operation, outcome(err)).Inc()
}

// Reminder records a reminder entering state: scheduled, fired, failed
// or purged.
func Reminder(state string, n int) {
	if n <= 0 {
		return
	}
	reminders.WithLabelValues(state).Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
