// Package relay hands requests to the bot process through the shared store.
// A request is written as a pending document; the bot executes it and writes
// the terminal status. The web tier waits a bounded time for that status,
// woken early by the notifier when the bot reports through MQTT.
package relay

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyDash/internal/live"
	"github.com/PancyStudios/PancyDash/pkg/metrics"
)

// TimeoutAction decides what a caller gets when the bot does not answer in time
type TimeoutAction int

const (
	// TimeoutAccept answers 202 with the request ID so the caller can re-poll
	TimeoutAccept TimeoutAction = iota
	// TimeoutFail answers 408
	TimeoutFail
)

// Policy is how long and how often a relay waits for the bot
type Policy struct {
	Name         string
	PollInterval time.Duration
	Timeout      time.Duration
	OnTimeout    TimeoutAction
}

var (
	// CommandPolicy governs playback commands
	CommandPolicy = Policy{Name: "command", PollInterval: 500 * time.Millisecond, Timeout: 5 * time.Second, OnTimeout: TimeoutAccept}
	// ProcessPolicy governs process-manager actions
	ProcessPolicy = Policy{Name: "process", PollInterval: time.Second, Timeout: 30 * time.Second, OnTimeout: TimeoutFail}
)

// Notifier pushes a wake-up when the bot reports on a request
type Notifier interface {
	// Watch returns a channel signalled on every report for kind/id and a
	// func that stops watching
	Watch(kind, id string) (<-chan struct{}, func())
	// Announce tells the bot a new request is waiting
	Announce(kind, id string)
}

// Publisher receives relay outcomes for live clients
type Publisher interface {
	Publish(e live.Event)
}

type nopNotifier struct{}

func (nopNotifier) Watch(string, string) (<-chan struct{}, func()) { return nil, func() {} }
func (nopNotifier) Announce(string, string)                        {}

type nopPublisher struct{}

func (nopPublisher) Publish(live.Event) {}

// await re-reads a request until read reports a terminal state, the policy
// deadline passes or ctx ends. Every wake-up, poll tick and the deadline
// itself trigger a read, so a silent notifier only costs latency.
func await[T any](ctx context.Context, p Policy, wake <-chan struct{}, read func(context.Context) (*T, bool, error)) (*T, bool, error) {
	deadline := time.NewTimer(p.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for {
		final := false
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-wake:
			metrics.RelayWakeups.WithLabelValues("notify").Inc()
		case <-ticker.C:
			metrics.RelayWakeups.WithLabelValues("poll").Inc()
		case <-deadline.C:
			metrics.RelayWakeups.WithLabelValues("deadline").Inc()
			final = true
		}

		doc, done, err := read(ctx)
		if err != nil || done || final {
			return doc, done, err
		}
	}
}
