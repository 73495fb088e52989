package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/metrics"
	"github.com/PancyStudios/PancyDash/pkg/models"
)

// Notifier kinds, also the MQTT topic segment
const (
	KindCommand = "commands"
	KindProcess = "process"
)

// enqueue writes doc exactly once and waits for the bot under p. It returns
// the last document read and whether it had reached a terminal status.
// The watch is registered before the write so an early report is not lost.
func enqueue[T any](ctx context.Context, n Notifier, p Policy, kind, id string, coll database.Collection[T], doc *T, status func(*T) models.RequestStatus) (*T, bool, error) {
	wake, stop := n.Watch(kind, id)
	defer stop()

	if err := coll.Insert(ctx, doc); err != nil {
		metrics.RelayRequests.WithLabelValues(p.Name, "error").Inc()
		return nil, false, fmt.Errorf("queueing %s %s: %w", kind, id, err)
	}
	go n.Announce(kind, id)

	start := time.Now()
	out, done, err := await(ctx, p, wake, func(ctx context.Context) (*T, bool, error) {
		current, err := coll.Get(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("reading %s %s: %w", kind, id, err)
		}
		if current == nil {
			return nil, false, nil
		}
		return current, status(current).Terminal(), nil
	})
	metrics.RelayWait.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())

	switch {
	case err != nil && ctx.Err() != nil:
		metrics.RelayRequests.WithLabelValues(p.Name, "canceled").Inc()
	case err != nil:
		metrics.RelayRequests.WithLabelValues(p.Name, "error").Inc()
	case !done && p.OnTimeout == TimeoutAccept:
		metrics.RelayRequests.WithLabelValues(p.Name, "accepted").Inc()
	case !done:
		metrics.RelayRequests.WithLabelValues(p.Name, "timeout").Inc()
	default:
		metrics.RelayRequests.WithLabelValues(p.Name, string(status(out))).Inc()
	}
	return out, done, err
}
