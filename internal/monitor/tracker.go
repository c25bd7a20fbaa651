package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/metrics"
	"github.com/rileyhilliard/nekowatch/internal/notify"
)

// DefaultDownThreshold is the failure count a host must exceed before it is
// reported down.
const DefaultDownThreshold = 10

const timestampLayout = "2006-01-02 15:04:05"

// Tracker applies fetch results to the state table with failure debouncing.
// A host goes down after more than Threshold consecutive failures and comes
// back on the first success.
type Tracker struct {
	table     *StateTable
	notifier  notify.Notifier
	threshold int
	loc       *time.Location
	now       func() time.Time
	log       logger.Logger
	metrics   *metrics.Metrics
}

// NewTracker creates a tracker. A threshold <= 0 uses DefaultDownThreshold.
func NewTracker(table *StateTable, n notify.Notifier, threshold int, loc *time.Location, log logger.Logger, m *metrics.Metrics) *Tracker {
	if threshold <= 0 {
		threshold = DefaultDownThreshold
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Noop()
	}
	if n == nil {
		n = notify.NewLog(log)
	}
	return &Tracker{
		table:     table,
		notifier:  n,
		threshold: threshold,
		loc:       loc,
		now:       time.Now,
		log:       log,
		metrics:   m,
	}
}

// Success records a successful fetch. payload must not be shared with any
// other goroutine; it is published as-is.
func (t *Tracker) Success(ctx context.Context, h host.Host, payload *StatPayload) {
	if h.Device != "" {
		if dev, ok := payload.Net.Devices[h.Device]; ok {
			payload.Net.Total = dev.Total
			payload.Net.Delta = dev.Delta
		}
	}

	recovered := false
	t.table.update(h.ID, func(r record, _ bool) (record, bool) {
		recovered = r.snapshot != nil && r.snapshot.Offline()
		r.snapshot = &Snapshot{Name: h.Name, Stat: payload}
		r.fails = 0
		return r, true
	})

	if recovered {
		t.log.Info("%s is back online", h.Name)
		t.metrics.Transition("up")
		t.send(ctx, "#recovered", h)
	}
}

// Failure records a failed fetch. Inactive hosts are dropped instead.
func (t *Tracker) Failure(ctx context.Context, h host.Host) {
	if !h.Status.Polled() {
		t.table.Remove(h.ID)
		return
	}

	down := false
	t.table.update(h.ID, func(r record, _ bool) (record, bool) {
		r.fails++
		if r.fails > t.threshold && (r.snapshot == nil || !r.snapshot.Offline()) {
			// Only a host that was live announces; one that never answered
			// goes straight to offline quietly.
			down = r.snapshot != nil
			r.snapshot = &Snapshot{Name: h.Name}
		}
		return r, true
	})

	if down {
		t.log.Warn("%s is down after %d failed polls", h.Name, t.threshold+1)
		t.metrics.Transition("down")
		t.send(ctx, "#down", h)
	}
}

func (t *Tracker) send(ctx context.Context, tag string, h host.Host) {
	msg := fmt.Sprintf("%s %s %s", tag, h.Name, t.now().In(t.loc).Format(timestampLayout))
	if err := t.notifier.Notify(ctx, msg); err != nil {
		t.log.Warn("notify %s failed: %s", h.Name, errors.Brief(err))
	}
}
