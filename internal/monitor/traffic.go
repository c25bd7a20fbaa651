package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/metrics"
	"github.com/rileyhilliard/nekowatch/internal/schedule"
	"github.com/rileyhilliard/nekowatch/internal/store"
)

const DefaultTrafficInterval = 30 * time.Second

// TrafficStore is the part of the store the accumulator writes.
type TrafficStore interface {
	store.Counters
	AddTraffic(ctx context.Context, id string, d store.Delta) error
}

// TrafficAccumulator turns each live host's cumulative byte counters into
// per-interval deltas.
type TrafficAccumulator struct {
	registry host.Registry
	table    *StateTable
	store    TrafficStore
	interval time.Duration
	log      logger.Logger
	metrics  *metrics.Metrics

	// running is held for the length of a Tick.
	running sync.Mutex
}

func NewTrafficAccumulator(reg host.Registry, table *StateTable, st TrafficStore, interval time.Duration, log logger.Logger, m *metrics.Metrics) *TrafficAccumulator {
	if interval <= 0 {
		interval = DefaultTrafficInterval
	}
	if log == nil {
		log = logger.Noop()
	}
	return &TrafficAccumulator{registry: reg, table: table, store: st, interval: interval, log: log, metrics: m}
}

// Register schedules Tick every traffic interval.
func (a *TrafficAccumulator) Register(r schedule.Registrar) {
	r.Every("traffic", a.interval, a.Tick)
}

// counterDelta is cur-last, or cur itself when the counter went backwards
// (the agent restarted and its counter reset).
func counterDelta(last, cur uint64) uint64 {
	if cur < last {
		return cur
	}
	return cur - last
}

// Tick records one delta per active host with a live snapshot. A host's
// storage error is logged and the rest still run. A Tick that starts while
// the previous one is still running is skipped, so a delta is never recorded
// twice.
func (a *TrafficAccumulator) Tick(ctx context.Context) {
	if !a.running.TryLock() {
		a.log.Warn("traffic tick skipped: previous tick still running")
		return
	}
	defer a.running.Unlock()

	hosts, err := a.registry.List(ctx)
	if err != nil {
		a.log.Warn("listing hosts failed: %s", errors.Brief(err))
		return
	}

	for _, h := range hosts {
		if !h.Status.Polled() {
			continue
		}
		snap, ok := a.table.Snapshot(h.ID)
		if !ok || snap.Offline() {
			continue
		}
		if err := a.record(ctx, h.ID, snap.Stat.Net.Total); err != nil {
			a.metrics.TrafficError()
			a.log.Warn("traffic for %s not recorded: %s", h.Name, errors.Brief(err))
		}
	}
}

func (a *TrafficAccumulator) record(ctx context.Context, id string, total InOut) error {
	// A host seen for the first time starts from a zero counter.
	last, _, err := a.store.Counter(ctx, id)
	if err != nil {
		return err
	}

	delta := store.Delta{
		In:  counterDelta(last.In, total.In),
		Out: counterDelta(last.Out, total.Out),
	}
	if err := a.store.SetCounter(ctx, id, store.Counter{In: total.In, Out: total.Out}); err != nil {
		return err
	}
	return a.store.AddTraffic(ctx, id, delta)
}
