package monitor

import (
	"context"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/schedule"
	"github.com/rileyhilliard/nekowatch/internal/store"
)

// Wall-clock triggers of the history jobs.
var (
	MinuteSpec = schedule.Spec{Second: 0, Minute: schedule.Any, Hour: schedule.Any, Date: schedule.Any}
	HourSpec   = schedule.Spec{Second: 1, Minute: 0, Hour: schedule.Any, Date: schedule.Any}
	DaySpec    = schedule.Spec{Second: 2, Minute: 0, Hour: 4, Date: schedule.Any}
	MonthSpec  = schedule.Spec{Second: 3, Minute: 0, Hour: 4, Date: 1}
)

// HistoryStore is the part of the store the aggregator writes.
type HistoryStore interface {
	store.LoadStore
	ShiftHours(ctx context.Context) error
	ShiftDays(ctx context.Context) error
	ShiftMonths(ctx context.Context) error
}

// Aggregator rolls live snapshots into the load rings and rolls the traffic
// buckets at hour, day and month boundaries.
type Aggregator struct {
	registry host.Registry
	table    *StateTable
	store    HistoryStore
	log      logger.Logger
}

func NewAggregator(reg host.Registry, table *StateTable, st HistoryStore, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Noop()
	}
	return &Aggregator{registry: reg, table: table, store: st, log: log}
}

// Register schedules the four history jobs.
func (a *Aggregator) Register(r schedule.Registrar) {
	r.At("minute", MinuteSpec, a.MinuteJob)
	r.At("hour", HourSpec, a.HourJob)
	r.At("day", DaySpec, a.DayJob)
	r.At("month", MonthSpec, a.MonthJob)
}

// sampleOf is the load sample of a snapshot, or the no-data sample.
func sampleOf(snap Snapshot, ok bool) store.LoadSample {
	if !ok || snap.Offline() {
		return store.NoDataSample()
	}
	s := snap.Stat
	return store.LoadSample{
		CPU:  s.CPU.Multi * 100,
		Mem:  s.Mem.Virtual.UsedPercent,
		Swap: s.Mem.Swap.UsedPercent,
		IBW:  float64(s.Net.Delta.In),
		OBW:  float64(s.Net.Delta.Out),
	}
}

// average is the per-field mean of the valid samples, or the no-data sample
// when there are none.
func average(samples []store.LoadSample) store.LoadSample {
	var sum store.LoadSample
	n := 0
	for _, s := range samples {
		if !s.Valid() {
			continue
		}
		n++
		sum.CPU += s.CPU
		sum.Mem += s.Mem
		sum.Swap += s.Swap
		sum.IBW += s.IBW
		sum.OBW += s.OBW
	}
	if n == 0 {
		return store.NoDataSample()
	}
	f := float64(n)
	return store.LoadSample{CPU: sum.CPU / f, Mem: sum.Mem / f, Swap: sum.Swap / f, IBW: sum.IBW / f, OBW: sum.OBW / f}
}

// MinuteJob shifts every registered host's current load into its minute ring.
func (a *Aggregator) MinuteJob(ctx context.Context) {
	a.eachHost(ctx, "minute", func(h host.Host) error {
		snap, ok := a.table.Snapshot(h.ID)
		return a.store.ShiftMinute(ctx, h.ID, sampleOf(snap, ok))
	})
}

// HourJob closes the traffic hour bucket, then shifts the mean of each
// host's minute ring into its hour ring.
func (a *Aggregator) HourJob(ctx context.Context) {
	if err := a.store.ShiftHours(ctx); err != nil {
		a.log.Error("hourly traffic rollup failed: %s", errors.Brief(err))
	}
	a.eachHost(ctx, "hour", func(h host.Host) error {
		minutes, err := a.store.Minutes(ctx, h.ID)
		if err != nil {
			return err
		}
		return a.store.ShiftHour(ctx, h.ID, average(minutes))
	})
}

// DayJob closes the traffic day bucket.
func (a *Aggregator) DayJob(ctx context.Context) {
	if err := a.store.ShiftDays(ctx); err != nil {
		a.log.Error("daily traffic rollup failed: %s", errors.Brief(err))
	}
}

// MonthJob closes the traffic month bucket.
func (a *Aggregator) MonthJob(ctx context.Context) {
	if err := a.store.ShiftMonths(ctx); err != nil {
		a.log.Error("monthly traffic rollup failed: %s", errors.Brief(err))
	}
}

func (a *Aggregator) eachHost(ctx context.Context, job string, fn func(h host.Host) error) {
	hosts, err := a.registry.List(ctx)
	if err != nil {
		a.log.Warn("%s job: listing hosts failed: %s", job, errors.Brief(err))
		return
	}
	for _, h := range hosts {
		if err := fn(h); err != nil {
			a.log.Warn("%s job: %s: %s", job, h.Name, errors.Brief(err))
		}
	}
}
