package monitor

import (
	"context"
	"time"

	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/metrics"
	"github.com/rileyhilliard/nekowatch/internal/notify"
	"github.com/rileyhilliard/nekowatch/internal/schedule"
	"github.com/rileyhilliard/nekowatch/internal/store"
)

// Options configures a Service. Zero values fall back to package defaults.
type Options struct {
	Registry host.Registry
	Store    store.Store
	Fetcher  Fetcher
	Notifier notify.Notifier
	Metrics  *metrics.Metrics

	PollInterval    time.Duration
	PollTimeout     time.Duration
	DownThreshold   int
	TrafficInterval time.Duration
	Location        *time.Location
}

// Service owns the state table and the components working on it.
type Service struct {
	Table      *StateTable
	Tracker    *Tracker
	Collector  *Collector
	Traffic    *TrafficAccumulator
	Aggregator *Aggregator

	registry host.Registry
	store    store.Store
	log      logger.Logger
}

// NewService wires the monitor components together.
func NewService(opts Options) *Service {
	if opts.Fetcher == nil {
		opts.Fetcher = NewAgentClient(nil)
	}
	table := NewStateTable()
	tracker := NewTracker(table, opts.Notifier, opts.DownThreshold, opts.Location,
		logger.NewEnvLogger("[tracker]"), opts.Metrics)

	return &Service{
		Table:   table,
		Tracker: tracker,
		Collector: NewCollector(opts.Registry, opts.Fetcher, tracker, table,
			opts.PollInterval, opts.PollTimeout, logger.NewEnvLogger("[collector]"), opts.Metrics),
		Traffic: NewTrafficAccumulator(opts.Registry, table, opts.Store,
			opts.TrafficInterval, logger.NewEnvLogger("[traffic]"), opts.Metrics),
		Aggregator: NewAggregator(opts.Registry, table, opts.Store, logger.NewEnvLogger("[history]")),
		registry:   opts.Registry,
		store:      opts.Store,
		log:        logger.NewEnvLogger("[monitor]"),
	}
}

// Register schedules polling, traffic accounting and the history jobs.
func (s *Service) Register(r schedule.Registrar) {
	s.Collector.Register(r)
	s.Traffic.Register(r)
	s.Aggregator.Register(r)
}

// Ingest overwrites a host's snapshot with a pushed one. It skips failure
// tracking and notifications entirely.
func (s *Service) Ingest(id string, snap Snapshot) {
	s.log.Warn("pushed snapshot for %s bypasses failure tracking", id)
	s.Table.Put(id, snap)
}

// Stats returns the snapshots of listed hosts. With hidden set, hidden hosts
// are included too.
func (s *Service) Stats(ctx context.Context, hidden bool) (map[string]Snapshot, error) {
	hosts, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	all := s.Table.Snapshots()
	out := make(map[string]Snapshot, len(hosts))
	for _, h := range hosts {
		if !h.Status.Listed() && !(hidden && h.Status == host.StatusHidden) {
			continue
		}
		if snap, ok := all[h.ID]; ok {
			out[h.ID] = snap
		}
	}
	return out, nil
}

// Stat returns one host's snapshot.
func (s *Service) Stat(id string) (Snapshot, bool) {
	return s.Table.Snapshot(id)
}

// History is a host's persisted history.
type History struct {
	Minutes []store.LoadSample `json:"load_m"`
	Hours   []store.LoadSample `json:"load_h"`
	Traffic store.Traffic      `json:"traffic"`
}

// History reads a host's load rings and traffic rollups.
func (s *Service) History(ctx context.Context, id string) (History, error) {
	minutes, err := s.store.Minutes(ctx, id)
	if err != nil {
		return History{}, err
	}
	hours, err := s.store.Hours(ctx, id)
	if err != nil {
		return History{}, err
	}
	traffic, err := s.store.Traffic(ctx, id)
	if err != nil {
		return History{}, err
	}
	return History{Minutes: minutes, Hours: hours, Traffic: traffic}, nil
}
