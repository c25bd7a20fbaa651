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
)

const (
	DefaultPollInterval = 1500 * time.Millisecond
	DefaultPollTimeout  = 15 * time.Second
)

// Collector polls every active host's agent once per tick.
type Collector struct {
	registry host.Registry
	fetcher  Fetcher
	tracker  *Tracker
	table    *StateTable
	interval time.Duration
	timeout  time.Duration
	log      logger.Logger
	metrics  *metrics.Metrics
}

// NewCollector creates a collector. Zero durations use the defaults.
func NewCollector(reg host.Registry, f Fetcher, tr *Tracker, table *StateTable, interval, timeout time.Duration, log logger.Logger, m *metrics.Metrics) *Collector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		registry: reg,
		fetcher:  f,
		tracker:  tr,
		table:    table,
		interval: interval,
		timeout:  timeout,
		log:      log,
		metrics:  m,
	}
}

// Register schedules PollOnce every poll interval. Ticks do not wait for
// each other; the in-flight guard keeps a slow host from piling up fetches.
func (c *Collector) Register(r schedule.Registrar) {
	r.Every("poll", c.interval, func(ctx context.Context) {
		_ = c.PollOnce(ctx)
	})
}

// PollOnce fetches every active host not already in flight and returns once
// all of those fetches have settled. Hosts that are no longer active lose
// their snapshot. Only a registry failure is returned.
func (c *Collector) PollOnce(ctx context.Context) error {
	hosts, err := c.registry.List(ctx)
	if err != nil {
		c.log.Warn("listing hosts failed: %s", errors.Brief(err))
		return err
	}

	active := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h.Status.Polled() {
			active[h.ID] = true
		}
	}
	for _, id := range c.table.Retain(active) {
		c.log.Debug("dropped snapshot of inactive host %s", id)
	}

	var wg sync.WaitGroup
	for _, h := range hosts {
		if !h.Status.Polled() {
			continue
		}
		if !c.table.TryBegin(h.ID) {
			c.metrics.PollSkipped()
			continue
		}

		wg.Add(1)
		go func(h host.Host) {
			defer wg.Done()
			defer c.table.End(h.ID)
			c.pollHost(ctx, h)
		}(h)
	}
	wg.Wait()

	c.metrics.SetHosts(c.table.Counts())
	return nil
}

func (c *Collector) pollHost(ctx context.Context, h host.Host) {
	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := c.fetcher.Fetch(fctx, h)
	if err != nil {
		c.log.Debug("poll %s failed: %s", h.Name, errors.Brief(err))
		c.metrics.PollFinished(false)
		c.tracker.Failure(ctx, h)
		return
	}
	c.metrics.PollFinished(true)
	c.tracker.Success(ctx, h, payload)
}
