package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Its contents are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	counters map[string]Counter
	traffic  map[string]*Traffic
	minutes  map[string][]LoadSample
	hours    map[string][]LoadSample
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		counters: make(map[string]Counter),
		traffic:  make(map[string]*Traffic),
		minutes:  make(map[string][]LoadSample),
		hours:    make(map[string][]LoadSample),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Counter(ctx context.Context, id string) (Counter, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.counters[id]
	return c, ok, nil
}

func (m *Memory) SetCounter(ctx context.Context, id string, c Counter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[id] = c
	return nil
}

func (m *Memory) Traffic(ctx context.Context, id string) (Traffic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.traffic[id]; ok {
		return t.Clone(), nil
	}
	return NewTraffic(), nil
}

func (m *Memory) AddTraffic(ctx context.Context, id string, d Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.traffic[id]
	if !ok {
		fresh := NewTraffic()
		t = &fresh
		m.traffic[id] = t
	}
	t.Add(d)
	return nil
}

func (m *Memory) ShiftHours(ctx context.Context) error {
	return m.shiftAll(func(t *Traffic) { t.ShiftHours() })
}

func (m *Memory) ShiftDays(ctx context.Context) error {
	return m.shiftAll(func(t *Traffic) { t.ShiftDays() })
}

func (m *Memory) ShiftMonths(ctx context.Context) error {
	return m.shiftAll(func(t *Traffic) { t.ShiftMonths() })
}

func (m *Memory) shiftAll(fn func(*Traffic)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.traffic {
		fn(t)
	}
	return nil
}

func (m *Memory) ShiftMinute(ctx context.Context, id string, s LoadSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minutes[id] = push(m.minutes[id], s, MinuteRing)
	return nil
}

func (m *Memory) ShiftHour(ctx context.Context, id string, s LoadSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hours[id] = push(m.hours[id], s, HourRing)
	return nil
}

func (m *Memory) Minutes(ctx context.Context, id string) ([]LoadSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Pad(append([]LoadSample(nil), m.minutes[id]...), MinuteRing), nil
}

func (m *Memory) Hours(ctx context.Context, id string) ([]LoadSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Pad(append([]LoadSample(nil), m.hours[id]...), HourRing), nil
}

func (m *Memory) Forget(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, id)
	delete(m.traffic, id)
	delete(m.minutes, id)
	delete(m.hours, id)
	return nil
}

func (m *Memory) Close() error { return nil }
