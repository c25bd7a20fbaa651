package monitor

import (
	"context"
	"sync"

	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/host"
)

// fakeFetcher serves canned payloads per host id. A host with a gate blocks
// until the gate is closed or its context ends.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string]StatPayload
	gates    map[string]chan struct{}
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		payloads: map[string]StatPayload{},
		gates:    map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

func (f *fakeFetcher) set(id string, p StatPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[id] = p
}

func (f *fakeFetcher) fail(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.payloads, id)
}

func (f *fakeFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) Fetch(ctx context.Context, h host.Host) (*StatPayload, error) {
	f.mu.Lock()
	f.calls[h.ID]++
	gate := f.gates[h.ID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payloads[h.ID]
	if !ok {
		return nil, errors.New(errors.ErrAgent, "agent down", "")
	}
	// Fresh copy per fetch, like a decoded response.
	cp := p
	if p.Net.Devices != nil {
		cp.Net.Devices = make(map[string]DeviceStat, len(p.Net.Devices))
		for k, v := range p.Net.Devices {
			cp.Net.Devices[k] = v
		}
	}
	return &cp, nil
}

// messages records notifications.
type messages struct {
	mu  sync.Mutex
	got []string
}

func (m *messages) Notify(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, msg)
	return nil
}

func (m *messages) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.got...)
}

func payload(cpu float64, in, out uint64) StatPayload {
	return StatPayload{
		CPU: CPUStat{Multi: cpu, Single: []float64{cpu}},
		Mem: MemStat{
			Virtual: MemUsage{Total: 100, Used: 40, UsedPercent: 40},
			Swap:    MemUsage{Total: 10, Used: 1, UsedPercent: 10},
		},
		Net: NetStat{Total: InOut{In: in, Out: out}, Delta: InOut{In: 5, Out: 7}},
	}
}
