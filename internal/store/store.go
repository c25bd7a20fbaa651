// Package store defines the durable state the monitor keeps per host: raw
// traffic counters, traffic rollups and the minute/hour load rings.
package store

import "context"

// Ring and rollup capacities.
const (
	MinuteRing = 60
	HourRing   = 24

	TrafficHours  = 24
	TrafficDays   = 31
	TrafficMonths = 12
)

// NoData marks a load slot with no sample, as opposed to a genuine zero.
const NoData = -1

// Counter is the last raw cumulative traffic reading of a host.
type Counter struct {
	In  uint64 `json:"in"`
	Out uint64 `json:"out"`
}

// Delta is traffic transferred during an interval.
type Delta struct {
	In  uint64 `json:"in"`
	Out uint64 `json:"out"`
}

// Add returns the sum of two deltas.
func (d Delta) Add(o Delta) Delta {
	return Delta{In: d.In + o.In, Out: d.Out + o.Out}
}

// Traffic holds the per-host rollups. The last element of each slice is the
// bucket currently being filled.
type Traffic struct {
	Hours  []Delta `json:"hs"`
	Days   []Delta `json:"ds"`
	Months []Delta `json:"ms"`
}

// NewTraffic returns zero-filled rollups.
func NewTraffic() Traffic {
	return Traffic{
		Hours:  make([]Delta, TrafficHours),
		Days:   make([]Delta, TrafficDays),
		Months: make([]Delta, TrafficMonths),
	}
}

// Add accumulates d into the newest bucket of every granularity.
func (t *Traffic) Add(d Delta) {
	for _, buckets := range [][]Delta{t.Hours, t.Days, t.Months} {
		if n := len(buckets); n > 0 {
			buckets[n-1] = buckets[n-1].Add(d)
		}
	}
}

// ShiftHours starts a new hour bucket, dropping the oldest.
func (t *Traffic) ShiftHours() { t.Hours = shiftBuckets(t.Hours, TrafficHours) }

// ShiftDays starts a new day bucket, dropping the oldest.
func (t *Traffic) ShiftDays() { t.Days = shiftBuckets(t.Days, TrafficDays) }

// ShiftMonths starts a new month bucket, dropping the oldest.
func (t *Traffic) ShiftMonths() { t.Months = shiftBuckets(t.Months, TrafficMonths) }

// Clone returns a deep copy.
func (t Traffic) Clone() Traffic {
	return Traffic{
		Hours:  append([]Delta(nil), t.Hours...),
		Days:   append([]Delta(nil), t.Days...),
		Months: append([]Delta(nil), t.Months...),
	}
}

func shiftBuckets(buckets []Delta, capacity int) []Delta {
	out := append(append([]Delta(nil), buckets...), Delta{})
	if len(out) > capacity {
		out = out[len(out)-capacity:]
	}
	return out
}

// LoadSample is one slot of a load ring.
type LoadSample struct {
	CPU  float64 `json:"cpu"`
	Mem  float64 `json:"mem"`
	Swap float64 `json:"swap"`
	IBW  float64 `json:"ibw"`
	OBW  float64 `json:"obw"`
}

// NoDataSample returns the all-sentinel sample.
func NoDataSample() LoadSample {
	return LoadSample{CPU: NoData, Mem: NoData, Swap: NoData, IBW: NoData, OBW: NoData}
}

// Valid reports whether the sample holds real data.
func (s LoadSample) Valid() bool { return s.CPU != NoData }

// Pad front-fills samples with zero samples up to length. The zero padding is
// a display default and is distinct from the NoData sentinel.
func Pad(samples []LoadSample, length int) []LoadSample {
	if len(samples) >= length {
		return samples[len(samples)-length:]
	}
	out := make([]LoadSample, length-len(samples), length)
	return append(out, samples...)
}

// push appends s to ring, evicting the oldest entries beyond capacity.
func push(ring []LoadSample, s LoadSample, capacity int) []LoadSample {
	ring = append(ring, s)
	if len(ring) > capacity {
		ring = append([]LoadSample(nil), ring[len(ring)-capacity:]...)
	}
	return ring
}

// Counters persists the last raw traffic counter per host.
type Counters interface {
	// Counter returns the stored counter; ok is false when none exists yet.
	Counter(ctx context.Context, id string) (c Counter, ok bool, err error)
	SetCounter(ctx context.Context, id string, c Counter) error
}

// TrafficStore persists traffic rollups.
type TrafficStore interface {
	// Traffic returns the rollups of a host, zero-filled when none exist.
	Traffic(ctx context.Context, id string) (Traffic, error)
	// AddTraffic accumulates d for a host, creating its rollups lazily.
	AddTraffic(ctx context.Context, id string, d Delta) error

	// ShiftHours, ShiftDays and ShiftMonths roll every host's rollups.
	ShiftHours(ctx context.Context) error
	ShiftDays(ctx context.Context) error
	ShiftMonths(ctx context.Context) error
}

// LoadStore persists the load rings.
type LoadStore interface {
	ShiftMinute(ctx context.Context, id string, s LoadSample) error
	ShiftHour(ctx context.Context, id string, s LoadSample) error

	// Minutes and Hours return exactly MinuteRing / HourRing samples,
	// oldest first, front-padded with zero samples.
	Minutes(ctx context.Context, id string) ([]LoadSample, error)
	Hours(ctx context.Context, id string) ([]LoadSample, error)
}

// Store is everything the monitor persists.
type Store interface {
	Counters
	TrafficStore
	LoadStore

	// Forget drops every record of a host.
	Forget(ctx context.Context, id string) error

	Close() error
}
