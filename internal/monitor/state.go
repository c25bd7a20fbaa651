package monitor

import "sync"

// record is one host's entry. It is always replaced whole.
type record struct {
	snapshot *Snapshot
	fails    int
	inFlight bool
	// retired marks a host dropped from the active set while its fetch was
	// still running; the late result is discarded.
	retired bool
}

// StateTable is the shared per-host state of the collector, tracker,
// accumulator and aggregator.
type StateTable struct {
	mu      sync.RWMutex
	records map[string]record
}

func NewStateTable() *StateTable {
	return &StateTable{records: make(map[string]record)}
}

// Snapshot returns the host's snapshot, if it has one.
func (t *StateTable) Snapshot(id string) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[id]
	if !ok || r.snapshot == nil {
		return Snapshot{}, false
	}
	return *r.snapshot, true
}

// Snapshots returns every host that has a snapshot.
func (t *StateTable) Snapshots() map[string]Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Snapshot, len(t.records))
	for id, r := range t.records {
		if r.snapshot != nil {
			out[id] = *r.snapshot
		}
	}
	return out
}

// Fails returns the consecutive failure count.
func (t *StateTable) Fails(id string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[id].fails
}

// InFlight reports whether a fetch for the host is outstanding.
func (t *StateTable) InFlight(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[id].inFlight
}

// TryBegin marks the host in flight. It returns false if a fetch is already
// outstanding.
func (t *StateTable) TryBegin(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.records[id]
	if r.inFlight {
		return false
	}
	r.inFlight = true
	r.retired = false
	t.records[id] = r
	return true
}

// End clears the in-flight mark. A retired host's record is dropped.
func (t *StateTable) End(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[id]
	if !ok {
		return
	}
	if r.retired {
		delete(t.records, id)
		return
	}
	r.inFlight = false
	t.records[id] = r
}

// update applies fn to the host's record under the write lock. fn returns
// the replacement and whether to keep the record at all. Retired records
// are left alone.
func (t *StateTable) update(id string, fn func(r record, exists bool) (record, bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[id]
	if ok && r.retired {
		return
	}
	next, keep := fn(r, ok)
	if keep {
		t.records[id] = next
	} else {
		delete(t.records, id)
	}
}

// Put replaces the host's snapshot without touching its failure count.
func (t *StateTable) Put(id string, snap Snapshot) {
	t.update(id, func(r record, _ bool) (record, bool) {
		s := snap
		r.snapshot = &s
		return r, true
	})
}

// Remove drops the host's snapshot and failure count. An outstanding fetch
// keeps its in-flight mark.
func (t *StateTable) Remove(id string) {
	t.update(id, func(r record, exists bool) (record, bool) {
		if !exists || !r.inFlight {
			return record{}, false
		}
		return record{inFlight: true}, true
	})
}

// Retain drops every host not in active. Hosts with a fetch outstanding are
// retired so the late result is discarded. It returns the dropped ids.
func (t *StateTable) Retain(active map[string]bool) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var dropped []string
	for id, r := range t.records {
		if active[id] {
			continue
		}
		if r.retired {
			continue
		}
		if r.snapshot != nil {
			dropped = append(dropped, id)
		}
		if r.inFlight {
			t.records[id] = record{inFlight: true, retired: true}
		} else {
			delete(t.records, id)
		}
	}
	return dropped
}

// Counts returns how many hosts are live, offline and polled without a
// snapshot yet.
func (t *StateTable) Counts() (up, down, pending int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.records {
		switch {
		case r.retired:
		case r.snapshot == nil:
			pending++
		case r.snapshot.Offline():
			down++
		default:
			up++
		}
	}
	return up, down, pending
}
