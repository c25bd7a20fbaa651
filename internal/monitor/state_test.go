package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTable_InFlight(t *testing.T) {
	table := NewStateTable()

	assert.True(t, table.TryBegin("a"))
	assert.True(t, table.InFlight("a"))
	assert.False(t, table.TryBegin("a"))
	assert.True(t, table.TryBegin("b"))

	table.End("a")
	assert.False(t, table.InFlight("a"))
	assert.True(t, table.TryBegin("a"))

	table.End("missing")
}

func TestStateTable_PutAndSnapshots(t *testing.T) {
	table := NewStateTable()
	p := payload(0.1, 1, 2)
	table.Put("a", Snapshot{Name: "A", Stat: &p})
	table.Put("b", Snapshot{Name: "B"})
	table.TryBegin("c")

	snaps := table.Snapshots()
	assert.Len(t, snaps, 2)
	assert.True(t, snaps["b"].Offline())

	up, down, pending := table.Counts()
	assert.Equal(t, [3]int{1, 1, 1}, [3]int{up, down, pending})
}

func TestStateTable_Retain(t *testing.T) {
	table := NewStateTable()
	p := payload(0.1, 1, 2)
	table.Put("keep", Snapshot{Name: "keep", Stat: &p})
	table.Put("idle", Snapshot{Name: "idle", Stat: &p})
	table.Put("busy", Snapshot{Name: "busy", Stat: &p})
	table.TryBegin("busy")

	dropped := table.Retain(map[string]bool{"keep": true})
	assert.ElementsMatch(t, []string{"idle", "busy"}, dropped)

	_, ok := table.Snapshot("idle")
	assert.False(t, ok)
	_, ok = table.Snapshot("busy")
	assert.False(t, ok)

	// A late result for a retired host is discarded.
	table.Put("busy", Snapshot{Name: "busy", Stat: &p})
	_, ok = table.Snapshot("busy")
	assert.False(t, ok)
	assert.False(t, table.TryBegin("busy"))

	table.End("busy")
	assert.False(t, table.InFlight("busy"))
	_, ok = table.Snapshot("keep")
	assert.True(t, ok)
}

func TestStateTable_Remove(t *testing.T) {
	table := NewStateTable()
	table.Put("a", Snapshot{Name: "a"})
	table.Remove("a")
	_, ok := table.Snapshot("a")
	assert.False(t, ok)

	table.TryBegin("b")
	table.Put("b", Snapshot{Name: "b"})
	table.Remove("b")
	_, ok = table.Snapshot("b")
	assert.False(t, ok)
	assert.True(t, table.InFlight("b"))
}
