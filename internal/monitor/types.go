package monitor

import (
	"bytes"
	"encoding/json"
)

// StatPayload is the agent's /stat document.
type StatPayload struct {
	CPU  CPUStat         `json:"cpu"`
	Mem  MemStat         `json:"mem"`
	Net  NetStat         `json:"net"`
	Host json.RawMessage `json:"host,omitempty"`
}

type CPUStat struct {
	// Multi is the aggregate utilisation in [0,1].
	Multi  float64   `json:"multi"`
	Single []float64 `json:"single"`
}

type MemUsage struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

type MemStat struct {
	Virtual MemUsage `json:"virtual"`
	Swap    MemUsage `json:"swap"`
}

// InOut is a pair of byte counts.
type InOut struct {
	In  uint64 `json:"in"`
	Out uint64 `json:"out"`
}

type DeviceStat struct {
	Total InOut `json:"total"`
	Delta InOut `json:"delta"`
}

type NetStat struct {
	Total   InOut                 `json:"total"`
	Delta   InOut                 `json:"delta"`
	Devices map[string]DeviceStat `json:"devices,omitempty"`
}

// Snapshot is the latest known state of a host. A nil Stat means the host
// is confirmed offline.
type Snapshot struct {
	Name string
	Stat *StatPayload
}

// Offline reports whether the snapshot is the offline marker.
func (s Snapshot) Offline() bool { return s.Stat == nil }

type snapshotJSON struct {
	Name string          `json:"name"`
	Stat json.RawMessage `json:"stat"`
}

var falseJSON = json.RawMessage("false")

// MarshalJSON writes an offline snapshot's stat as false.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Name: s.Name, Stat: falseJSON}
	if s.Stat != nil {
		raw, err := json.Marshal(s.Stat)
		if err != nil {
			return nil, err
		}
		out.Stat = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts false or null as the offline marker.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Name = in.Name
	s.Stat = nil

	raw := bytes.TrimSpace(in.Stat)
	if len(raw) == 0 || bytes.Equal(raw, falseJSON) || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var stat StatPayload
	if err := json.Unmarshal(raw, &stat); err != nil {
		return err
	}
	s.Stat = &stat
	return nil
}
