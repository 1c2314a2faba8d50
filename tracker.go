package main

import (
	"sort"
	"sync"
)

// broadcaster is anything that wants the full snapshot whenever a bus moves.
type broadcaster interface {
	broadcast(vehicles []Vehicle)
}

// tracker keeps the last position of every bus for the monitor server. The
// publisher writes it, HTTP handlers read it.
type tracker struct {
	mu           sync.Mutex
	lastVehicles map[string]Vehicle
	out          broadcaster
}

func newTracker(out broadcaster) *tracker {
	return &tracker{
		lastVehicles: make(map[string]Vehicle),
		out:          out,
	}
}

func (t *tracker) Record(busID, route string, update PositionUpdate, results []PublishResult) {
	ok := true
	for _, r := range results {
		ok = ok && r.OK()
	}
	changed, snapshot := t.detectChange(Vehicle{
		ID:            busID,
		Lat:           update.Lat,
		Lon:           update.Lng,
		Route:         route,
		LastUpdate:    update.Timestamp,
		LastPublishOK: ok,
	})
	if changed && t.out != nil {
		t.out.broadcast(snapshot)
	}
}

func (t *tracker) detectChange(v Vehicle) (bool, []Vehicle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.lastVehicles[v.ID]
	moved := !ok || prev.Lat != v.Lat || prev.Lon != v.Lon
	changed := moved || prev.LastPublishOK != v.LastPublishOK
	if !moved {
		// stationary buses keep the time they last moved
		v.LastUpdate = prev.LastUpdate
	}
	t.lastVehicles[v.ID] = v
	return changed, t.snapshotLocked()
}

// Snapshot returns a copy sorted by bus id.
func (t *tracker) Snapshot() []Vehicle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *tracker) snapshotLocked() []Vehicle {
	out := make([]Vehicle, 0, len(t.lastVehicles))
	for _, v := range t.lastVehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
