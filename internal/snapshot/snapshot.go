// Package snapshot builds immutable data snapshots from fetched hub lists.
//
// A DataSnapshot captures every hub and probe visible to the signed-in user
// at a point in time. Snapshots are rebuilt on each successful poll and
// swapped wholesale into the UI model; optimistic edits go through Clone so
// a snapshot handed out earlier is never mutated.
package snapshot

import (
	"time"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// DataSnapshot is an immutable, self-contained view of the user's hubs.
type DataSnapshot struct {
	Hubs []model.Hub

	// Counts.
	TotalHubs       int
	ConnectedHubs   int
	TotalProbes     int
	ConnectedProbes int

	// Timestamp of snapshot creation.
	BuiltAt time.Time
}

// Build returns a snapshot that owns a deep copy of hubs.
func Build(hubs []model.Hub) *DataSnapshot {
	s := &DataSnapshot{Hubs: copyHubs(hubs), BuiltAt: time.Now()}
	s.recount()
	return s
}

func copyHubs(hubs []model.Hub) []model.Hub {
	out := make([]model.Hub, len(hubs))
	for i, h := range hubs {
		h.Probes = append([]model.Probe(nil), h.Probes...)
		out[i] = h
	}
	return out
}

func (s *DataSnapshot) recount() {
	s.TotalHubs = len(s.Hubs)
	s.ConnectedHubs, s.TotalProbes, s.ConnectedProbes = 0, 0, 0
	for _, h := range s.Hubs {
		if h.Connected {
			s.ConnectedHubs++
		}
		s.TotalProbes += len(h.Probes)
		s.ConnectedProbes += h.ConnectedProbes()
	}
}

// Clone returns a deep copy suitable for patching.
func (s *DataSnapshot) Clone() *DataSnapshot {
	c := *s
	c.Hubs = copyHubs(s.Hubs)
	return &c
}

// FindHub returns the hub with the given ID.
func (s *DataSnapshot) FindHub(id int64) (model.Hub, bool) {
	if s == nil {
		return model.Hub{}, false
	}
	for _, h := range s.Hubs {
		if h.ID == id {
			return h, true
		}
	}
	return model.Hub{}, false
}

// FindProbe returns the probe with the given ID and the hub that owns it.
func (s *DataSnapshot) FindProbe(id int64) (model.Probe, model.Hub, bool) {
	if s == nil {
		return model.Probe{}, model.Hub{}, false
	}
	for _, h := range s.Hubs {
		for _, p := range h.Probes {
			if p.ID == id {
				return p, h, true
			}
		}
	}
	return model.Probe{}, model.Hub{}, false
}

// UpdateProbe applies fn to the probe with the given ID in place. It must only
// be called on a snapshot obtained from Clone. Reports whether the probe
// was found.
func (s *DataSnapshot) UpdateProbe(id int64, fn func(*model.Probe)) bool {
	for i := range s.Hubs {
		for j := range s.Hubs[i].Probes {
			if s.Hubs[i].Probes[j].ID == id {
				fn(&s.Hubs[i].Probes[j])
				s.recount()
				return true
			}
		}
	}
	return false
}

// UpdateHub applies fn to the hub with the given ID in place. Same rules as
// UpdateProbe.
func (s *DataSnapshot) UpdateHub(id int64, fn func(*model.Hub)) bool {
	for i := range s.Hubs {
		if s.Hubs[i].ID == id {
			fn(&s.Hubs[i])
			s.recount()
			return true
		}
	}
	return false
}

// RemoveProbe drops the probe from its hub. Same rules as UpdateProbe.
func (s *DataSnapshot) RemoveProbe(id int64) bool {
	for i := range s.Hubs {
		ps := s.Hubs[i].Probes
		for j := range ps {
			if ps[j].ID == id {
				s.Hubs[i].Probes = append(ps[:j:j], ps[j+1:]...)
				s.recount()
				return true
			}
		}
	}
	return false
}

// RemoveHub drops the hub and all its probes. Same rules as UpdateProbe.
func (s *DataSnapshot) RemoveHub(id int64) bool {
	for i := range s.Hubs {
		if s.Hubs[i].ID == id {
			s.Hubs = append(s.Hubs[:i:i], s.Hubs[i+1:]...)
			s.recount()
			return true
		}
	}
	return false
}

// VisibleProbes returns the hub's probes with Visible set, in order.
func VisibleProbes(h model.Hub) []model.Probe {
	var out []model.Probe
	for _, p := range h.Probes {
		if p.Visible {
			out = append(out, p)
		}
	}
	return out
}
