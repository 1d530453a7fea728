// Package demo simulates the shared demo hub: four probes whose
// temperatures swing on a sine wave with a little jitter, plus a bounded
// reading history per probe.
package demo

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

const (
	// HubID is the fixed ID of the demo hub. Demo IDs are negative so they
	// never collide with real hubs and probes.
	HubID   int64 = -1
	HubName       = "Demo Hub"

	// DefaultHistory is the per-probe history length: 720 steps of 30s is
	// six hours.
	DefaultHistory = 720
	// DefaultStep is how often the simulation advances.
	DefaultStep = 30 * time.Second

	jitter         = 1.5
	phaseIncrement = 2 * math.Pi / 18
)

// ErrNotFound is returned for an unknown demo hub or probe ID.
var ErrNotFound = errors.New("demo: not found")

type probeState struct {
	probe     model.Probe
	baseTemp  float64
	amplitude float64
	phase     float64
}

// DefaultColours is the palette offered for new probes.
var DefaultColours = []string{
	"#E91E63", "#9C27B0", "#673AB7", "#3F51B5", "#2196F3",
	"#03A9F4", "#00BCD4", "#009688", "#4CAF50", "#8BC34A",
	"#CDDC39", "#FFEB3B", "#FFC107", "#FF9800", "#FF5722",
}

// Simulator owns the demo hub. Safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	hubName string
	visible bool
	removed bool
	probes  map[int64]*probeState
	store   HistoryStore
	rnd     *rand.Rand
}

// Options configures a Simulator.
type Options struct {
	Seed int64     // zero picks a time-based seed
	Now  time.Time // time of the initial readings; zero means time.Now
}

// NewSimulator registers the four demo probes and records one initial
// reading at each probe's base temperature.
func NewSimulator(ctx context.Context, store HistoryStore, opts Options) (*Simulator, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	s := &Simulator{
		hubName: HubName,
		visible: true,
		probes:  make(map[int64]*probeState),
		store:   store,
		rnd:     rand.New(rand.NewSource(seed)),
	}
	specs := []struct {
		id            int64
		local         int
		name, colour  string
		target, base  float64
		amp, initialP float64
	}{
		{-101, 1, "Demo Probe 1", "#ef4444", 165, 100, 18, 0},
		{-102, 2, "Demo Probe 2", "#f97316", 165, 120, 14, math.Pi / 3},
		{-103, 3, "Demo Probe 3", "#22c55e", 135, 90, 12, 2 * math.Pi / 3},
		{-104, 4, "Demo Probe 4", "#3b82f6", 180, 100, 16, math.Pi},
	}
	for _, p := range specs {
		s.probes[p.id] = &probeState{
			probe: model.Probe{
				ID: p.id, LocalID: p.local, HubID: HubID, Name: p.name, Colour: p.colour,
				TargetTemp: p.target, CurrentTemp: p.base, Connected: true, Visible: true,
			},
			baseTemp:  p.base,
			amplitude: p.amp,
			phase:     p.initialP,
		}
		if err := store.Record(ctx, p.id, model.Reading{Timestamp: now, Temperature: p.base}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Advance steps every probe once and records the new temperatures at now.
func (s *Simulator) Advance(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	type rec struct {
		id   int64
		temp float64
	}
	recs := make([]rec, 0, len(s.probes))
	for id, st := range s.probes {
		st.phase += phaseIncrement
		osc := math.Sin(st.phase) * st.amplitude
		j := s.rnd.Float64()*2*jitter - jitter
		st.probe.CurrentTemp = math.Round(st.baseTemp + osc + j)
		recs = append(recs, rec{id, st.probe.CurrentTemp})
	}
	s.mu.Unlock()

	for _, r := range recs {
		if err := s.store.Record(ctx, r.id, model.Reading{Timestamp: now, Temperature: r.temp}); err != nil {
			return err
		}
	}
	return nil
}

// Run advances the simulation every step until ctx is done. Errors are
// passed to onErr and do not stop the loop.
func (s *Simulator) Run(ctx context.Context, step time.Duration, onErr func(error)) {
	t := time.NewTicker(step)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := s.Advance(ctx, now); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// Hub returns the demo hub with current probe temperatures, probes ordered
// by local ID. ok is false once the hub has been deleted.
func (s *Simulator) Hub() (model.Hub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return model.Hub{}, false
	}
	probes := make([]model.Probe, 0, len(s.probes))
	for _, st := range s.probes {
		probes = append(probes, st.probe)
	}
	sort.Slice(probes, func(i, j int) bool { return probes[i].LocalID < probes[j].LocalID })
	return model.Hub{ID: HubID, Name: s.hubName, Connected: true, Visible: s.visible, Probes: probes}, true
}

// HasProbe reports whether id is a live demo probe.
func (s *Simulator) HasProbe(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.probes[id]
	return ok && !s.removed
}

// ReadingsBetween returns the probe's history within [start, end].
// Unknown probes have no readings.
func (s *Simulator) ReadingsBetween(ctx context.Context, id int64, start, end time.Time) ([]model.Reading, error) {
	if !s.HasProbe(id) {
		return []model.Reading{}, nil
	}
	return s.store.Between(ctx, id, start, end)
}

func (s *Simulator) withProbe(id int64, fn func(*probeState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.probes[id]
	if !ok || s.removed {
		return ErrNotFound
	}
	fn(st)
	return nil
}

// SetTargetTemp changes a probe's target.
func (s *Simulator) SetTargetTemp(id int64, target float64) error {
	return s.withProbe(id, func(st *probeState) { st.probe.TargetTemp = target })
}

// SetName renames a probe.
func (s *Simulator) SetName(id int64, name string) error {
	return s.withProbe(id, func(st *probeState) { st.probe.Name = name })
}

// UpdateProbe applies the user-editable fields of p (name, target, colour,
// visibility) and returns the stored probe.
func (s *Simulator) UpdateProbe(p model.Probe) (model.Probe, error) {
	var out model.Probe
	err := s.withProbe(p.ID, func(st *probeState) {
		st.probe.Name = p.Name
		st.probe.TargetTemp = p.TargetTemp
		if p.Colour != "" {
			st.probe.Colour = p.Colour
		}
		st.probe.Visible = p.Visible
		out = st.probe
	})
	return out, err
}

// UpdateHub applies the hub's name and visibility.
func (s *Simulator) UpdateHub(h model.Hub) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID != HubID || s.removed {
		return ErrNotFound
	}
	if h.Name != "" {
		s.hubName = h.Name
	}
	s.visible = h.Visible
	return nil
}

// DeleteProbe removes a probe and its history.
func (s *Simulator) DeleteProbe(ctx context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.probes[id]; !ok || s.removed {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.probes, id)
	s.mu.Unlock()
	return s.store.Forget(ctx, id)
}

// DeleteHub removes the demo hub; subsequent Hub calls report !ok.
func (s *Simulator) DeleteHub(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != HubID || s.removed {
		return ErrNotFound
	}
	s.removed = true
	return nil
}
