package demo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// HistoryStore keeps a bounded per-probe reading history.
type HistoryStore interface {
	Record(ctx context.Context, probeID int64, r model.Reading) error
	Between(ctx context.Context, probeID int64, start, end time.Time) ([]model.Reading, error)
	Forget(ctx context.Context, probeID int64) error
	Close() error
}

// buffer is a fixed-capacity ring of readings for one probe.
type buffer struct {
	points []model.Reading
	max    int
}

func newBuffer(capacity int) *buffer {
	return &buffer{points: make([]model.Reading, 0, capacity), max: capacity}
}

// push appends r, dropping the oldest reading when full.
func (b *buffer) push(r model.Reading) {
	if len(b.points) >= b.max {
		copy(b.points, b.points[1:])
		b.points[len(b.points)-1] = r
	} else {
		b.points = append(b.points, r)
	}
}

// MemoryStore is a HistoryStore held in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[int64]*buffer
	capacity int
	nextID   int64
}

// NewMemoryStore creates a store keeping up to capacity readings per probe.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{data: make(map[int64]*buffer), capacity: capacity}
}

// Record implements HistoryStore.
func (s *MemoryStore) Record(_ context.Context, probeID int64, r model.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[probeID]
	if !ok {
		b = newBuffer(s.capacity)
		s.data[probeID] = b
	}
	s.nextID++
	r.ID = s.nextID
	b.push(r)
	return nil
}

// Between implements HistoryStore. Bounds are inclusive; results ascend.
func (s *MemoryStore) Between(_ context.Context, probeID int64, start, end time.Time) ([]model.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[probeID]
	if !ok {
		return []model.Reading{}, nil
	}
	out := make([]model.Reading, 0, len(b.points))
	for _, r := range b.points {
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Forget implements HistoryStore.
func (s *MemoryStore) Forget(_ context.Context, probeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, probeID)
	return nil
}

// Close implements HistoryStore.
func (s *MemoryStore) Close() error { return nil }
