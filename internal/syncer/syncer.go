// Package syncer keeps a local mirror of the user's hubs in step with the
// server by polling.
//
// Each cycle moves Idle -> Fetching -> Idle. A tick that arrives while a
// fetch is still outstanding is skipped rather than queued, so at most one
// fetch per run is ever in flight. Every fetch carries a sequence number and
// only the most recently issued one may update the mirror; anything older,
// or anything that completes after Stop or an identity change, is dropped.
//
// A successful fetch replaces the mirror wholesale. Callers that apply
// optimistic edits through Patch should expect a poll landing before the
// server has accepted the edit to show the old value until the next poll.
package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/snapshot"
)

// FetchFunc loads every hub visible to identity.
type FetchFunc func(ctx context.Context, identity string) ([]model.Hub, error)

// Options configures a Synchronizer.
type Options struct {
	Interval  time.Duration
	Timeout   time.Duration // per-fetch deadline; zero means none
	Fetch     FetchFunc
	Scheduler Scheduler
	Logger    *zap.SugaredLogger

	// OnUpdate receives every new mirror, including nil when the mirror is
	// cleared. OnError receives fetch failures. Both run outside the
	// synchronizer's lock, on whichever goroutine finished the fetch.
	OnUpdate func(*snapshot.DataSnapshot)
	OnError  func(error)
}

// Stats counts cycle outcomes since construction.
type Stats struct {
	Issued    int
	Applied   int
	Discarded int
	Failed    int
	Skipped   int
}

// Synchronizer owns the hub mirror. Safe for concurrent use.
type Synchronizer struct {
	opts Options
	log  *zap.SugaredLogger

	mu        sync.Mutex
	identity  string
	running   bool
	stopTimer func()
	runCtx    context.Context
	runCancel context.CancelFunc

	seq         uint64 // last issued
	inFlight    bool
	inFlightSeq uint64

	snap    *snapshot.DataSnapshot
	lastErr error
	stats   Stats
}

// New returns a stopped synchronizer.
func New(opts Options) *Synchronizer {
	if opts.Scheduler == nil {
		opts.Scheduler = TickerScheduler{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Synchronizer{opts: opts, log: log}
}

// Start begins polling for identity: one cycle immediately, then one per
// interval. Starting with the identity already running is a no-op; starting
// with a different identity clears the mirror first.
func (s *Synchronizer) Start(identity string) {
	s.mu.Lock()
	if s.running && s.identity == identity {
		s.mu.Unlock()
		return
	}
	cleared := false
	if s.running {
		s.stopLocked()
	}
	if s.identity != identity && s.snap != nil {
		s.snap = nil
		cleared = true
	}
	s.identity = identity
	s.running = true
	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	s.stopTimer = s.opts.Scheduler.Every(s.opts.Interval, s.cycle)
	s.mu.Unlock()

	s.log.Infow("sync started", "identity", identity, "interval", s.opts.Interval)
	if cleared {
		s.notify(nil)
	}
	s.cycle()
}

// Stop cancels the timer and any in-flight fetch. The mirror is kept.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.stopLocked()
	s.mu.Unlock()
	if wasRunning {
		s.log.Infow("sync stopped")
	}
}

func (s *Synchronizer) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	// The cancelled fetch can no longer win: its sequence is stale.
	s.inFlight = false
}

// SetIdentity reacts to sign-in changes. An unchanged identity is a no-op.
// An empty identity stops polling and clears the mirror; any other change
// clears the mirror and restarts polling for the new identity.
func (s *Synchronizer) SetIdentity(identity string) {
	s.mu.Lock()
	if s.identity == identity && (s.running || identity == "") {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if identity == "" {
		s.Stop()
		s.mu.Lock()
		s.identity = ""
		hadSnap := s.snap != nil
		s.snap = nil
		s.mu.Unlock()
		if hadSnap {
			s.notify(nil)
		}
		return
	}
	s.Start(identity)
}

// Refresh runs a cycle now, subject to the same single-flight rule as ticks.
func (s *Synchronizer) Refresh() { s.cycle() }

func (s *Synchronizer) cycle() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		s.stats.Skipped++
		s.mu.Unlock()
		s.log.Debugw("tick skipped, fetch in flight", "seq", s.inFlightSeq)
		return
	}
	s.seq++
	seq := s.seq
	s.inFlight = true
	s.inFlightSeq = seq
	s.stats.Issued++
	identity := s.identity
	ctx := s.runCtx
	s.mu.Unlock()

	go func() {
		fctx := ctx
		if s.opts.Timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
		}
		hubs, err := s.opts.Fetch(fctx, identity)
		s.complete(seq, identity, hubs, err)
	}()
}

func (s *Synchronizer) complete(seq uint64, identity string, hubs []model.Hub, err error) {
	s.mu.Lock()
	if s.inFlight && s.inFlightSeq == seq {
		s.inFlight = false
	}
	if seq != s.seq || !s.running || identity != s.identity {
		s.stats.Discarded++
		s.mu.Unlock()
		s.log.Debugw("stale fetch discarded", "seq", seq, "latest", s.seq)
		return
	}
	if err != nil {
		s.stats.Failed++
		s.lastErr = err
		s.mu.Unlock()
		s.log.Warnw("poll failed, keeping previous data", "seq", seq, "err", err)
		if s.opts.OnError != nil {
			s.opts.OnError(err)
		}
		return
	}
	snap := snapshot.Build(hubs)
	s.snap = snap
	s.lastErr = nil
	s.stats.Applied++
	s.mu.Unlock()

	s.log.Debugw("poll applied", "seq", seq, "hubs", snap.TotalHubs, "probes", snap.TotalProbes)
	s.notify(snap)
}

func (s *Synchronizer) notify(snap *snapshot.DataSnapshot) {
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(snap)
	}
}

// Patch applies fn to a copy of the mirror and publishes the copy. It is
// a no-op returning false when there is no mirror yet.
func (s *Synchronizer) Patch(fn func(*snapshot.DataSnapshot)) bool {
	s.mu.Lock()
	if s.snap == nil {
		s.mu.Unlock()
		return false
	}
	c := s.snap.Clone()
	fn(c)
	s.snap = c
	s.mu.Unlock()
	s.notify(c)
	return true
}

// Snapshot returns the current mirror, or nil before the first success.
func (s *Synchronizer) Snapshot() *snapshot.DataSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// LastError returns the most recent fetch failure, cleared on success.
func (s *Synchronizer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Running reports whether polling is active.
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Identity returns the identity being polled for.
func (s *Synchronizer) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Fetching reports whether a fetch is outstanding.
func (s *Synchronizer) Fetching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Stats returns a copy of the cycle counters.
func (s *Synchronizer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
