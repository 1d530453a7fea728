// Package selection tracks which probe and which hub the user has opened a
// detail overlay for.
//
// Focus is stored by ID only and resolved against the current mirror each
// time it is rendered, so it survives polls and degrades to "no longer
// available" when the entity disappears. Probe and hub focus are independent
// single slots: opening a second probe replaces the first.
package selection

import (
	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/snapshot"
)

// Kind distinguishes the two overlay slots.
type Kind int

const (
	KindProbe Kind = iota
	KindHub
)

func (k Kind) String() string {
	if k == KindHub {
		return "hub"
	}
	return "probe"
}

// State is the controller state for one slot.
type State int

const (
	Closed State = iota
	ProbeFocused
	HubFocused
)

type slot struct {
	id   int64
	open bool
}

// Controller holds the two focus slots. The zero value has both closed.
// Not safe for concurrent use; it lives on the UI goroutine.
type Controller struct {
	probe slot
	hub   slot
	// order of the most recent opens, so CloseTop can close the one drawn
	// on top.
	top []Kind
}

// OpenProbe focuses probe id, replacing any focused probe.
func (c *Controller) OpenProbe(id int64) {
	c.probe = slot{id: id, open: true}
	c.raise(KindProbe)
}

// OpenHub focuses hub id, replacing any focused hub.
func (c *Controller) OpenHub(id int64) {
	c.hub = slot{id: id, open: true}
	c.raise(KindHub)
}

// CloseProbe clears the probe slot.
func (c *Controller) CloseProbe() {
	c.probe = slot{}
	c.drop(KindProbe)
}

// CloseHub clears the hub slot.
func (c *Controller) CloseHub() {
	c.hub = slot{}
	c.drop(KindHub)
}

// CloseTop closes the most recently opened overlay still open and reports
// which one it closed.
func (c *Controller) CloseTop() (Kind, bool) {
	k, ok := c.Top()
	if !ok {
		return 0, false
	}
	if k == KindProbe {
		c.CloseProbe()
	} else {
		c.CloseHub()
	}
	return k, true
}

// Top returns the overlay drawn on top, if any.
func (c *Controller) Top() (Kind, bool) {
	if len(c.top) == 0 {
		return 0, false
	}
	return c.top[len(c.top)-1], true
}

func (c *Controller) raise(k Kind) {
	c.drop(k)
	c.top = append(c.top, k)
}

func (c *Controller) drop(k Kind) {
	out := c.top[:0]
	for _, t := range c.top {
		if t != k {
			out = append(out, t)
		}
	}
	c.top = out
}

// ProbeID returns the focused probe.
func (c *Controller) ProbeID() (int64, bool) { return c.probe.id, c.probe.open }

// HubID returns the focused hub.
func (c *Controller) HubID() (int64, bool) { return c.hub.id, c.hub.open }

// ProbeState is Closed or ProbeFocused.
func (c *Controller) ProbeState() State {
	if c.probe.open {
		return ProbeFocused
	}
	return Closed
}

// HubState is Closed or HubFocused.
func (c *Controller) HubState() State {
	if c.hub.open {
		return HubFocused
	}
	return Closed
}

// ProbeView is a resolved probe focus.
type ProbeView struct {
	ID        int64
	Probe     model.Probe
	Hub       model.Hub
	Available bool
}

// HubView is a resolved hub focus.
type HubView struct {
	ID        int64
	Hub       model.Hub
	Available bool
}

// ResolveProbe looks the focused probe up in snap. ok is false when no
// probe is focused; Available is false when it is focused but missing.
func (c *Controller) ResolveProbe(snap *snapshot.DataSnapshot) (ProbeView, bool) {
	if !c.probe.open {
		return ProbeView{}, false
	}
	v := ProbeView{ID: c.probe.id}
	v.Probe, v.Hub, v.Available = snap.FindProbe(c.probe.id)
	return v, true
}

// ResolveHub looks the focused hub up in snap, with the same rules as
// ResolveProbe.
func (c *Controller) ResolveHub(snap *snapshot.DataSnapshot) (HubView, bool) {
	if !c.hub.open {
		return HubView{}, false
	}
	v := HubView{ID: c.hub.id}
	v.Hub, v.Available = snap.FindHub(c.hub.id)
	return v, true
}
