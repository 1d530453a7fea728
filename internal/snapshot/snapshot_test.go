package snapshot

import (
	"testing"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

func testHubs() []model.Hub {
	return []model.Hub{
		{ID: 1, Name: "Smoker", Connected: true, Visible: true, Probes: []model.Probe{
			{ID: 11, HubID: 1, Name: "Brisket", TargetTemp: 165, CurrentTemp: 150, Connected: true, Visible: true},
			{ID: 12, HubID: 1, Name: "Ribs", TargetTemp: 190, Connected: false, Visible: false},
		}},
		{ID: 2, Name: "Kettle", Connected: false, Visible: true},
	}
}

func TestBuildEmpty(t *testing.T) {
	snap := Build(nil)
	if len(snap.Hubs) != 0 {
		t.Errorf("expected 0 hubs, got %d", len(snap.Hubs))
	}
	if snap.TotalHubs != 0 || snap.TotalProbes != 0 {
		t.Errorf("expected zero counts, got %+v", snap)
	}
	if snap.BuiltAt.IsZero() {
		t.Error("BuiltAt should not be zero")
	}
}

func TestBuildCounts(t *testing.T) {
	snap := Build(testHubs())
	if snap.TotalHubs != 2 {
		t.Errorf("TotalHubs = %d, want 2", snap.TotalHubs)
	}
	if snap.ConnectedHubs != 1 {
		t.Errorf("ConnectedHubs = %d, want 1", snap.ConnectedHubs)
	}
	if snap.TotalProbes != 2 {
		t.Errorf("TotalProbes = %d, want 2", snap.TotalProbes)
	}
	if snap.ConnectedProbes != 1 {
		t.Errorf("ConnectedProbes = %d, want 1", snap.ConnectedProbes)
	}
}

func TestBuildCopiesInput(t *testing.T) {
	hubs := testHubs()
	snap := Build(hubs)
	hubs[0].Probes[0].Name = "mutated"
	if p, _, _ := snap.FindProbe(11); p.Name != "Brisket" {
		t.Errorf("snapshot shares storage with input: %q", p.Name)
	}
}

func TestFind(t *testing.T) {
	snap := Build(testHubs())

	p, h, ok := snap.FindProbe(12)
	if !ok || p.Name != "Ribs" || h.ID != 1 {
		t.Errorf("FindProbe(12) = %+v, %+v, %v", p, h, ok)
	}
	if _, _, ok := snap.FindProbe(99); ok {
		t.Error("FindProbe(99) should miss")
	}
	if h, ok := snap.FindHub(2); !ok || h.Name != "Kettle" {
		t.Errorf("FindHub(2) = %+v, %v", h, ok)
	}

	var nilSnap *DataSnapshot
	if _, ok := nilSnap.FindHub(1); ok {
		t.Error("nil snapshot should not find anything")
	}
}

func TestCloneIsolatesPatches(t *testing.T) {
	orig := Build(testHubs())
	c := orig.Clone()

	if !c.UpdateProbe(11, func(p *model.Probe) { p.TargetTemp = 203 }) {
		t.Fatal("UpdateProbe should find probe 11")
	}
	if p, _, _ := orig.FindProbe(11); p.TargetTemp != 165 {
		t.Errorf("original mutated: target = %v", p.TargetTemp)
	}
	if p, _, _ := c.FindProbe(11); p.TargetTemp != 203 {
		t.Errorf("clone not patched: target = %v", p.TargetTemp)
	}

	if !c.UpdateHub(2, func(h *model.Hub) { h.Name = "Grill" }) {
		t.Fatal("UpdateHub should find hub 2")
	}
	if h, _ := orig.FindHub(2); h.Name != "Kettle" {
		t.Errorf("original hub mutated: %q", h.Name)
	}
}

func TestRemove(t *testing.T) {
	orig := Build(testHubs())
	c := orig.Clone()

	if !c.RemoveProbe(11) {
		t.Fatal("RemoveProbe(11) should succeed")
	}
	if c.TotalProbes != 1 || c.ConnectedProbes != 0 {
		t.Errorf("counts after remove = %+v", c)
	}
	if _, _, ok := orig.FindProbe(11); !ok {
		t.Error("original lost probe 11")
	}

	if !c.RemoveHub(1) {
		t.Fatal("RemoveHub(1) should succeed")
	}
	if c.TotalHubs != 1 || c.TotalProbes != 0 {
		t.Errorf("counts after hub remove = %+v", c)
	}
	if c.RemoveHub(1) {
		t.Error("second RemoveHub(1) should report false")
	}
}

func TestVisibleProbes(t *testing.T) {
	h := testHubs()[0]
	vis := VisibleProbes(h)
	if len(vis) != 1 || vis[0].ID != 11 {
		t.Errorf("VisibleProbes = %+v", vis)
	}
}
