package main

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daviddao/grillgauge_viewer/internal/apiclient"
	"github.com/daviddao/grillgauge_viewer/internal/demo"
	"github.com/daviddao/grillgauge_viewer/internal/demoapi"
	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/selection"
	"github.com/daviddao/grillgauge_viewer/internal/snapshot"
	"github.com/daviddao/grillgauge_viewer/internal/syncer"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

// TestSmokeDemoServer runs the real client and synchronizer against the
// demo API and renders what arrives.
func TestSmokeDemoServer(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	sim, err := demo.NewSimulator(context.Background(), demo.NewMemoryStore(demo.DefaultHistory), demo.Options{Seed: 7, Now: now})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	srv := httptest.NewServer(demoapi.Handler(demoapi.NewRouter(sim, demoapi.NewDirectory(), "tok"), io.Discard))
	defer srv.Close()

	client := apiclient.New(apiclient.Options{
		BaseURL: srv.URL + demoapi.Prefix,
		Timeout: 5 * time.Second,
		Token:   func() string { return "tok" },
	})

	updates := make(chan *snapshot.DataSnapshot, 4)
	poll := syncer.New(syncer.Options{
		Interval: time.Hour,
		Timeout:  5 * time.Second,
		Fetch:    client.Hubs,
		OnUpdate: func(s *snapshot.DataSnapshot) { updates <- s },
		OnError:  func(err error) { t.Errorf("poll failed: %v", err) },
	})
	defer poll.Stop()
	poll.SetIdentity("demo@grillgauge.local")

	var snap *snapshot.DataSnapshot
	select {
	case snap = <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot within 5s")
	}
	if snap == nil || snap.TotalProbes != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}

	m := newModel(uiDeps{
		api:     client,
		sync:    poll,
		unit:    model.Fahrenheit,
		timeout: 5 * time.Second,
	}, "demo@grillgauge.local", timeframe.DefaultMinutes)
	m.width, m.height = 120, 40
	m, _ = send(t, m, snapshotMsg{snap: snap})

	out := plain(m.View())
	for _, want := range []string{demo.HubName, "Demo Probe 1", "Demo Probe 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}

	m.sel.OpenProbe(-101)
	fetch := m.chartRequest(selection.KindProbe)
	if fetch == nil {
		t.Fatal("chartRequest returned nil")
	}
	m, _ = send(t, m, fetch())
	cs := m.charts[selection.KindProbe]
	if cs.err != nil || len(cs.table.Rows) == 0 {
		t.Errorf("probe chart = %+v", cs)
	}
}
