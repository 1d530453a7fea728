package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/selection"
	"github.com/daviddao/grillgauge_viewer/internal/session"
	"github.com/daviddao/grillgauge_viewer/internal/snapshot"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

var testNow = time.Date(2026, 7, 4, 15, 0, 0, 0, time.UTC)

// fakeBackend records calls and serves canned readings.
type fakeBackend struct {
	readings map[int64][]model.Reading
	err      error
	calls    []string
	lastIDs  []int64
}

func (f *fakeBackend) ReadingsBetween(_ context.Context, ids []int64, _, _ time.Time) (map[int64][]model.Reading, error) {
	f.calls = append(f.calls, "readings")
	f.lastIDs = ids
	return f.readings, f.err
}

func (f *fakeBackend) UpdateTargetTemp(_ context.Context, id int64, target float64) error {
	f.calls = append(f.calls, "target")
	return f.err
}

func (f *fakeBackend) UpdateProbeName(_ context.Context, id int64, name string) error {
	f.calls = append(f.calls, "name:"+name)
	return f.err
}

func (f *fakeBackend) UpdateProbe(_ context.Context, p model.Probe) (model.Probe, error) {
	f.calls = append(f.calls, "probe")
	return p, f.err
}

func (f *fakeBackend) UpdateHub(_ context.Context, h model.Hub) error {
	f.calls = append(f.calls, "hub:"+h.Name)
	return f.err
}

func (f *fakeBackend) DeleteProbe(_ context.Context, id int64) error {
	f.calls = append(f.calls, "delete-probe")
	return f.err
}

func (f *fakeBackend) DeleteHub(_ context.Context, id int64) error {
	f.calls = append(f.calls, "delete-hub")
	return f.err
}

// fakePoller counts refreshes and applies patches to its own mirror.
type fakePoller struct {
	snap      *snapshot.DataSnapshot
	refreshes int
	patches   int
}

func (f *fakePoller) Refresh() { f.refreshes++ }

func (f *fakePoller) Patch(fn func(*snapshot.DataSnapshot)) bool {
	f.patches++
	if f.snap == nil {
		return false
	}
	c := f.snap.Clone()
	fn(c)
	f.snap = c
	return true
}

// testSnapshot is hub H with P1 heating toward 165 and P2 unplugged.
func testSnapshot() *snapshot.DataSnapshot {
	return snapshot.Build([]model.Hub{{
		ID: 1, Name: "Backyard", Connected: true, Visible: true,
		Probes: []model.Probe{
			{ID: 11, LocalID: 1, HubID: 1, Name: "Brisket", TargetTemp: 165, CurrentTemp: 150, Colour: "#ef4444", Connected: true, Visible: true},
			{ID: 12, LocalID: 2, HubID: 1, Name: "Ribs", TargetTemp: 200, CurrentTemp: 80, Colour: "#22c55e", Connected: false, Visible: true},
		},
	}})
}

// testModel creates a uiModel with test data and fakes for its dependencies.
func testModel() (uiModel, *fakeBackend, *fakePoller) {
	api := &fakeBackend{}
	poll := &fakePoller{snap: testSnapshot()}
	m := newModel(uiDeps{
		api:         api,
		sync:        poll,
		unit:        model.Fahrenheit,
		timeout:     time.Second,
		sessionPath: "/tmp/session.json",
		now:         func() time.Time { return testNow },
	}, "cook@example.com", timeframe.DefaultMinutes)
	m.snap = poll.snap
	m.width = 100
	m.height = 30
	m.help.Width = 100
	return m, api, poll
}

func press(t *testing.T, m uiModel, k string) (uiModel, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	updated, cmd := m.Update(msg)
	return updated.(uiModel), cmd
}

func send(t *testing.T, m uiModel, msg tea.Msg) (uiModel, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(uiModel), cmd
}

// runMutation executes a mutation command and feeds its result back.
func runMutation(t *testing.T, m uiModel, cmd tea.Cmd) uiModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(mutationMsg)
	if !ok {
		t.Fatalf("command returned %T, want mutationMsg", msg)
	}
	m, _ = send(t, m, msg)
	return m
}

func plain(s string) string { return ansi.Strip(s) }

func TestParseTimeframeFlag(t *testing.T) {
	tests := []struct {
		input string
		want  int
		err   bool
	}{
		{"60", 60, false},
		{"5", 5, false},
		{"1440", 1440, false},
		{"2h", 120, false},
		{"45m", 45, false},
		{"24h", 1440, false},
		{"4", 0, true},
		{"25h", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTimeframeFlag(tt.input)
			if tt.err {
				if err == nil {
					t.Errorf("parseTimeframeFlag(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimeframeFlag(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseTimeframeFlag(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestViewLoading(t *testing.T) {
	m, _, _ := testModel()
	m.width = 0
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() with zero width = %q, want Loading...", got)
	}
}

func TestDashboardProbeCards(t *testing.T) {
	m, _, _ := testModel()
	out := plain(m.renderDashboard())

	for _, want := range []string{"Backyard", "Connected", "1/2 probes", "Brisket", "150°F", "165°F", "91%", "Almost at target"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}

	var ribs string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Ribs") {
			ribs = line
		}
	}
	if !strings.Contains(ribs, "--") || !strings.Contains(ribs, "Disconnected") {
		t.Errorf("disconnected probe line = %q, want -- and Disconnected", ribs)
	}
	if strings.Contains(ribs, "80°F") {
		t.Errorf("disconnected probe must not show its stale temperature: %q", ribs)
	}
}

func TestDashboardEmptyHubs(t *testing.T) {
	m, _, _ := testModel()
	m.snap = snapshot.Build(nil)
	out := strings.ToLower(plain(m.renderDashboard()))
	if !strings.Contains(out, "add a hub to begin monitoring") {
		t.Errorf("empty dashboard should invite adding a hub:\n%s", out)
	}
}

func TestDashboardSignedOut(t *testing.T) {
	m, _, _ := testModel()
	m.snap = nil
	m.identity = ""
	out := plain(m.renderDashboard())
	if !strings.Contains(out, "Not signed in") || !strings.Contains(out, "/tmp/session.json") {
		t.Errorf("signed-out dashboard = %q", out)
	}

	m.identity = "cook@example.com"
	if out := plain(m.renderDashboard()); !strings.Contains(out, "Loading hubs") {
		t.Errorf("waiting dashboard = %q", out)
	}
}

func TestUpdateUpDown(t *testing.T) {
	m, _, _ := testModel()
	// Rows: hub, Brisket, Ribs.
	m, _ = press(t, m, "down")
	m, _ = press(t, m, "down")
	m, _ = press(t, m, "down")
	if m.cursor != 2 {
		t.Errorf("cursor after 3 downs = %d, want 2", m.cursor)
	}
	m, _ = press(t, m, "up")
	m, _ = press(t, m, "up")
	m, _ = press(t, m, "up")
	if m.cursor != 0 {
		t.Errorf("cursor after 3 ups = %d, want 0", m.cursor)
	}
}

func TestEnterOpensProbeAndEscCloses(t *testing.T) {
	m, api, _ := testModel()
	m.cursor = 1 // Brisket

	m, cmd := press(t, m, "enter")
	if id, ok := m.sel.ProbeID(); !ok || id != 11 {
		t.Fatalf("probe focus = %d, %v; want 11", id, ok)
	}
	if cmd == nil || !m.charts[selection.KindProbe].loading {
		t.Fatal("opening a probe should start loading its chart")
	}
	out := plain(m.View())
	if !strings.Contains(out, "Probe: Brisket") || !strings.Contains(out, "Almost at target") {
		t.Errorf("probe overlay missing details:\n%s", out)
	}

	m, _ = press(t, m, "esc")
	if m.sel.ProbeState() != selection.Closed {
		t.Error("esc should close the probe overlay")
	}
	if len(api.calls) != 0 {
		t.Errorf("no request should have run synchronously, got %v", api.calls)
	}
}

func TestOverlaysIndependent(t *testing.T) {
	m, _, _ := testModel()
	m, _ = press(t, m, "enter") // hub row
	m.cursor = 2
	m, _ = press(t, m, "enter") // Ribs

	if m.sel.HubState() != selection.HubFocused || m.sel.ProbeState() != selection.ProbeFocused {
		t.Fatal("hub and probe overlays should both be open")
	}
	tabs := plain(m.renderTabBar())
	if !strings.Contains(tabs, "Hub: Backyard") || !strings.Contains(tabs, "Probe: Ribs") {
		t.Errorf("tab bar = %q", tabs)
	}

	m, _ = press(t, m, "esc")
	if m.sel.ProbeState() != selection.Closed || m.sel.HubState() != selection.HubFocused {
		t.Error("first esc should close only the probe overlay")
	}
	m, _ = press(t, m, "esc")
	if m.sel.HubState() != selection.Closed {
		t.Error("second esc should close the hub overlay")
	}
}

func TestOverlayNoLongerAvailable(t *testing.T) {
	m, _, _ := testModel()
	m.sel.OpenProbe(12)

	gone := testSnapshot().Clone()
	gone.RemoveProbe(12)
	gone.BuiltAt = testNow
	m, _ = send(t, m, snapshotMsg{snap: gone})

	out := plain(m.View())
	if !strings.Contains(out, "no longer available") {
		t.Errorf("removed probe should render as no longer available:\n%s", out)
	}
	if m.sel.ProbeState() != selection.ProbeFocused {
		t.Error("focus should survive the entity disappearing")
	}
}

func TestChartLoadsAndRenders(t *testing.T) {
	m, api, _ := testModel()
	api.readings = map[int64][]model.Reading{
		11: {
			{Timestamp: testNow.Add(-20 * time.Minute), Temperature: 140},
			{Timestamp: testNow.Add(-10 * time.Minute), Temperature: 150},
		},
	}
	m.sel.OpenProbe(11)
	fetch := m.chartRequest(selection.KindProbe)
	if fetch == nil {
		t.Fatal("chartRequest returned nil")
	}
	if !m.charts[selection.KindProbe].loading {
		t.Error("chart should be loading")
	}
	m, _ = send(t, m, fetch())

	cs := m.charts[selection.KindProbe]
	if cs.loading || cs.err != nil {
		t.Fatalf("chart state = %+v", cs)
	}
	if len(cs.table.Rows) != 2 || len(api.lastIDs) != 1 || api.lastIDs[0] != 11 {
		t.Errorf("rows = %d, ids = %v", len(cs.table.Rows), api.lastIDs)
	}
	out := plain(m.renderChart(selection.KindProbe))
	if !strings.Contains(out, "Temperature, last 1h") || !strings.Contains(out, "Brisket") {
		t.Errorf("chart output:\n%s", out)
	}
}

func TestHubChartSkipsHiddenProbes(t *testing.T) {
	m, api, _ := testModel()
	c := m.snap.Clone()
	c.UpdateProbe(12, func(p *model.Probe) { p.Visible = false })
	m.snap = c

	m.sel.OpenHub(1)
	fetch := m.chartRequest(selection.KindHub)
	if fetch == nil {
		t.Fatal("chartRequest returned nil")
	}
	fetch()
	if len(api.lastIDs) != 1 || api.lastIDs[0] != 11 {
		t.Errorf("hub chart ids = %v, want [11]", api.lastIDs)
	}
}

func TestStaleChartResponseDiscarded(t *testing.T) {
	m, _, _ := testModel()
	m.sel.OpenProbe(11)
	m.loadChart(selection.KindProbe)
	old := m.charts[selection.KindProbe].seq

	// Changing the timeframe issues a newer request.
	m, _ = press(t, m, "right")
	if m.charts[selection.KindProbe].seq == old {
		t.Fatal("timeframe change should issue a new chart request")
	}

	m, _ = send(t, m, chartMsg{kind: selection.KindProbe, seq: old, err: errors.New("late")})
	if m.charts[selection.KindProbe].err != nil {
		t.Error("stale chart response should be discarded")
	}
	if !m.charts[selection.KindProbe].loading {
		t.Error("current request should still be loading")
	}
}

func TestTimeframeKeys(t *testing.T) {
	m, _, _ := testModel()
	start := m.slider.Minutes()
	m, _ = press(t, m, "right")
	if m.slider.Minutes() <= start {
		t.Errorf("right should lengthen the timeframe: %d -> %d", start, m.slider.Minutes())
	}
	m, _ = press(t, m, "left")
	m, _ = press(t, m, "left")
	if m.slider.Minutes() >= start {
		t.Errorf("left should shorten the timeframe: %d -> %d", start, m.slider.Minutes())
	}
	for i := 0; i < 100; i++ {
		m, _ = press(t, m, "left")
	}
	if m.slider.Minutes() != timeframe.MinMinutes {
		t.Errorf("timeframe should clamp at %d, got %d", timeframe.MinMinutes, m.slider.Minutes())
	}
}

func TestRefreshKey(t *testing.T) {
	m, _, poll := testModel()
	press(t, m, "r")
	if poll.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", poll.refreshes)
	}
}

func TestRenameProbeOptimistic(t *testing.T) {
	m, api, poll := testModel()
	m.cursor = 1

	m, _ = press(t, m, "n")
	if m.editing != editProbeName || m.input.Value() != "Brisket" {
		t.Fatalf("editing = %v, value = %q", m.editing, m.input.Value())
	}
	m.input.SetValue("Pork Butt")
	m, cmd := press(t, m, "enter")

	p, _, _ := m.snap.FindProbe(11)
	if p.Name != "Pork Butt" {
		t.Errorf("local snapshot name = %q, want optimistic update", p.Name)
	}
	if pp, _, _ := poll.snap.FindProbe(11); pp.Name != "Pork Butt" || poll.patches != 1 {
		t.Errorf("mirror name = %q, patches = %d", pp.Name, poll.patches)
	}

	m = runMutation(t, m, cmd)
	if len(api.calls) != 1 || api.calls[0] != "name:Pork Butt" {
		t.Errorf("calls = %v", api.calls)
	}
	if m.statusErr || !strings.Contains(m.status, "saved") {
		t.Errorf("status = %q (err %v)", m.status, m.statusErr)
	}
}

func TestRenameHub(t *testing.T) {
	m, api, _ := testModel()
	m, _ = press(t, m, "n") // cursor on hub
	if m.editing != editHubName {
		t.Fatalf("editing = %v, want hub name", m.editing)
	}
	m.input.SetValue("Patio")
	m, cmd := press(t, m, "enter")
	runMutation(t, m, cmd)
	if len(api.calls) != 1 || api.calls[0] != "hub:Patio" {
		t.Errorf("calls = %v", api.calls)
	}
}

func TestSetTargetValidation(t *testing.T) {
	m, api, _ := testModel()
	m.cursor = 1

	m, _ = press(t, m, "t")
	m.input.SetValue("hot")
	m, cmd := press(t, m, "enter")
	if cmd != nil || len(api.calls) != 0 {
		t.Error("invalid target should not be sent")
	}
	if !m.statusErr {
		t.Error("invalid target should show an error")
	}

	m, _ = press(t, m, "t")
	m.input.SetValue("203")
	m, cmd = press(t, m, "enter")
	m = runMutation(t, m, cmd)
	if p, _, _ := m.snap.FindProbe(11); p.TargetTemp != 203 {
		t.Errorf("target = %v, want 203", p.TargetTemp)
	}
}

func TestSetTargetOnHubRefused(t *testing.T) {
	m, _, _ := testModel()
	m, cmd := press(t, m, "t")
	if cmd != nil || m.editing != editNone || !m.statusErr {
		t.Error("t on a hub row should be refused with a status message")
	}
}

func TestEditEscCancels(t *testing.T) {
	m, api, _ := testModel()
	m.cursor = 1
	m, _ = press(t, m, "n")
	m, _ = press(t, m, "esc")
	if m.editing != editNone || len(api.calls) != 0 {
		t.Error("esc should cancel the edit without a request")
	}
	if m.sel.ProbeState() != selection.Closed {
		t.Error("esc while editing must not touch overlays")
	}
}

func TestMutationFailureShownInStatus(t *testing.T) {
	m, api, _ := testModel()
	api.err = errors.New("boom")
	m.cursor = 1
	m, _ = press(t, m, "n")
	m.input.SetValue("Chuck")
	m, cmd := press(t, m, "enter")
	m = runMutation(t, m, cmd)

	if !m.statusErr || !strings.Contains(m.status, "rename probe failed") {
		t.Errorf("status = %q", m.status)
	}
	// Optimistic state is left as attempted.
	if p, _, _ := m.snap.FindProbe(11); p.Name != "Chuck" {
		t.Errorf("name = %q", p.Name)
	}
	if !strings.Contains(plain(m.renderStatusBar()), "boom") {
		t.Error("status bar should show the error")
	}
}

func TestDeleteConfirm(t *testing.T) {
	m, api, _ := testModel()
	m.cursor = 2

	m, _ = press(t, m, "x")
	if !m.confirm.active || !strings.Contains(plain(m.renderStatusBar()), `"Ribs"`) {
		t.Fatalf("confirm prompt missing: %q", plain(m.renderStatusBar()))
	}
	m, _ = press(t, m, "n")
	if m.confirm.active || len(api.calls) != 0 {
		t.Fatal("any key but y should cancel")
	}

	m, _ = press(t, m, "x")
	m, cmd := press(t, m, "y")
	m = runMutation(t, m, cmd)
	if _, _, ok := m.snap.FindProbe(12); ok {
		t.Error("probe should be removed optimistically")
	}
	if len(api.calls) != 1 || api.calls[0] != "delete-probe" {
		t.Errorf("calls = %v", api.calls)
	}
	if m.cursor != 1 {
		t.Errorf("cursor should clamp after delete, got %d", m.cursor)
	}
}

func TestToggleVisibility(t *testing.T) {
	m, api, _ := testModel()
	m.cursor = 1
	m, cmd := press(t, m, "v")
	runMutation(t, m, cmd)
	if p, _, _ := m.snap.FindProbe(11); p.Visible {
		t.Error("probe should be hidden")
	}
	if len(api.calls) != 1 || api.calls[0] != "probe" {
		t.Errorf("calls = %v", api.calls)
	}
	if !strings.Contains(plain(m.renderDashboard()), "(hidden)") {
		t.Error("hidden probe should be marked")
	}
}

func TestSnapshotClampsCursor(t *testing.T) {
	m, _, _ := testModel()
	m.cursor = 2
	m, _ = send(t, m, snapshotMsg{snap: snapshot.Build([]model.Hub{{ID: 1, Name: "Backyard"}})})
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
	m, _ = send(t, m, snapshotMsg{snap: nil})
	if m.snap != nil || m.cursor != 0 {
		t.Error("nil snapshot should clear the mirror")
	}
}

func TestPollErrorKeepsData(t *testing.T) {
	m, _, _ := testModel()
	m, _ = send(t, m, pollErrMsg{err: errors.New("timeout")})
	if m.snap == nil {
		t.Fatal("poll failure must keep the previous snapshot")
	}
	if !strings.Contains(plain(m.renderStatusBar()), "poll failed") {
		t.Error("status bar should mention the failed poll")
	}
}

func TestSessionMsg(t *testing.T) {
	m, _, _ := testModel()
	m, _ = send(t, m, sessionMsg{sess: session.Session{}})
	if m.identity != "" || !strings.Contains(m.status, "signed out") {
		t.Errorf("identity = %q, status = %q", m.identity, m.status)
	}
	m, _ = send(t, m, sessionMsg{sess: session.Session{Email: "pit@example.com"}})
	if m.identity != "pit@example.com" {
		t.Errorf("identity = %q", m.identity)
	}
}

func TestUpdateHelpToggle(t *testing.T) {
	m, _, _ := testModel()
	m, _ = press(t, m, "?")
	if !m.showHelp {
		t.Error("? should show help")
	}
	m, _ = press(t, m, "?")
	if m.showHelp {
		t.Error("? again should hide help")
	}
}

func TestUpdateWindowSizeMsg(t *testing.T) {
	m, _, _ := testModel()
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
}

func TestViewFitsWidth(t *testing.T) {
	m, _, _ := testModel()
	m.width = 40
	for i, line := range strings.Split(m.View(), "\n") {
		if w := ansi.StringWidth(line); w > 40 && i > 1 {
			t.Errorf("line %d is %d wide: %q", i, w, plain(line))
		}
	}
}

func TestBuildJSONOutput(t *testing.T) {
	out := buildJSONOutput("cook@example.com", testSnapshot())
	if out.Stats.TotalProbes != 2 || out.Stats.ConnectedProbes != 1 {
		t.Errorf("stats = %+v", out.Stats)
	}
	p1, p2 := out.Hubs[0].Probes[0], out.Hubs[0].Probes[1]
	if p1.CurrentTemp == nil || *p1.CurrentTemp != 150 || p1.Progress != 91 || p1.Status != "Almost at target" {
		t.Errorf("p1 = %+v", p1)
	}
	if p2.CurrentTemp != nil || p2.Status != "Disconnected" {
		t.Errorf("p2 = %+v", p2)
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"current_temp":null`) {
		t.Errorf("disconnected probe should encode null: %s", data)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"°°°°°°", 4, "°..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		if got := shortDuration(tt.d); got != tt.want {
			t.Errorf("shortDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
