package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/daviddao/grillgauge_viewer/internal/align"
	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/selection"
	"github.com/daviddao/grillgauge_viewer/internal/session"
	"github.com/daviddao/grillgauge_viewer/internal/snapshot"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

// --- Dependencies ---

// backend is the part of the API client the UI calls directly. Hub polling
// goes through the synchronizer instead.
type backend interface {
	ReadingsBetween(ctx context.Context, probeIDs []int64, start, end time.Time) (map[int64][]model.Reading, error)
	UpdateTargetTemp(ctx context.Context, probeID int64, target float64) error
	UpdateProbeName(ctx context.Context, probeID int64, name string) error
	UpdateProbe(ctx context.Context, p model.Probe) (model.Probe, error)
	UpdateHub(ctx context.Context, h model.Hub) error
	DeleteProbe(ctx context.Context, probeID int64) error
	DeleteHub(ctx context.Context, hubID int64) error
}

// poller is the synchronizer as seen from the UI.
type poller interface {
	Refresh()
	Patch(fn func(*snapshot.DataSnapshot)) bool
}

// uiDeps is everything the model needs from the outside world.
type uiDeps struct {
	api         backend
	sync        poller
	log         *zap.SugaredLogger
	unit        model.Unit
	timeout     time.Duration
	sessionPath string
	now         func() time.Time
}

// --- Messages ---

// snapshotMsg carries a new mirror from the synchronizer. A nil snapshot
// means the mirror was cleared.
type snapshotMsg struct {
	snap *snapshot.DataSnapshot
}

type pollErrMsg struct {
	err error
}

type sessionMsg struct {
	sess session.Session
}

// chartMsg is the result of one readings request. seq ties it to the
// request that produced it.
type chartMsg struct {
	kind  selection.Kind
	seq   uint64
	table align.Table
	err   error
}

type mutationMsg struct {
	action string
	err    error
}

type tickMsg struct{}

// --- Key bindings ---

type keyMap struct {
	Quit    key.Binding
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Esc     key.Binding
	Shorter key.Binding
	Longer  key.Binding
	Refresh key.Binding
	Rename  key.Binding
	Target  key.Binding
	Toggle  key.Binding
	Delete  key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Esc:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Shorter: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "shorter timeframe")),
	Longer:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "longer timeframe")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Rename:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "rename")),
	Target:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "set target")),
	Toggle:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "show/hide")),
	Delete:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Esc, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Esc},
		{k.Shorter, k.Longer, k.Refresh},
		{k.Rename, k.Target, k.Toggle, k.Delete},
		{k.Help, k.Quit},
	}
}

// --- Model ---

type editKind int

const (
	editNone editKind = iota
	editProbeName
	editHubName
	editTarget
)

// item is one selectable dashboard row.
type item struct {
	kind selection.Kind
	id   int64
}

type chartState struct {
	seq     uint64
	loading bool
	table   align.Table
	err     error
}

type pendingDelete struct {
	active bool
	kind   selection.Kind
	id     int64
	name   string
}

type uiModel struct {
	deps uiDeps

	snap     *snapshot.DataSnapshot
	identity string
	pollErr  error

	width  int
	height int
	cursor int

	sel    *selection.Controller
	slider timeframe.Slider
	charts [2]chartState // indexed by selection.Kind

	editing editKind
	editID  int64
	input   textinput.Model
	confirm pendingDelete

	status    string
	statusErr bool

	spinner  spinner.Model
	help     help.Model
	showHelp bool

	lastRefresh time.Time
}

func newModel(deps uiDeps, identity string, minutes int) uiModel {
	if deps.log == nil {
		deps.log = zap.NewNop().Sugar()
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	ti := textinput.New()
	ti.CharLimit = 64
	return uiModel{
		deps:     deps,
		identity: identity,
		sel:      &selection.Controller{},
		slider:   timeframe.NewSlider(minutes),
		input:    ti,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing != editNone {
			return m.updateEditing(msg)
		}
		if m.confirm.active {
			return m.updateConfirm(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case snapshotMsg:
		prev := m.snap
		m.snap = msg.snap
		m.clampCursor()
		if msg.snap == nil {
			m.charts = [2]chartState{}
			return m, nil
		}
		// Optimistic patches keep BuiltAt; only a fresh poll reloads charts.
		if prev == nil || !prev.BuiltAt.Equal(msg.snap.BuiltAt) {
			m.lastRefresh = msg.snap.BuiltAt
			m.pollErr = nil
			return m, m.reloadCharts()
		}

	case pollErrMsg:
		m.pollErr = msg.err

	case sessionMsg:
		if msg.sess.Email != m.identity {
			m.identity = msg.sess.Email
			m.cursor = 0
			if msg.sess.SignedIn() {
				m.setStatus("signed in as "+msg.sess.Email, false)
			} else {
				m.setStatus("signed out", false)
			}
		}

	case chartMsg:
		cs := &m.charts[msg.kind]
		if msg.seq != cs.seq {
			m.deps.log.Debugw("stale chart response dropped", "kind", msg.kind, "seq", msg.seq, "latest", cs.seq)
			return m, nil
		}
		cs.loading = false
		cs.err = msg.err
		if msg.err == nil {
			cs.table = msg.table
		} else {
			m.deps.log.Warnw("chart readings failed", "kind", msg.kind, "err", msg.err)
		}

	case mutationMsg:
		if msg.err != nil {
			m.deps.log.Warnw("mutation failed", "action", msg.action, "err", msg.err)
			m.setStatus(fmt.Sprintf("%s failed: %v", msg.action, msg.err), true)
		} else {
			m.setStatus(msg.action+" saved", false)
		}

	case spinner.TickMsg:
		if !m.chartLoading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tickEvery()
	}

	return m, nil
}

func (m uiModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Esc):
		if k, ok := m.sel.CloseTop(); ok {
			m.charts[k] = chartState{seq: m.charts[k].seq + 1}
		}

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.items())-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Enter):
		items := m.items()
		if m.cursor < 0 || m.cursor >= len(items) {
			return m, nil
		}
		it := items[m.cursor]
		if it.kind == selection.KindProbe {
			m.sel.OpenProbe(it.id)
		} else {
			m.sel.OpenHub(it.id)
		}
		return m, m.loadChart(it.kind)

	case key.Matches(msg, keys.Shorter):
		return m.stepTimeframe(-1)

	case key.Matches(msg, keys.Longer):
		return m.stepTimeframe(1)

	case key.Matches(msg, keys.Refresh):
		if m.deps.sync != nil {
			m.deps.sync.Refresh()
		}
		return m, m.reloadCharts()

	case key.Matches(msg, keys.Rename):
		return m.beginRename()

	case key.Matches(msg, keys.Target):
		return m.beginTarget()

	case key.Matches(msg, keys.Toggle):
		return m, m.toggleVisible()

	case key.Matches(msg, keys.Delete):
		if it, ok := m.target(); ok {
			m.confirm = pendingDelete{active: true, kind: it.kind, id: it.id, name: m.itemName(it)}
		}

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m uiModel) stepTimeframe(n int) (tea.Model, tea.Cmd) {
	next := m.slider.Step(n)
	if next.Minutes() == m.slider.Minutes() {
		return m, nil
	}
	m.slider = next
	return m, m.reloadCharts()
}

// --- Focus helpers ---

// items lists the dashboard rows: each hub followed by its probes.
func (m uiModel) items() []item {
	if m.snap == nil {
		return nil
	}
	var out []item
	for _, h := range m.snap.Hubs {
		out = append(out, item{kind: selection.KindHub, id: h.ID})
		for _, p := range h.Probes {
			out = append(out, item{kind: selection.KindProbe, id: p.ID})
		}
	}
	return out
}

func (m *uiModel) clampCursor() {
	n := len(m.items())
	if n == 0 {
		m.cursor = 0
	} else if m.cursor >= n {
		m.cursor = n - 1
	}
}

// target is the entity an edit key acts on: the top overlay when it still
// resolves, otherwise the dashboard row under the cursor.
func (m uiModel) target() (item, bool) {
	if k, ok := m.sel.Top(); ok {
		switch k {
		case selection.KindProbe:
			if v, _ := m.sel.ResolveProbe(m.snap); v.Available {
				return item{kind: k, id: v.ID}, true
			}
		case selection.KindHub:
			if v, _ := m.sel.ResolveHub(m.snap); v.Available {
				return item{kind: k, id: v.ID}, true
			}
		}
		return item{}, false
	}
	items := m.items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return item{}, false
	}
	return items[m.cursor], true
}

func (m uiModel) itemName(it item) string {
	if it.kind == selection.KindProbe {
		p, _, _ := m.snap.FindProbe(it.id)
		return p.DisplayName()
	}
	h, _ := m.snap.FindHub(it.id)
	return h.DisplayName()
}

func (m *uiModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// --- Charts ---

// chartProbes returns the probes charted by the overlay of kind, in column
// order. ok is false when the overlay is closed or its entity is gone.
func (m uiModel) chartProbes(kind selection.Kind) ([]model.Probe, bool) {
	if kind == selection.KindProbe {
		v, open := m.sel.ResolveProbe(m.snap)
		if !open || !v.Available {
			return nil, false
		}
		return []model.Probe{v.Probe}, true
	}
	v, open := m.sel.ResolveHub(m.snap)
	if !open || !v.Available {
		return nil, false
	}
	return snapshot.VisibleProbes(v.Hub), true
}

// loadChart issues a fresh readings request for the overlay of kind and
// starts the spinner. Nothing is cached: every open, timeframe change and
// poll refetches.
func (m *uiModel) loadChart(kind selection.Kind) tea.Cmd {
	fetch := m.chartRequest(kind)
	if fetch == nil {
		return nil
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

// chartRequest bumps the overlay's sequence, superseding any request still
// in flight, and returns the fetch. It returns nil when there is nothing
// to chart.
func (m *uiModel) chartRequest(kind selection.Kind) tea.Cmd {
	cs := &m.charts[kind]
	cs.seq++
	probes, ok := m.chartProbes(kind)
	if !ok || m.deps.api == nil {
		cs.loading = false
		cs.table = align.Table{}
		return nil
	}
	cs.loading = true
	cs.err = nil

	seq := cs.seq
	api := m.deps.api
	timeout := m.deps.timeout
	start, end := timeframe.Window(m.deps.now(), m.slider.Minutes())

	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		ids := make([]int64, len(probes))
		for i, p := range probes {
			ids[i] = p.ID
		}
		readings, err := api.ReadingsBetween(ctx, ids, start, end)
		if err != nil {
			return chartMsg{kind: kind, seq: seq, err: err}
		}
		series := make([]model.TimeSeries, len(probes))
		for i, p := range probes {
			series[i] = model.SeriesFromReadings(p, readings[p.ID])
		}
		return chartMsg{kind: kind, seq: seq, table: align.Align(series)}
	}
}

func (m *uiModel) reloadCharts() tea.Cmd {
	var cmds []tea.Cmd
	if _, open := m.sel.ProbeID(); open {
		cmds = append(cmds, m.loadChart(selection.KindProbe))
	}
	if _, open := m.sel.HubID(); open {
		cmds = append(cmds, m.loadChart(selection.KindHub))
	}
	return tea.Batch(cmds...)
}

func (m uiModel) chartLoading() bool {
	return m.charts[selection.KindProbe].loading || m.charts[selection.KindHub].loading
}

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// --- Mutations ---

// mutate applies patch optimistically to the local snapshot and the
// synchronizer's mirror, then runs call in the background. A failure is
// reported in the status line; the optimistic state is left as attempted.
func (m *uiModel) mutate(action string, patch func(*snapshot.DataSnapshot), call func(context.Context, backend) error) tea.Cmd {
	if patch != nil {
		if m.snap != nil {
			c := m.snap.Clone()
			patch(c)
			m.snap = c
			m.clampCursor()
		}
		if m.deps.sync != nil {
			m.deps.sync.Patch(patch)
		}
	}
	if m.deps.api == nil {
		return nil
	}
	api := m.deps.api
	timeout := m.deps.timeout
	m.setStatus(action+"...", false)
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		return mutationMsg{action: action, err: call(ctx, api)}
	}
}

func (m uiModel) beginRename() (tea.Model, tea.Cmd) {
	it, ok := m.target()
	if !ok {
		return m, nil
	}
	m.editing = editProbeName
	m.input.Prompt = "Probe name: "
	if it.kind == selection.KindHub {
		m.editing = editHubName
		m.input.Prompt = "Hub name: "
	}
	m.editID = it.id
	m.input.SetValue(m.itemName(it))
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m uiModel) beginTarget() (tea.Model, tea.Cmd) {
	it, ok := m.target()
	if !ok || it.kind != selection.KindProbe {
		m.setStatus("select a probe to set its target", true)
		return m, nil
	}
	p, _, _ := m.snap.FindProbe(it.id)
	m.editing = editTarget
	m.editID = it.id
	m.input.Prompt = fmt.Sprintf("Target %s: ", m.deps.unit.Symbol())
	m.input.SetValue(strconv.FormatFloat(p.TargetTemp, 'f', -1, 64))
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m uiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.endEdit()
		return m, nil
	case tea.KeyEnter:
		kind, id, value := m.editing, m.editID, strings.TrimSpace(m.input.Value())
		m.endEdit()
		return m, m.commitEdit(kind, id, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *uiModel) endEdit() {
	m.editing = editNone
	m.editID = 0
	m.input.Blur()
	m.input.SetValue("")
}

func (m *uiModel) commitEdit(kind editKind, id int64, value string) tea.Cmd {
	switch kind {
	case editProbeName:
		if value == "" {
			m.setStatus("name cannot be empty", true)
			return nil
		}
		return m.mutate("rename probe",
			func(s *snapshot.DataSnapshot) {
				s.UpdateProbe(id, func(p *model.Probe) { p.Name = value })
			},
			func(ctx context.Context, api backend) error {
				return api.UpdateProbeName(ctx, id, value)
			})

	case editHubName:
		if value == "" {
			m.setStatus("name cannot be empty", true)
			return nil
		}
		h, ok := m.snap.FindHub(id)
		if !ok {
			return nil
		}
		h.Name = value
		return m.mutate("rename hub",
			func(s *snapshot.DataSnapshot) {
				s.UpdateHub(id, func(hub *model.Hub) { hub.Name = value })
			},
			func(ctx context.Context, api backend) error {
				return api.UpdateHub(ctx, h)
			})

	case editTarget:
		target, err := strconv.ParseFloat(value, 64)
		if err != nil || target <= 0 {
			m.setStatus(fmt.Sprintf("target %q must be a positive number", value), true)
			return nil
		}
		return m.mutate("set target",
			func(s *snapshot.DataSnapshot) {
				s.UpdateProbe(id, func(p *model.Probe) { p.TargetTemp = target })
			},
			func(ctx context.Context, api backend) error {
				return api.UpdateTargetTemp(ctx, id, target)
			})
	}
	return nil
}

func (m *uiModel) toggleVisible() tea.Cmd {
	it, ok := m.target()
	if !ok {
		return nil
	}
	if it.kind == selection.KindProbe {
		p, _, found := m.snap.FindProbe(it.id)
		if !found {
			return nil
		}
		p.Visible = !p.Visible
		return m.mutate("update probe",
			func(s *snapshot.DataSnapshot) {
				s.UpdateProbe(p.ID, func(sp *model.Probe) { sp.Visible = p.Visible })
			},
			func(ctx context.Context, api backend) error {
				_, err := api.UpdateProbe(ctx, p)
				return err
			})
	}
	h, found := m.snap.FindHub(it.id)
	if !found {
		return nil
	}
	h.Visible = !h.Visible
	return m.mutate("update hub",
		func(s *snapshot.DataSnapshot) {
			s.UpdateHub(h.ID, func(sh *model.Hub) { sh.Visible = h.Visible })
		},
		func(ctx context.Context, api backend) error {
			return api.UpdateHub(ctx, h)
		})
}

func (m uiModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pending := m.confirm
	m.confirm = pendingDelete{}
	if msg.String() != "y" {
		m.setStatus("delete cancelled", false)
		return m, nil
	}
	id := pending.id
	if pending.kind == selection.KindProbe {
		return m, m.mutate("delete probe",
			func(s *snapshot.DataSnapshot) { s.RemoveProbe(id) },
			func(ctx context.Context, api backend) error { return api.DeleteProbe(ctx, id) })
	}
	return m, m.mutate("delete hub",
		func(s *snapshot.DataSnapshot) { s.RemoveHub(id) },
		func(ctx context.Context, api backend) error { return api.DeleteHub(ctx, id) })
}
