package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/daviddao/grillgauge_viewer/internal/chart"
	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/selection"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F97316")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#C2410C")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Background(lipgloss.Color("#313244")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	connectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F38BA8"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086")).
			Width(11)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

const progressWidth = 12

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')
	b.WriteString(m.renderTabBar())
	b.WriteRune('\n')
	b.WriteRune('\n')

	contentHeight := m.height - 5 // title + tabs + status + padding
	if m.showHelp {
		contentHeight -= 3
	}

	var content string
	top, open := m.sel.Top()
	switch {
	case open && top == selection.KindProbe:
		content = m.renderProbeOverlay()
	case open && top == selection.KindHub:
		content = m.renderHubOverlay()
	default:
		content = m.renderDashboard()
	}

	lines := strings.Split(content, "\n")
	if contentHeight > 0 && len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}
	content = truncateLines(strings.Join(lines, "\n"), m.width)
	b.WriteString(content)

	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-2 {
		b.WriteRune('\n')
		rendered++
	}

	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}
	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("grillgauge viewer")
	var stats string
	if m.snap != nil {
		stats = fmt.Sprintf("%d hubs | %d/%d probes connected",
			m.snap.TotalHubs, m.snap.ConnectedProbes, m.snap.TotalProbes)
	}
	if m.identity != "" {
		if stats != "" {
			stats += " | "
		}
		stats += m.identity
	}
	stats = dimStyle.Render(stats)
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-2))
	return title + gap + stats
}

func (m uiModel) renderTabBar() string {
	top, hasTop := m.sel.Top()
	tab := func(label string, active bool) string {
		if active {
			return tabActiveStyle.Render(label)
		}
		return tabInactiveStyle.Render(label)
	}

	tabs := []string{tab("Dashboard", !hasTop)}
	if id, ok := m.sel.HubID(); ok {
		h, found := m.snap.FindHub(id)
		name := fmt.Sprintf("Hub %d", id)
		if found {
			name = h.DisplayName()
		}
		tabs = append(tabs, tab("Hub: "+name, hasTop && top == selection.KindHub))
	}
	if id, ok := m.sel.ProbeID(); ok {
		p, _, found := m.snap.FindProbe(id)
		name := fmt.Sprintf("Probe %d", id)
		if found {
			name = p.DisplayName()
		}
		tabs = append(tabs, tab("Probe: "+name, hasTop && top == selection.KindProbe))
	}
	tabs = append(tabs, dimStyle.Render("  "+timeframe.Label(m.slider.Minutes())))
	return strings.Join(tabs, " ")
}

func (m uiModel) renderStatusBar() string {
	if m.editing != editNone {
		return m.input.View()
	}
	if m.confirm.active {
		return errStyle.Render(fmt.Sprintf(" Delete %s %q? y to confirm, any other key to cancel", m.confirm.kind, m.confirm.name))
	}

	left := " " + m.contextHelp()
	if m.status != "" {
		if m.statusErr {
			left = " " + errStyle.Render(m.status)
		} else {
			left = " " + m.status
		}
	}

	var right string
	switch {
	case m.pollErr != nil:
		right = errStyle.Render("poll failed, showing last data") + " "
	case m.identity == "":
		right = "signed out "
	case m.lastRefresh.IsZero():
		right = "waiting for first poll "
	default:
		right = fmt.Sprintf("refreshed %s ago ", shortDuration(m.deps.now().Sub(m.lastRefresh)))
	}
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	return statusBarStyle.Render(left + gap + right)
}

// contextHelp returns help text appropriate for what is on screen.
func (m uiModel) contextHelp() string {
	top, ok := m.sel.Top()
	switch {
	case ok && top == selection.KindProbe:
		return "h/l: timeframe | n: rename | t: target | x: delete | esc: close | q: quit"
	case ok && top == selection.KindHub:
		return "h/l: timeframe | n: rename | v: show/hide | x: delete | esc: close | q: quit"
	default:
		return "j/k: select | enter: open | n/t/v/x: edit | r: refresh | ?: help | q: quit"
	}
}

// --- Dashboard ---

func (m uiModel) renderDashboard() string {
	var b strings.Builder

	if m.snap == nil {
		if m.identity == "" {
			b.WriteString(headerStyle.Render("Not signed in"))
			b.WriteRune('\n')
			b.WriteString(dimStyle.Render("  Sign in to GrillGauge; the dashboard follows " + m.deps.sessionPath))
		} else {
			b.WriteString(dimStyle.Render("  Loading hubs for " + m.identity + "..."))
		}
		b.WriteRune('\n')
		return b.String()
	}

	if len(m.snap.Hubs) == 0 {
		b.WriteString(headerStyle.Render("Welcome to GrillGauge"))
		b.WriteRune('\n')
		b.WriteString(dimStyle.Render("  No hubs yet. Add a hub to begin monitoring."))
		b.WriteRune('\n')
		return b.String()
	}

	row := 0
	for i, h := range m.snap.Hubs {
		if i > 0 {
			b.WriteRune('\n')
		}
		b.WriteString(m.hubLine(h, row == m.cursor))
		b.WriteRune('\n')
		row++
		if len(h.Probes) == 0 {
			b.WriteString(dimStyle.Render("    (no probes paired)"))
			b.WriteRune('\n')
		}
		for _, p := range h.Probes {
			b.WriteString(m.probeLine(p, row == m.cursor))
			b.WriteRune('\n')
			row++
		}
	}
	return b.String()
}

func cursorMark(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

func connectionBadge(connected bool) string {
	if connected {
		return connectedStyle.Render("● Connected")
	}
	return disconnectedStyle.Render("○ Disconnected")
}

func (m uiModel) hubLine(h model.Hub, selected bool) string {
	name := headerStyle.Render(h.DisplayName())
	if selected {
		name = headerStyle.Underline(true).Render(h.DisplayName())
	}
	line := fmt.Sprintf("%s%s  %s  %s", cursorMark(selected), name, connectionBadge(h.Connected),
		dimStyle.Render(fmt.Sprintf("%d/%d probes", h.ConnectedProbes(), len(h.Probes))))
	if !h.Visible {
		line += dimStyle.Render("  (hidden)")
	}
	return line
}

// probeLine renders one probe card row: name, current and target
// temperature, progress bar and status.
func (m uiModel) probeLine(p model.Probe, selected bool) string {
	st := model.StatusOf(p)
	pct := model.Progress(p)
	cur, ok := p.Current()
	colour := chart.StatusColor(st)

	name := fmt.Sprintf("%-18s", truncate(p.DisplayName(), 18))
	nameStyle := lipgloss.NewStyle().Foreground(chart.SeriesColor(p.Colour))
	if selected {
		nameStyle = nameStyle.Bold(true)
	}
	if !p.Visible {
		nameStyle = dimStyle
	}

	line := fmt.Sprintf("  %s%s %7s / %-7s %s %3d%%  %s",
		cursorMark(selected),
		nameStyle.Render(name),
		model.FormatTemp(cur, ok, m.deps.unit),
		model.FormatTemp(p.TargetTemp, true, m.deps.unit),
		chart.ProgressBar(pct, progressWidth, colour),
		pct,
		lipgloss.NewStyle().Foreground(colour).Render(st.String()),
	)
	if !p.Visible {
		line += dimStyle.Render("  (hidden)")
	}
	return line
}

// --- Overlays ---

func (m uiModel) renderProbeOverlay() string {
	v, _ := m.sel.ResolveProbe(m.snap)
	if !v.Available {
		return unavailable("Probe", v.ID)
	}
	p := v.Probe
	st := model.StatusOf(p)
	cur, ok := p.Current()

	var b strings.Builder
	b.WriteString(headerStyle.Render(p.DisplayName()))
	b.WriteRune('\n')
	field := func(label, value string) {
		b.WriteString("  " + labelStyle.Render(label) + value + "\n")
	}
	field("Hub", v.Hub.DisplayName())
	field("Current", model.FormatTemp(cur, ok, m.deps.unit))
	field("Target", model.FormatTemp(p.TargetTemp, true, m.deps.unit))
	field("Status", lipgloss.NewStyle().Foreground(chart.StatusColor(st)).Render(st.String()))
	field("Progress", fmt.Sprintf("%s %d%%", chart.ProgressBar(model.Progress(p), 24, chart.StatusColor(st)), model.Progress(p)))
	b.WriteRune('\n')
	b.WriteString(m.renderChart(selection.KindProbe))
	return b.String()
}

func (m uiModel) renderHubOverlay() string {
	v, _ := m.sel.ResolveHub(m.snap)
	if !v.Available {
		return unavailable("Hub", v.ID)
	}
	h := v.Hub

	var b strings.Builder
	b.WriteString(headerStyle.Render(h.DisplayName()) + "  " + connectionBadge(h.Connected))
	b.WriteRune('\n')
	if len(h.Probes) == 0 {
		b.WriteString(dimStyle.Render("  (no probes paired)"))
		b.WriteRune('\n')
	}
	for _, p := range h.Probes {
		b.WriteString(m.probeLine(p, false))
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	b.WriteString(m.renderChart(selection.KindHub))
	return b.String()
}

func unavailable(kind string, id int64) string {
	return headerStyle.Render(fmt.Sprintf("%s %d", kind, id)) + "\n" +
		dimStyle.Render(fmt.Sprintf("  This %s is no longer available.", strings.ToLower(kind))) + "\n" +
		dimStyle.Render("  esc: close")
}

func (m uiModel) renderChart(kind selection.Kind) string {
	cs := m.charts[kind]
	heading := headerStyle.Render("Temperature, last "+timeframe.Label(m.slider.Minutes())) +
		dimStyle.Render("  (h/l to change)")
	if cs.loading {
		heading += "  " + m.spinner.View()
	}

	var body string
	switch {
	case cs.err != nil:
		body = errStyle.Render(fmt.Sprintf("Could not load readings: %v", cs.err))
	case cs.loading && len(cs.table.Series) == 0:
		body = dimStyle.Render("Loading readings...")
	default:
		body = chart.Render(cs.table, chart.Options{
			Width:   m.width - 2,
			Minutes: m.slider.Minutes(),
			Unit:    m.deps.unit,
		})
	}
	return heading + "\n" + body + "\n"
}

// --- Helpers ---

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func shortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

