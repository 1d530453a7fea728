// Package chart renders aligned reading tables as terminal sparklines, one
// row per probe, with a shared time axis underneath.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/daviddao/grillgauge_viewer/internal/align"
	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const (
	padGlyph = "╌" // before the first reading
	gapGlyph = "·" // absent cell between readings

	yPadding = 5.0
)

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	gapStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tickStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	axisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// StatusColor returns the colour used for a probe status.
func StatusColor(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusOverTarget:
		return lipgloss.Color("196") // red
	case model.StatusAtTarget:
		return lipgloss.Color("78") // soft green
	case model.StatusAlmost:
		return lipgloss.Color("220") // yellow
	case model.StatusHalfWay:
		return lipgloss.Color("208") // orange
	case model.StatusHeating:
		return lipgloss.Color("75") // blue
	default:
		return lipgloss.Color("240") // gray
	}
}

// SeriesColor returns the probe's own colour, or a neutral fallback.
func SeriesColor(hex string) lipgloss.Color {
	if hex == "" {
		return lipgloss.Color("252")
	}
	return lipgloss.Color(hex)
}

// YRange pads the data range by 5 degrees each side and rounds outward.
func YRange(tbl align.Table) (lo, hi float64, ok bool) {
	dataLo, dataHi, ok := tbl.Range()
	if !ok {
		return 0, 0, false
	}
	return math.Floor(dataLo - yPadding), math.Ceil(dataHi + yPadding), true
}

// Bucket reduces tbl to at most width rows by averaging present cells in
// consecutive groups. A bucket where a series has no present cell keeps an
// absent cell. Tables that already fit are returned unchanged.
func Bucket(tbl align.Table, width int) []align.Row {
	n := len(tbl.Rows)
	if width <= 0 || n <= width {
		return tbl.Rows
	}
	cols := len(tbl.Series)
	out := make([]align.Row, width)
	for b := 0; b < width; b++ {
		from := b * n / width
		to := (b + 1) * n / width
		sums := make([]float64, cols)
		counts := make([]int, cols)
		for _, row := range tbl.Rows[from:to] {
			for i, c := range row.Cells {
				if c.OK {
					sums[i] += c.Temp
					counts[i]++
				}
			}
		}
		cells := make([]align.Cell, cols)
		for i := range cells {
			if counts[i] > 0 {
				cells[i] = align.Cell{Temp: sums[i] / float64(counts[i]), OK: true}
			}
		}
		out[b] = align.Row{Time: tbl.Rows[to-1].Time, Cells: cells}
	}
	return out
}

// Sparkline renders cells right-aligned in width columns. Absent cells are
// drawn as a dim gap so missing readings are never mistaken for a value.
func Sparkline(cells []align.Cell, width int, lo, hi float64, colour lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if len(cells) == 0 {
		return dimStyle.Render(strings.Repeat(padGlyph, width))
	}
	if len(cells) > width {
		cells = cells[len(cells)-width:]
	}

	span := hi - lo
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	if pad := width - len(cells); pad > 0 {
		sb.WriteString(dimStyle.Render(strings.Repeat(padGlyph, pad)))
	}
	style := lipgloss.NewStyle().Foreground(colour)
	for _, c := range cells {
		if !c.OK {
			sb.WriteString(gapStyle.Render(gapGlyph))
			continue
		}
		norm := math.Max(0, math.Min(1, (c.Temp-lo)/span))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}

// Timeline renders time labels under a sparkline of len(times) columns,
// right-aligned in width like Sparkline. Labels are spaced so they never
// touch.
func Timeline(times []time.Time, width int, layout string) string {
	if len(times) == 0 || width <= 0 {
		return ""
	}
	if len(times) > width {
		times = times[len(times)-width:]
	}
	padLen := width - len(times)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	labelLen := len(time.Time{}.Format(layout))
	every := labelLen + 4
	if w := width / 5; w > every {
		every = w
	}

	lastEnd := -1
	place := func(pos int, label string) {
		if pos < 0 {
			pos = 0
		}
		end := pos + len(label)
		if end > width || pos <= lastEnd {
			return
		}
		copy(line[pos:end], []rune(label))
		lastEnd = end
	}
	for i := 0; i < len(times); i += every {
		place(padLen+i, times[i].Format(layout))
	}
	return tickStyle.Render(string(line))
}

// Options controls Render.
type Options struct {
	Width   int // total width including labels
	Minutes int // query window, for tick format and empty message
	Unit    model.Unit
}

const labelWidth = 16

// Render draws the full chart block: one sparkline per series with its
// latest value, the y range, and the time axis. Series without readings
// are listed with "no data".
func Render(tbl align.Table, opts Options) string {
	if len(tbl.Series) == 0 {
		return axisStyle.Render("No probes to chart")
	}
	if tbl.Empty() {
		var sb strings.Builder
		sb.WriteString(axisStyle.Render(fmt.Sprintf("No readings in the last %s", timeframe.Label(opts.Minutes))))
		sb.WriteString("\n")
		sb.WriteString(Legend(tbl.Series))
		return sb.String()
	}

	lo, hi, _ := YRange(tbl)
	valueWidth := 9
	sparkWidth := opts.Width - labelWidth - valueWidth - 2
	if sparkWidth < 10 {
		sparkWidth = 10
	}

	rows := Bucket(tbl, sparkWidth)
	bucketed := align.Table{Series: tbl.Series, Rows: rows}

	var lines []string
	lines = append(lines, axisStyle.Render(fmt.Sprintf("%*s %s", labelWidth, "", rangeLabel(lo, hi, opts.Unit))))
	for i, col := range tbl.Series {
		name := truncate(col.Name, labelWidth)
		nameStyled := lipgloss.NewStyle().Foreground(SeriesColor(col.Colour)).Render(fmt.Sprintf("%-*s", labelWidth, name))
		var spark, last string
		if col.Points == 0 {
			spark = dimStyle.Render(strings.Repeat(padGlyph, sparkWidth))
			last = axisStyle.Render("no data")
		} else {
			cells := bucketed.Column(i)
			spark = Sparkline(cells, sparkWidth, lo, hi, SeriesColor(col.Colour))
			v, ok := lastPresent(tbl.Column(i))
			last = model.FormatTemp(v, ok, opts.Unit)
		}
		lines = append(lines, nameStyled+" "+spark+" "+last)
	}

	times := make([]time.Time, len(rows))
	for i, r := range rows {
		times[i] = r.Time.Local()
	}
	lines = append(lines, fmt.Sprintf("%*s %s", labelWidth, "", Timeline(times, sparkWidth, timeframe.TickLayout(opts.Minutes))))
	return strings.Join(lines, "\n")
}

// Legend lists series names in their colours, marking empty ones.
func Legend(cols []align.Column) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		s := lipgloss.NewStyle().Foreground(SeriesColor(c.Colour)).Render("■ " + c.Name)
		if c.Points == 0 {
			s += axisStyle.Render(" (no data)")
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "  ")
}

// ProgressBar renders pct (0..100+, clamped) as a filled bar.
func ProgressBar(pct, width int, colour lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return lipgloss.NewStyle().Foreground(colour).Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

func rangeLabel(lo, hi float64, u model.Unit) string {
	return fmt.Sprintf("%s .. %s", model.FormatTemp(lo, true, u), model.FormatTemp(hi, true, u))
}

func lastPresent(cells []align.Cell) (float64, bool) {
	for i := len(cells) - 1; i >= 0; i-- {
		if cells[i].OK {
			return cells[i].Temp, true
		}
	}
	return 0, false
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
