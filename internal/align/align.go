// Package align merges per-probe reading series onto one shared time axis.
//
// The axis is the union of every distinct timestamp across the inputs,
// ascending. A series that has no reading at a given instant gets an absent
// cell rather than an interpolated or zero value, so charts can draw a gap.
package align

import (
	"math"
	"sort"
	"time"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// Column describes one input series in the output table.
type Column struct {
	ID     string
	Name   string
	Colour string
	Points int // readings this series contributed
}

// Cell is a single table value. OK is false when the series had no reading
// at the row's exact timestamp.
type Cell struct {
	Temp float64
	OK   bool
}

// Row is one instant on the shared axis, with a cell per column.
type Row struct {
	Time  time.Time
	Cells []Cell
}

// Table is the aligned result. Every input series is declared in Series,
// including those with zero readings.
type Table struct {
	Series []Column
	Rows   []Row
}

// Align builds a table from series. Column order follows input order.
func Align(series []model.TimeSeries) Table {
	tbl := Table{Series: make([]Column, len(series))}
	if len(series) == 0 {
		return tbl
	}

	timeSet := make(map[int64]time.Time)
	lookups := make([]map[int64]float64, len(series))

	for i, s := range series {
		tbl.Series[i] = Column{ID: s.ID, Name: s.Name, Colour: s.Colour, Points: len(s.Points)}

		// Sort a copy so that, for duplicate instants, the last reading in
		// time order is the one kept.
		pts := make([]model.Point, len(s.Points))
		copy(pts, s.Points)
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Time.Before(pts[b].Time) })

		m := make(map[int64]float64, len(pts))
		for _, p := range pts {
			k := p.Time.UnixNano()
			m[k] = p.Temperature
			if _, ok := timeSet[k]; !ok {
				timeSet[k] = p.Time
			}
		}
		lookups[i] = m
	}

	keys := make([]int64, 0, len(timeSet))
	for k := range timeSet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	tbl.Rows = make([]Row, len(keys))
	for r, k := range keys {
		cells := make([]Cell, len(series))
		for i, m := range lookups {
			if v, ok := m[k]; ok {
				cells[i] = Cell{Temp: v, OK: true}
			}
		}
		tbl.Rows[r] = Row{Time: timeSet[k], Cells: cells}
	}
	return tbl
}

// AlignMap aligns a keyed set of point slices. Columns are ordered by key.
func AlignMap(in map[string][]model.Point) Table {
	ids := make([]string, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	series := make([]model.TimeSeries, len(ids))
	for i, id := range ids {
		series[i] = model.TimeSeries{ID: id, Name: id, Points: in[id]}
	}
	return Align(series)
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Column returns the cells of column i in row order.
func (t Table) Column(i int) []Cell {
	out := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row.Cells) {
			out[r] = row.Cells[i]
		}
	}
	return out
}

// Range returns the minimum and maximum present value across all cells.
// ok is false when no cell is present.
func (t Table) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range t.Rows {
		for _, c := range row.Cells {
			if !c.OK {
				continue
			}
			ok = true
			lo = math.Min(lo, c.Temp)
			hi = math.Max(hi, c.Temp)
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// Span returns the first and last row times. ok is false for an empty table.
func (t Table) Span() (first, last time.Time, ok bool) {
	if len(t.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.Rows[0].Time, t.Rows[len(t.Rows)-1].Time, true
}
