// Package timeframe maps a linear slider position onto a chart look-back
// duration. The curve is quadratic so the left half of the slider covers
// short windows in fine steps while the right half reaches a full day.
package timeframe

import (
	"math"
	"strconv"
	"time"
)

const (
	// MinMinutes is the shortest selectable window.
	MinMinutes = 5
	// MaxMinutes is the longest selectable window (24h).
	MaxMinutes = 1440
	// DefaultMinutes is the window charts open with.
	DefaultMinutes = 60

	span = MaxMinutes - MinMinutes
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PositionToDuration maps a slider position in [MinMinutes, MaxMinutes]
// to a window length in whole minutes. Out-of-range positions are clamped.
func PositionToDuration(position float64) int {
	t := clamp01((position - MinMinutes) / span)
	return int(math.Round(MinMinutes + t*t*span))
}

// DurationToPosition is the inverse of PositionToDuration. Durations outside
// the range are clamped.
func DurationToPosition(minutes float64) int {
	t := clamp01((minutes - MinMinutes) / span)
	return int(math.Round(math.Sqrt(t)*span + MinMinutes))
}

// Label formats a window length for display: "45m", "2h", "1.5h".
// Non-positive input yields "".
func Label(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	if minutes < 60 {
		return strconv.Itoa(minutes) + "m"
	}
	hours := math.Round(float64(minutes)/60*10) / 10
	if hours == math.Trunc(hours) {
		return strconv.FormatFloat(hours, 'f', 0, 64) + "h"
	}
	return strconv.FormatFloat(hours, 'f', 1, 64) + "h"
}

// Window returns the query interval [now-minutes, now].
func Window(now time.Time, minutes int) (start, end time.Time) {
	return now.Add(-time.Duration(minutes) * time.Minute), now
}

// TickLayout returns the time layout for chart axis labels: clock time up
// to 12h windows, calendar date beyond.
func TickLayout(minutes int) string {
	if minutes <= 720 {
		return "15:04"
	}
	return "Jan 2"
}

// Slider holds a slider position and moves it in fixed steps.
type Slider struct {
	pos float64
}

// steps is the number of key presses needed to traverse the whole slider.
const steps = 48

// NewSlider returns a slider positioned for the given window length.
func NewSlider(minutes int) Slider {
	return Slider{pos: float64(DurationToPosition(float64(minutes)))}
}

// Position returns the raw slider position.
func (s Slider) Position() float64 { return s.pos }

// Minutes returns the window length the slider currently selects.
func (s Slider) Minutes() int { return PositionToDuration(s.pos) }

// Step moves the slider by n steps (negative moves left) and clamps.
func (s Slider) Step(n int) Slider {
	p := s.pos + float64(n)*span/steps
	s.pos = math.Max(MinMinutes, math.Min(MaxMinutes, p))
	return s
}
