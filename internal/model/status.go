package model

import (
	"math"
	"strconv"
	"strings"
)

// Status classifies how close a probe is to its target temperature.
type Status int

const (
	StatusDisconnected Status = iota
	StatusHeating
	StatusHalfWay
	StatusAlmost
	StatusAtTarget
	StatusOverTarget
)

// Progress thresholds, in percent of target.
const (
	halfWayPct = 50
	almostPct  = 90
	atPct      = 100
	overPct    = 115
)

var statusText = map[Status]string{
	StatusDisconnected: "Disconnected",
	StatusHeating:      "Heating",
	StatusHalfWay:      "Half way to target",
	StatusAlmost:       "Almost at target",
	StatusAtTarget:     "At target",
	StatusOverTarget:   "Over target temp",
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "Unknown"
}

// Progress returns round(current/target*100) clamped at 0. Disconnected
// probes and probes without a positive target report 0.
func Progress(p Probe) int {
	cur, ok := p.Current()
	if !ok || p.TargetTemp <= 0 {
		return 0
	}
	pct := round(cur / p.TargetTemp * 100)
	if pct < 0 {
		return 0
	}
	return pct
}

// StatusOf classifies p. A disconnected probe is always StatusDisconnected
// regardless of any stale temperature it still carries.
func StatusOf(p Probe) Status {
	if !p.Connected {
		return StatusDisconnected
	}
	pct := Progress(p)
	switch {
	case pct >= overPct:
		return StatusOverTarget
	case pct >= atPct:
		return StatusAtTarget
	case pct >= almostPct:
		return StatusAlmost
	case pct >= halfWayPct:
		return StatusHalfWay
	default:
		return StatusHeating
	}
}

// Unit is the display unit for temperatures.
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ParseUnit accepts "c", "celsius", "f", "fahrenheit" in any case.
// Anything else yields Fahrenheit and ok=false.
func ParseUnit(s string) (Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius":
		return Celsius, true
	case "f", "fahrenheit":
		return Fahrenheit, true
	}
	return Fahrenheit, false
}

// Symbol returns the degree suffix, e.g. "°F".
func (u Unit) Symbol() string {
	if u == Celsius {
		return "°C"
	}
	return "°F"
}

// FormatTemp renders v with the unit symbol, or "--" when ok is false.
func FormatTemp(v float64, ok bool, u Unit) string {
	if !ok {
		return "--"
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + u.Symbol()
}
