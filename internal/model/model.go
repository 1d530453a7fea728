// Package model defines the hub, probe, and reading types exchanged with the
// GrillGauge API, plus the status rules the dashboard derives from them.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Hub is a base station that owns up to four probes.
type Hub struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Connected bool    `json:"connected"`
	Visible   bool    `json:"visible"`
	Probes    []Probe `json:"probes"`
}

// Probe is a single thermometer. CurrentTemp only means something while
// Connected is true; use Current to read it.
type Probe struct {
	ID          int64   `json:"id"`
	LocalID     int     `json:"localId"`
	HubID       int64   `json:"hubId,omitempty"`
	Name        string  `json:"name"`
	TargetTemp  float64 `json:"targetTemp"`
	CurrentTemp float64 `json:"currentTemp"`
	Colour      string  `json:"colour"`
	Connected   bool    `json:"connected"`
	Visible     bool    `json:"visible"`
}

// Reading is one timestamped temperature sample.
type Reading struct {
	ID          int64     `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
}

// User is the account record returned by the user lookup.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// UserResult is the outcome of a user lookup: either a user was found or not.
type UserResult struct {
	User  User
	Found bool
}

// FoundUser wraps u as a positive lookup result.
func FoundUser(u User) UserResult { return UserResult{User: u, Found: true} }

// NotFound is the negative lookup result.
func NotFound() UserResult { return UserResult{} }

// UnmarshalJSON defaults Visible to true when the field is absent and
// stamps each probe with the owning hub's ID.
func (h *Hub) UnmarshalJSON(data []byte) error {
	type alias Hub
	a := alias{Visible: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*h = Hub(a)
	for i := range h.Probes {
		if h.Probes[i].HubID == 0 {
			h.Probes[i].HubID = h.ID
		}
	}
	return nil
}

// UnmarshalJSON defaults Visible to true when the field is absent.
func (p *Probe) UnmarshalJSON(data []byte) error {
	type alias Probe
	a := alias{Visible: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = Probe(a)
	return nil
}

// Current returns the live temperature, or ok=false when the probe is
// disconnected.
func (p Probe) Current() (float64, bool) {
	if !p.Connected {
		return 0, false
	}
	return p.CurrentTemp, true
}

// DisplayName returns the probe's name, falling back to "Probe <id>".
func (p Probe) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Probe %d", p.ID)
}

// DisplayName returns the hub's name, falling back to "Hub <id>".
func (h Hub) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return fmt.Sprintf("Hub %d", h.ID)
}

// ConnectedProbes counts probes currently reporting.
func (h Hub) ConnectedProbes() int {
	n := 0
	for _, p := range h.Probes {
		if p.Connected {
			n++
		}
	}
	return n
}

// Point is a single (time, temperature) pair in a TimeSeries.
type Point struct {
	Time        time.Time
	Temperature float64
}

// TimeSeries is the readings of one probe over a query window. Derived per
// fetch and never persisted.
type TimeSeries struct {
	ID     string
	Name   string
	Colour string
	Points []Point
}

// SeriesFromReadings converts readings into a series for probe p.
// The series name is the probe's display name.
func SeriesFromReadings(p Probe, readings []Reading) TimeSeries {
	pts := make([]Point, 0, len(readings))
	for _, r := range readings {
		pts = append(pts, Point{Time: r.Timestamp, Temperature: r.Temperature})
	}
	return TimeSeries{
		ID:     fmt.Sprintf("%d", p.ID),
		Name:   p.DisplayName(),
		Colour: p.Colour,
		Points: pts,
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
