// ggv is a live terminal dashboard for GrillGauge meat-thermometer hubs.
//
// It polls the GrillGauge API for the signed-in user's hubs and probes,
// shows each probe's progress toward its target temperature, and charts
// reading history for a focused probe or hub over an adjustable timeframe.
// The signed-in identity comes from the session file, which is watched so
// logging in or out elsewhere takes effect immediately.
//
// Usage:
//
//	ggv                          # Auto-discover config and session
//	ggv --config <path>          # Use a specific ggv.yaml
//	ggv --json                   # Dump current hubs as JSON and exit
//	ggv --hub <id>               # Open a hub on startup
//	ggv --probe <id>             # Open a probe on startup
//	ggv --refresh 10s            # Override the poll interval
//	ggv --timeframe 3h           # Initial chart timeframe (5m..24h)
//	ggv --version                # Print version and exit
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/daviddao/grillgauge_viewer/internal/apiclient"
	"github.com/daviddao/grillgauge_viewer/internal/config"
	"github.com/daviddao/grillgauge_viewer/internal/logging"
	"github.com/daviddao/grillgauge_viewer/internal/model"
	"github.com/daviddao/grillgauge_viewer/internal/session"
	"github.com/daviddao/grillgauge_viewer/internal/snapshot"
	"github.com/daviddao/grillgauge_viewer/internal/syncer"
	"github.com/daviddao/grillgauge_viewer/internal/timeframe"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

// parseTimeframeFlag accepts either plain minutes ("90") or a duration
// ("2h", "45m") and checks it against the slider range.
func parseTimeframeFlag(s string) (int, error) {
	s = strings.TrimSpace(s)
	minutes, err := strconv.Atoi(s)
	if err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil {
			return 0, fmt.Errorf("invalid timeframe %q (use minutes or a duration like 2h)", s)
		}
		minutes = int(d / time.Minute)
	}
	if minutes < timeframe.MinMinutes || minutes > timeframe.MaxMinutes {
		return 0, fmt.Errorf("timeframe %q out of range (%s..%s)", s,
			timeframe.Label(timeframe.MinMinutes), timeframe.Label(timeframe.MaxMinutes))
	}
	return minutes, nil
}

// jsonOutput is the structure for --json mode.
type jsonOutput struct {
	Email string    `json:"email"`
	Hubs  []jsonHub `json:"hubs"`
	Stats jsonStats `json:"stats"`
}

type jsonHub struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Connected bool        `json:"connected"`
	Probes    []jsonProbe `json:"probes"`
}

type jsonProbe struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Connected   bool     `json:"connected"`
	CurrentTemp *float64 `json:"current_temp"`
	TargetTemp  float64  `json:"target_temp"`
	Progress    int      `json:"progress"`
	Status      string   `json:"status"`
}

type jsonStats struct {
	TotalHubs       int `json:"total_hubs"`
	ConnectedHubs   int `json:"connected_hubs"`
	TotalProbes     int `json:"total_probes"`
	ConnectedProbes int `json:"connected_probes"`
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ggv: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "path to ggv.yaml (default: ./config or ~/.grillgauge)")
	refreshDur := flag.Duration("refresh", 0, "poll interval (default: poll.interval from config)")
	jsonMode := flag.Bool("json", false, "dump current hubs as JSON and exit (no TUI)")
	hubFlag := flag.Int64("hub", 0, "open the hub with this ID on startup")
	probeFlag := flag.Int64("probe", 0, "open the probe with this ID on startup")
	timeframeFlag := flag.String("timeframe", "", "initial chart timeframe, minutes or duration (default: display.timeframe)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ggv %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("%v", err)
	}
	if *refreshDur > 0 {
		cfg.Poll.Interval = *refreshDur
	}
	minutes := cfg.Display.Timeframe
	if *timeframeFlag != "" {
		if minutes, err = parseTimeframeFlag(*timeframeFlag); err != nil {
			fail("%v", err)
		}
	}

	sessPath, err := sessionPath(cfg)
	if err != nil {
		fail("%v", err)
	}
	sess, err := session.Load(sessPath)
	if err != nil {
		fail("%v", err)
	}
	holder := &session.Holder{}
	holder.Set(sess)

	// --json mode: one fetch, print, exit. Logs go to stderr.
	if *jsonMode {
		log, err := logging.New(logging.Options{Level: cfg.Log.Level})
		if err != nil {
			fail("%v", err)
		}
		if err := dumpJSON(cfg, holder, log); err != nil {
			fail("%v", err)
		}
		os.Exit(0)
	}

	log, err := logging.New(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level})
	if err != nil {
		fail("%v", err)
	}
	defer log.Sync()

	client := newClient(cfg, holder, log)

	if err := os.MkdirAll(filepath.Dir(sessPath), 0o700); err != nil {
		fail("session dir: %v", err)
	}
	w, err := session.NewWatcher(sessPath)
	if err != nil {
		fail("watch: %v", err)
	}
	defer w.Close()

	var p *tea.Program
	poll := syncer.New(syncer.Options{
		Interval: cfg.Poll.Interval,
		Timeout:  cfg.API.Timeout,
		Fetch:    client.Hubs,
		Logger:   log,
		OnUpdate: func(s *snapshot.DataSnapshot) { p.Send(snapshotMsg{snap: s}) },
		OnError:  func(err error) { p.Send(pollErrMsg{err: err}) },
	})
	defer poll.Stop()

	m := newModel(uiDeps{
		api:         client,
		sync:        poll,
		log:         log,
		unit:        cfg.Unit(),
		timeout:     cfg.API.Timeout,
		sessionPath: sessPath,
	}, sess.Email, minutes)

	// Apply --hub/--probe: focus resolves once the first poll lands.
	if *hubFlag != 0 {
		m.sel.OpenHub(*hubFlag)
	}
	if *probeFlag != 0 {
		m.sel.OpenProbe(*probeFlag)
	}

	p = tea.NewProgram(m, tea.WithAltScreen())

	// Feed session changes into the synchronizer and the TUI.
	go func() {
		for range w.Changes() {
			s, err := session.Load(sessPath)
			if err != nil {
				log.Warnw("session reload failed", "path", sessPath, "err", err)
				continue
			}
			if holder.Set(s) {
				log.Infow("identity changed", "email", s.Email)
				poll.SetIdentity(s.Email)
			}
			p.Send(sessionMsg{sess: s})
		}
	}()

	log.Infow("starting dashboard", "version", Version, "api", client.String(), "session", sessPath)
	poll.SetIdentity(sess.Email)

	if _, err := p.Run(); err != nil {
		fail("%v", err)
	}
}

// sessionPath resolves the session file: config first, then discovery,
// then the default login location (which may not exist yet).
func sessionPath(cfg *config.Config) (string, error) {
	if cfg.Session.File != "" {
		return cfg.Session.File, nil
	}
	if path, err := session.Discover(); err == nil {
		return path, nil
	}
	return session.DefaultPath()
}

func newClient(cfg *config.Config, holder *session.Holder, log *zap.SugaredLogger) *apiclient.Client {
	return apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Token:   holder.Token,
		Logger:  log,
	})
}

func dumpJSON(cfg *config.Config, holder *session.Holder, log *zap.SugaredLogger) error {
	sess := holder.Get()
	if !sess.SignedIn() {
		return fmt.Errorf("not signed in")
	}
	ctx, cancel := requestContext(cfg.API.Timeout)
	defer cancel()
	hubs, err := newClient(cfg, holder, log).Hubs(ctx, sess.Email)
	if err != nil {
		return fmt.Errorf("fetch hubs: %w", err)
	}
	out := buildJSONOutput(sess.Email, snapshot.Build(hubs))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// buildJSONOutput converts a snapshot into the JSON output structure.
// Disconnected probes carry a null current temperature.
func buildJSONOutput(email string, snap *snapshot.DataSnapshot) jsonOutput {
	hubs := make([]jsonHub, len(snap.Hubs))
	for i, h := range snap.Hubs {
		probes := make([]jsonProbe, len(h.Probes))
		for j, p := range h.Probes {
			jp := jsonProbe{
				ID:         p.ID,
				Name:       p.DisplayName(),
				Connected:  p.Connected,
				TargetTemp: p.TargetTemp,
				Progress:   model.Progress(p),
				Status:     model.StatusOf(p).String(),
			}
			if cur, ok := p.Current(); ok {
				jp.CurrentTemp = &cur
			}
			probes[j] = jp
		}
		hubs[i] = jsonHub{ID: h.ID, Name: h.DisplayName(), Connected: h.Connected, Probes: probes}
	}
	return jsonOutput{
		Email: email,
		Hubs:  hubs,
		Stats: jsonStats{
			TotalHubs:       snap.TotalHubs,
			ConnectedHubs:   snap.ConnectedHubs,
			TotalProbes:     snap.TotalProbes,
			ConnectedProbes: snap.ConnectedProbes,
		},
	}
}
