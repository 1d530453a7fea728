// ggv-demo serves a simulated GrillGauge hub over the same HTTP API the
// dashboard polls, so ggv can be run without a real account or hardware.
//
// Usage:
//
//	ggv-demo                     # Listen on demo.host:demo.port from config
//	ggv-demo --config <path>     # Use a specific ggv.yaml
//	ggv-demo --port 9090         # Override the listen port
package main

import (
	"flag"
	"fmt"
	"os"

	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"

	"github.com/daviddao/grillgauge_viewer/internal/config"
	"github.com/daviddao/grillgauge_viewer/internal/demoapi"
)

func main() {
	configPath := flag.String("config", "", "path to ggv.yaml (default: ./config or ~/.grillgauge)")
	port := flag.Int("port", 0, "listen port (default: demo.port from config)")
	quiet := flag.Bool("quiet", false, "skip the banner")
	flag.Parse()

	if !*quiet {
		clearConsole()
		drawLogo()
	}
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting GrillGauge demo server v%s", nuts.GetVersion())

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ggv-demo: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Demo.Port = *port
	}

	srv, err := demoapi.New(&cfg.Demo)
	if err != nil {
		nuts.L.Errorf("[Main] Failed to create server: %v", err)
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

func clearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func drawLogo() {
	fmt.Println()
	lines := []string{
		"   ____      _ _ _  ____                        ",
		"  / ___|_ __(_) | |/ ___| __ _ _   _  __ _  ___ ",
		" | |  _| '__| | | | |  _ / _` | | | |/ _` |/ _ \\",
		" | |_| | |  | | | | |_| | (_| | |_| | (_| |  __/",
		"  \\____|_|  |_|_|_|\\____|\\__,_|\\__,_|\\__, |\\___|",
		"  ...................................|___/ demo " + nuts.GetVersion(),
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}
