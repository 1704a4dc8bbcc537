// Driver drowsiness monitor.
//
// Watches the driver through a camera (or remote producers, or a recorded
// session), raises drowsiness and yawn alerts, pulses the alert indicator and
// serves a live dashboard.
//
// Usage:
//
//	drowsy                                  # local camera with preview window
//	drowsy -no-window -port 8090            # headless, dashboard only
//	drowsy -source ingest                   # landmarks from remote producers
//	drowsy -source replay -replay trip.jsonl -fps 30
//	drowsy -record trip.jsonl               # save monitor input for replay
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-drowsy/internal/config"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/app"
)

func main() {
	cfg := parseFlags()

	a, err := app.New(cfg)
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		a.Shutdown()
		stdlog.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
	}
}

// parseFlags parses command line flags and returns configuration. Flags
// override the environment and .env.
func parseFlags() app.Config {
	settings := config.Load()
	cfg := app.DefaultConfig(*settings)

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	frames := flag.Bool("debug-frames", false, "Log every frame's metrics")
	source := flag.String("source", cfg.Source, "Frame source: camera, ingest, replay")
	device := flag.String("camera", settings.Camera.Device, "Camera index or video file")
	replay := flag.String("replay", "", "JSONL session to replay (with -source replay)")
	fps := flag.Float64("fps", 0, "Replay pacing in frames per second (0 = as fast as possible)")
	record := flag.String("record", "", "Record monitor input frames to this JSONL file")
	push := flag.String("push", "", "Forward landmarks to a remote monitor (ws://host:port/ws/ingest/id)")
	noWindow := flag.Bool("no-window", !cfg.Window, "Disable the local preview window")
	port := flag.Int("port", settings.Port, "Dashboard port (0 disables)")
	db := flag.String("db", settings.DBPath, "SQLite alert history (empty disables)")
	actuator := flag.String("actuator", settings.Actuator.Driver, "Alert indicator: log, gpio, command, http")
	ear := flag.Float64("ear", settings.Drowsiness.EARThreshold, "Smoothed EAR threshold for closed eyes")
	yawn := flag.Float64("yawn", settings.Drowsiness.YawnThreshold, "Lip distance threshold for a yawn (pixels)")
	flag.Parse()

	level := settings.LogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)

	cfg.Debug, cfg.DebugFrames = *debug, *frames
	cfg.Source, cfg.ReplayPath, cfg.ReplayFPS = *source, *replay, *fps
	cfg.RecordPath, cfg.PushURL = *record, *push
	cfg.Window = !*noWindow

	cfg.Settings.Camera.Device = *device
	cfg.Settings.Port = *port
	cfg.Settings.DBPath = *db
	cfg.Settings.Actuator.Driver = *actuator
	cfg.Settings.Drowsiness.EARThreshold = *ear
	cfg.Settings.Drowsiness.YawnThreshold = *yawn

	if *replay != "" && *source == app.SourceCamera {
		cfg.Source = app.SourceReplay
	}
	return cfg
}
