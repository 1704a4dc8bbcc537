// Package app wires the monitor together: a frame source, the drowsiness
// monitor, the alert indicator, the event store and the web dashboard.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/actuator"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/debug"
	"github.com/teslashibe/go-drowsy/pkg/detection"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/ingest"
	"github.com/teslashibe/go-drowsy/pkg/pipeline"
	"github.com/teslashibe/go-drowsy/pkg/protocol"
	"github.com/teslashibe/go-drowsy/pkg/store"
	"github.com/teslashibe/go-drowsy/pkg/vision"
	"github.com/teslashibe/go-drowsy/pkg/web"
)

const ingestBuffer = 8

// App is the monitor orchestrator. It manages all components and their
// lifecycle.
type App struct {
	config Config

	monitor    *drowsiness.Monitor
	runner     *pipeline.Runner
	source     pipeline.Source
	display    pipeline.Display
	dispatcher *actuator.Dispatcher

	// Camera source
	cameraManager *camera.Manager
	analyzer      *vision.Analyzer
	push          *ingest.Client

	// Ingest source
	ingestHub *ingest.Hub

	// Recording outputs
	files []*os.File

	store    *store.Store
	session  store.Session
	recorder *store.Recorder

	webServer *web.Server
}

// New creates an application with the given configuration.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	debug.Frames = cfg.DebugFrames

	return &App{config: cfg}, nil
}

// Init creates every component. Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	fmt.Println("😴 Driver Drowsiness Monitor")
	fmt.Println("============================")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	s := a.config.Settings

	monitor, err := drowsiness.NewMonitor(s.Drowsiness)
	if err != nil {
		return err
	}
	a.monitor = monitor

	fmt.Printf("💡 Alert indicator (%s)... ", s.Actuator.Driver)
	act, err := actuator.New(s.Actuator)
	if err != nil {
		return fmt.Errorf("actuator: %w", err)
	}
	a.dispatcher = actuator.NewDispatcher(act, s.Actuator.QueueSize, s.Actuator.Timeout())
	fmt.Println("✅")

	if err := a.initSource(ctx); err != nil {
		return err
	}

	if s.DBPath != "" {
		if err := a.initStore(ctx); err != nil {
			log.Warn("event history disabled", "error", err)
		}
	}

	a.runner = pipeline.NewRunner(a.monitor, a.source, a.display)

	if s.Port > 0 {
		a.webServer = web.NewServer(s.Port, web.Backend{
			Thresholds: s.Drowsiness,
			Camera:     a.cameraManager,
			Dispatcher: a.dispatcher,
			Runner:     a.runner,
			Store:      a.store,
			Recorder:   a.recorder,
			Ingest:     a.ingestHub,
		})
		a.webServer.SetSource(a.sourceName(), a.session.ID)
		a.runner.AddPublisher(a.webServer)
		a.dispatcher.OnPulse = a.webServer.OnPulse
	}

	// The dispatcher goes first so the indicator is queued before anything
	// slower runs.
	a.monitor.Subscribe(a.dispatcher)
	if a.recorder != nil {
		a.monitor.Subscribe(a.recorder)
	}
	if a.ingestHub != nil {
		a.monitor.Subscribe(a.ingestHub)
	}
	if a.webServer != nil {
		a.monitor.Subscribe(a.webServer)
	}

	return nil
}

func (a *App) initSource(ctx context.Context) error {
	s := a.config.Settings

	switch a.config.Source {
	case SourceCamera:
		fmt.Print("🧠 Loading face models... ")
		dcfg := detection.DefaultConfig()
		dcfg.FaceModel = s.FaceModel
		dcfg.LandmarkModel = s.LandmarkModel
		analyzer, err := vision.NewAnalyzer(dcfg)
		if err != nil {
			return fmt.Errorf("models: %w", err)
		}
		a.analyzer = analyzer
		fmt.Println("✅")

		fmt.Print("📷 Opening camera... ")
		a.cameraManager = camera.NewManager(s.Camera)
		cam, err := vision.OpenCamera(a.cameraManager, analyzer)
		if err != nil {
			return fmt.Errorf("camera: %w", err)
		}
		a.cameraManager.OnConfigChange = cam.Reopen
		a.source = cam
		fmt.Println("✅")

		if a.config.PushURL != "" {
			client, err := ingest.Dial(ctx, a.config.PushURL)
			if err != nil {
				return fmt.Errorf("push: %w", err)
			}
			a.push = client
			cam.OnFaces = func(seq uint64, w, h int, faces []detection.Face) {
				if err := client.SendLandmarks(seq, w, h, faces); err != nil {
					log.Debug("push landmarks", "seq", seq, "error", err)
				}
			}
		}

		if a.config.Window {
			a.display = vision.NewWindow("Drowsiness Detector")
		}

	case SourceIngest:
		src := pipeline.NewChanSource(ingestBuffer)
		a.ingestHub = ingest.NewHub(debug.Enabled)
		a.ingestHub.OnLandmarks(func(id string, data *protocol.LandmarksData, t time.Time) {
			if err := src.PushFrame(data.Frame(t)); err != nil && !errors.Is(err, pipeline.ErrSourceFull) {
				log.Debug("ingest frame dropped", "producer", id, "error", err)
			}
		})
		a.source = src
		fmt.Println("📡 Waiting for producers on /ws/ingest")

	case SourceReplay:
		f, err := os.Open(a.config.ReplayPath)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		src := pipeline.NewJSONLSource(f)
		src.Interval = a.config.ReplayInterval()
		a.source = src
		fmt.Printf("⏯️  Replaying %s\n", a.config.ReplayPath)
	}

	if a.config.RecordPath != "" {
		f, err := os.Create(a.config.RecordPath)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		a.files = append(a.files, f)
		a.source = pipeline.NewRecordingSource(a.source, f)
		fmt.Printf("⏺️  Recording frames to %s\n", a.config.RecordPath)
	}
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	s := a.config.Settings

	st, err := store.Open(ctx, s.DBPath)
	if err != nil {
		return err
	}
	sess, err := st.StartSession(ctx, a.sourceName(), s.Drowsiness)
	if err != nil {
		st.Close()
		return err
	}

	a.store = st
	a.session = sess
	a.recorder = store.NewRecorder(st, sess.ID, s.Actuator.QueueSize)
	fmt.Printf("🗄️  Session %s\n", sess.ID)
	return nil
}

func (a *App) sourceName() string {
	switch a.config.Source {
	case SourceCamera:
		return "camera:" + a.config.Settings.Camera.Device
	case SourceReplay:
		return "replay:" + a.config.ReplayPath
	default:
		return a.config.Source
	}
}

// Runner exposes the frame loop, e.g. for stats.
func (a *App) Runner() *pipeline.Runner {
	return a.runner
}

// Run starts the background workers and runs the frame loop. It returns when
// the source ends, the user quits, or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.dispatcher.Run(ctx)

	recorded := make(chan struct{})
	if a.recorder != nil {
		go func() {
			a.recorder.Run(ctx)
			close(recorded)
		}()
	} else {
		close(recorded)
	}
	if a.webServer != nil {
		a.webServer.StartAsync(ctx)
		a.webServer.AddLog("info", "Monitor started ("+a.sourceName()+")")
	}

	fmt.Println("\n👀 Monitoring (Ctrl+C to exit)")
	err := a.runner.Run(ctx)

	// Let the recorder flush before Shutdown closes the store
	cancel()
	<-recorded

	snap := a.runner.Stats().Snapshot()
	log.Info("session finished",
		"frames", snap.Frames,
		"drowsy_alerts", snap.DrowsyAlerts,
		"yawn_alerts", snap.YawnAlerts,
		"errors", snap.Errors)
	return err
}

// Shutdown releases every component. The indicator is switched off last so a
// pulse in flight is not left on.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.source != nil {
		a.source.Close()
	}
	if a.display != nil {
		a.display.Close()
	}
	if a.push != nil {
		a.push.Close()
	}
	if a.analyzer != nil {
		a.analyzer.Close()
	}
	for _, f := range a.files {
		f.Close()
	}

	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var frames int64
		if a.runner != nil {
			frames = a.runner.Stats().Frames()
		}
		if err := a.store.EndSession(ctx, a.session.ID, frames); err != nil {
			log.Warn("end session", "error", err)
		}
		cancel()
		a.store.Close()
	}

	if a.webServer != nil {
		a.webServer.Shutdown()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
}
