// Package web serves the live dashboard: monitor status, alert log, the
// annotated camera stream and a small control API.
package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/actuator"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/hub"
	"github.com/teslashibe/go-drowsy/pkg/ingest"
	"github.com/teslashibe/go-drowsy/pkg/pipeline"
	"github.com/teslashibe/go-drowsy/pkg/protocol"
	"github.com/teslashibe/go-drowsy/pkg/store"
)

const maxLogs = 500

// DashboardState is what the status page renders.
type DashboardState struct {
	Source    string              `json:"source"`
	Session   string              `json:"session,omitempty"`
	Result    drowsiness.Result   `json:"result"`
	Message   string              `json:"message"`
	FPS       float64             `json:"fps"`
	LastAlert *protocol.AlertData `json:"last_alert,omitempty"`
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, alert, actuator, error
	Message string `json:"message"`
}

// Backend is what the API controls. Nil fields disable their routes.
type Backend struct {
	Thresholds drowsiness.Config
	Camera     *camera.Manager
	Dispatcher *actuator.Dispatcher
	Runner     *pipeline.Runner
	Store      *store.Store
	Recorder   *store.Recorder
	Ingest     *ingest.Hub
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	port    int
	backend Backend

	state   DashboardState
	stateMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the dashboard server.
func NewServer(port int, backend Backend) *Server {
	s := &Server{
		port:      port,
		backend:   backend,
		logs:      make([]LogEntry, 0, maxLogs),
		statusHub: hub.New("status").WithReplay(),
		logHub:    hub.New("logs"),
		cameraHub: hub.New("camera").WithReplay(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Drowsiness Monitor",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleGetConfig)
	api.Get("/metrics", s.handleMetrics)
	api.Get("/logs", s.handleGetLogs)
	api.Post("/alerts/:kind/test", s.handleTestAlert)
	api.Post("/reset", s.handleReset)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)
	api.Get("/events", s.handleListEvents)
	api.Get("/sessions", s.handleListSessions)

	if backend.Ingest != nil {
		backend.Ingest.RegisterRoutes(app)
		backend.Ingest.RegisterAPIRoutes(api)
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(hub.Serve(s.statusHub)))
	app.Get("/ws/camera", websocket.New(hub.Serve(s.cameraHub)))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App exposes the fiber app for tests and extra routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	go func() {
		<-ctx.Done()
		s.app.ShutdownWithTimeout(5 * time.Second)
	}()

	log.Info("🌐 web dashboard", "url", fmt.Sprintf("http://localhost:%d", s.port))
	return s.app.Listen(fmt.Sprintf(":%d", s.port))
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Warn("web server stopped", "error", err)
		}
	}()
}

// SetSource records where frames come from and the store session.
func (s *Server) SetSource(source, session string) {
	s.UpdateState(func(st *DashboardState) {
		st.Source = source
		st.Session = session
	})
}

// UpdateState applies update and broadcasts the new state.
func (s *Server) UpdateState(update func(*DashboardState)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(state)
}

// State returns a copy of the dashboard state.
func (s *Server) State() DashboardState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Publish implements pipeline.Publisher. The JPEG is only encoded when
// someone is watching the camera stream.
func (s *Server) Publish(r drowsiness.Result, v pipeline.View) {
	var fps float64
	if s.backend.Runner != nil {
		fps = s.backend.Runner.Stats().FPS()
	}

	s.UpdateState(func(st *DashboardState) {
		st.Result = r
		st.Message = r.Message()
		st.FPS = fps
	})

	if v == nil || s.cameraHub.ClientCount() == 0 {
		return
	}
	jpeg, err := v.JPEG()
	if err != nil {
		log.Debug("encode preview", "error", err)
		return
	}
	if jpeg != nil {
		s.cameraHub.BroadcastBinary(jpeg)
	}
}

// OnAlertTriggered implements drowsiness.Handler.
func (s *Server) OnAlertTriggered(e drowsiness.Event) {
	alert := protocol.AlertData{
		Kind:    e.Kind,
		FrameID: e.Seq,
		Value:   e.Value,
		Count:   e.Count,
		Message: protocol.AlertText(e.Kind),
	}
	s.UpdateState(func(st *DashboardState) {
		st.LastAlert = &alert
	})
	s.AddLog("alert", fmt.Sprintf("%s frame %d (%.2f)", alert.Message, e.Seq, e.Value))
}

// OnPulse matches actuator.Dispatcher.OnPulse.
func (s *Server) OnPulse(e drowsiness.Event, err error) {
	if err != nil {
		s.AddLog("error", fmt.Sprintf("indicator %s failed: %v", e.Kind, err))
		return
	}
	s.AddLog("actuator", fmt.Sprintf("indicator pulsed for %s", e.Kind))
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// Logs returns a copy of the log buffer.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
