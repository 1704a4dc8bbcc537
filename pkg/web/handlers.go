package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-drowsy/pkg/actuator"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/hub"
	"github.com/teslashibe/go-drowsy/pkg/store"
)

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.Send(indexHTML)
}

// handleStatus returns the current dashboard state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

// ConfigView is the effective configuration shown by GET /api/config.
type ConfigView struct {
	Thresholds drowsiness.Config `json:"thresholds"`
	Camera     *camera.Config    `json:"camera,omitempty"`
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	view := ConfigView{Thresholds: s.backend.Thresholds}
	if s.backend.Camera != nil {
		cfg := s.backend.Camera.GetConfig()
		view.Camera = &cfg
	}
	return c.JSON(view)
}

// Metrics aggregates counters from every running component.
type Metrics struct {
	Pipeline any                  `json:"pipeline,omitempty"`
	Actuator *actuator.Stats      `json:"actuator,omitempty"`
	Recorder *store.RecorderStats `json:"recorder,omitempty"`
	Ingest   any                  `json:"ingest,omitempty"`
	Hubs     map[string]hub.Stats `json:"hubs"`
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	m := Metrics{
		Hubs: map[string]hub.Stats{
			"status": s.statusHub.Stats(),
			"logs":   s.logHub.Stats(),
			"camera": s.cameraHub.Stats(),
		},
	}
	if s.backend.Runner != nil {
		m.Pipeline = s.backend.Runner.Stats().Snapshot()
	}
	if s.backend.Dispatcher != nil {
		st := s.backend.Dispatcher.Stats()
		m.Actuator = &st
	}
	if s.backend.Recorder != nil {
		st := s.backend.Recorder.Stats()
		m.Recorder = &st
	}
	if s.backend.Ingest != nil {
		m.Ingest = s.backend.Ingest.GetStats()
	}
	return c.JSON(m)
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

// handleTestAlert pulses the indicator without touching monitor state.
func (s *Server) handleTestAlert(c *fiber.Ctx) error {
	if s.backend.Dispatcher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "actuator not configured"})
	}

	kind, err := drowsiness.ParseKind(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.backend.Dispatcher.Trigger(kind); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, actuator.ErrQueueFull) {
			status = fiber.StatusTooManyRequests
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("actuator", "Manual test: "+kind.String())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"kind": kind, "status": "queued"})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	if s.backend.Runner == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "monitor not running"})
	}
	s.backend.Runner.RequestReset()
	s.AddLog("info", "Monitor reset requested")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "reset requested"})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.backend.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no local camera"})
	}
	return c.JSON(s.backend.Camera.GetConfigJSON())
}

// handleUpdateCamera applies a partial camera update, e.g.
// {"preset": "hd"} or {"width": 640, "mirror": true}.
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.backend.Camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no local camera"})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.backend.Camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("info", "Camera settings updated")
	return c.JSON(s.backend.Camera.GetConfigJSON())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": camera.PresetNames()})
}

// handleListEvents supports ?kind=, ?session=, ?since= (RFC 3339) and ?limit=.
func (s *Server) handleListEvents(c *fiber.Ctx) error {
	if s.backend.Store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "event store disabled"})
	}

	q := store.Query{
		SessionID: c.Query("session"),
		Limit:     c.QueryInt("limit", 100),
	}
	if k := c.Query("kind"); k != "" {
		kind, err := drowsiness.ParseKind(k)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		q.Kind = &kind
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "since: " + err.Error()})
		}
		q.Since = t
	}

	events, err := s.backend.Store.ListEvents(c.UserContext(), q)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if events == nil {
		events = []store.Event{}
	}
	return c.JSON(fiber.Map{"events": events, "count": len(events)})
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	if s.backend.Store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "event store disabled"})
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a number"})
	}

	sessions, err := s.backend.Store.ListSessions(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return c.JSON(fiber.Map{"sessions": sessions, "count": len(sessions)})
}

// handleLogsWS sends the backlog, then streams new entries.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	for _, entry := range s.Logs() {
		if err := c.WriteJSON(entry); err != nil {
			return
		}
	}
	hub.NewClient(s.logHub, c).Run()
}
