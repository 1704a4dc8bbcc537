// Package ingest accepts landmark streams from remote camera producers over
// WebSocket and sends alert transitions back to them.
package ingest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/protocol"
)

// Producer is a connected landmark source.
type Producer struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time
	Frames    uint64

	mu sync.Mutex
}

// Send writes a message to the producer.
func (p *Producer) Send(msg *protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages producer connections.
type Hub struct {
	mu        sync.RWMutex
	producers map[string]*Producer
	debug     bool

	onLandmarks func(producerID string, data *protocol.LandmarksData, t time.Time)

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
	parseErrors      atomic.Uint64
}

// NewHub creates a producer hub. debug logs every connection event at info.
func NewHub(debug bool) *Hub {
	return &Hub{
		producers: make(map[string]*Producer),
		debug:     debug,
	}
}

// OnLandmarks sets the callback for incoming landmark frames. It runs on the
// producer's read goroutine; t is the producer's timestamp or the receive
// time when the producer sent none.
func (h *Hub) OnLandmarks(callback func(producerID string, data *protocol.LandmarksData, t time.Time)) {
	h.mu.Lock()
	h.onLandmarks = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the ingest WebSocket endpoint.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/ingest", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/ingest", websocket.New(h.handleProducer))
	app.Get("/ws/ingest/:id", websocket.New(h.handleProducer))
}

func (h *Hub) handleProducer(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	p := &Producer{
		ID:        id,
		Conn:      c,
		Connected: now,
		LastSeen:  now,
	}

	h.mu.Lock()
	if old, ok := h.producers[id]; ok {
		old.Conn.Close()
	}
	h.producers[id] = p
	count := len(h.producers)
	h.mu.Unlock()

	h.logf("📡 producer connected", "id", id, "producers", count)

	defer func() {
		h.mu.Lock()
		if h.producers[id] == p {
			delete(h.producers, id)
		}
		count := len(h.producers)
		h.mu.Unlock()

		h.logf("📡 producer disconnected", "id", id, "producers", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("producer read error", "id", id, "error", err)
			return
		}

		p.mu.Lock()
		p.LastSeen = time.Now()
		p.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(p, data)
	}
}

func (h *Hub) handleMessage(p *Producer, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.parseErrors.Add(1)
		log.Debug("producer parse error", "id", p.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		lm, err := msg.GetLandmarksData()
		if err != nil {
			h.parseErrors.Add(1)
			log.Debug("bad landmarks message", "id", p.ID, "error", err)
			return
		}
		h.framesReceived.Add(1)

		p.mu.Lock()
		p.Frames++
		p.mu.Unlock()

		h.mu.RLock()
		cb := h.onLandmarks
		h.mu.RUnlock()

		t := msg.Time()
		if t.IsZero() {
			t = time.Now()
		}
		if cb != nil {
			cb(p.ID, lm, t)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil || ping == nil {
			ping = &protocol.PingData{Timestamp: msg.Timestamp}
		}
		if err := h.sendPong(p.ID, ping); err != nil {
			log.Debug("pong failed", "id", p.ID, "error", err)
		}
	}
}

func (h *Hub) sendPong(id string, ping *protocol.PingData) error {
	msg, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.Send(id, msg)
}

// Send writes msg to one producer.
func (h *Hub) Send(id string, msg *protocol.Message) error {
	h.mu.RLock()
	p, ok := h.producers[id]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "producer not connected")
	}

	h.messagesSent.Add(1)
	return p.Send(msg)
}

// Broadcast sends msg to every producer.
func (h *Hub) Broadcast(msg *protocol.Message) {
	for _, p := range h.GetProducers() {
		h.messagesSent.Add(1)
		if err := p.Send(msg); err != nil {
			log.Debug("broadcast failed", "id", p.ID, "error", err)
		}
	}
}

// OnAlertTriggered forwards alert transitions to producers without blocking
// the frame loop.
func (h *Hub) OnAlertTriggered(e drowsiness.Event) {
	if h.ProducerCount() == 0 {
		return
	}
	msg, err := protocol.NewAlertMessage(e)
	if err != nil {
		log.Warn("encode alert", "error", err)
		return
	}
	go h.Broadcast(msg)
}

// GetProducer returns a producer by ID, or nil.
func (h *Hub) GetProducer(id string) *Producer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.producers[id]
}

// GetProducers returns all connected producers.
func (h *Hub) GetProducers() []*Producer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Producer, 0, len(h.producers))
	for _, p := range h.producers {
		out = append(out, p)
	}
	return out
}

// ProducerCount returns the number of connected producers.
func (h *Hub) ProducerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.producers)
}

// Stats contains hub statistics
type Stats struct {
	Producers        int    `json:"producers"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
	ParseErrors      uint64 `json:"parse_errors"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		Producers:        h.ProducerCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
		ParseErrors:      h.parseErrors.Load(),
	}
}

// ProducerInfo describes a connected producer.
type ProducerInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"`
}

// GetProducerInfos returns info about all connected producers.
func (h *Hub) GetProducerInfos() []ProducerInfo {
	producers := h.GetProducers()
	infos := make([]ProducerInfo, 0, len(producers))
	for _, p := range producers {
		p.mu.Lock()
		infos = append(infos, ProducerInfo{
			ID:        p.ID,
			Connected: p.Connected,
			LastSeen:  p.LastSeen,
			Frames:    p.Frames,
		})
		p.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers producer management routes.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	producers := api.Group("/producers")

	producers.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"producers": h.GetProducerInfos(),
			"count":     h.ProducerCount(),
		})
	})

	producers.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	producers.Post("/:id/ping", func(c *fiber.Ctx) error {
		msg, err := protocol.NewPingMessage(uuid.NewString())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if err := h.Send(c.Params("id"), msg); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})
}

func (h *Hub) logf(msg string, args ...any) {
	if h.debug {
		log.Info(msg, args...)
		return
	}
	log.Debug(msg, args...)
}
