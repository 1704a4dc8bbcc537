package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/detection"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/protocol"
)

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("ingest client closed")

const (
	clientWriteWait = 5 * time.Second
	clientQueue     = 32
)

// Client is the producer side of the ingest endpoint. Sends are queued and
// written by a single goroutine; when the queue is full the message is
// dropped so the caller's frame loop never waits on the network.
type Client struct {
	conn *websocket.Conn
	send chan *protocol.Message
	done chan struct{}
	once sync.Once

	// OnAlert, if set, receives alerts sent back by the monitor.
	OnAlert func(protocol.AlertData)

	mu      sync.Mutex
	lastRTT time.Duration

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Dial connects to a monitor's ingest URL, e.g. ws://host:8090/ws/ingest/cab-1.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn: conn,
		send: make(chan *protocol.Message, clientQueue),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	go c.readLoop()

	log.Info("📡 connected to monitor", "url", url)
	return c, nil
}

// Send queues a message.
func (c *Client) Send(msg *protocol.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.dropped.Add(1)
		return fmt.Errorf("send queue full")
	}
}

// SendLandmarks queues one frame's faces.
func (c *Client) SendLandmarks(frameID uint64, width, height int, faces []detection.Face) error {
	msg, err := protocol.NewLandmarksMessage(frameID, width, height, faces)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendFrame queues a monitor frame, keeping its timestamp.
func (c *Client) SendFrame(f drowsiness.Frame) error {
	msg, err := protocol.NewFrameMessage(f)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Ping queues a ping. The round trip is available from RTT once the pong
// arrives.
func (c *Client) Ping(id string) error {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// RTT returns the last measured ping round trip.
func (c *Client) RTT() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRTT
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Sent returns the number of messages written.
func (c *Client) Sent() uint64 {
	return c.sent.Load()
}

// Dropped returns the number of messages dropped on a full queue.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Close sends a close frame and shuts the connection.
func (c *Client) Close() error {
	c.shutdown()
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			data, err := msg.Bytes()
			if err != nil {
				log.Warn("encode message", "type", msg.Type, "error", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("monitor write failed", "error", err)
				c.shutdown()
				return
			}
			c.sent.Add(1)
		}
	}
}

func (c *Client) readLoop() {
	defer c.shutdown()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Debug("monitor read ended", "error", err)
			}
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("bad message from monitor", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeAlert:
			alert, err := msg.GetAlertData()
			if err != nil {
				continue
			}
			log.Info("🚨 monitor alert", "kind", alert.Kind, "frame", alert.FrameID)
			if c.OnAlert != nil {
				c.OnAlert(*alert)
			}

		case protocol.TypePong:
			pong, err := msg.GetPongData()
			if err != nil {
				continue
			}
			rtt := time.Duration(time.Now().UnixMilli()-pong.PingTS) * time.Millisecond
			c.mu.Lock()
			c.lastRTT = rtt
			c.mu.Unlock()
			log.Debug("pong", "id", pong.ID, "rtt", rtt)
		}
	}
}
