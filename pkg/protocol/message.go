// Package protocol defines the WebSocket message types exchanged between the
// monitor, remote landmark producers and dashboard clients. Recorded sessions
// use the same envelope, one message per line.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/detection"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Producer → Monitor messages
	TypeLandmarks MessageType = "landmarks" // Detected faces for one frame

	// Monitor → Producer / dashboard messages
	TypeStatus MessageType = "status" // Per-frame monitor snapshot
	TypeAlert  MessageType = "alert"  // Alert transition

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Time returns the message timestamp, or the zero time when unset.
func (m *Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Producer → Monitor Message Types
// =============================================================================

// LandmarksData contains every face found in one frame
type LandmarksData struct {
	FrameID uint64     `json:"frame_id"`
	Width   int        `json:"width,omitempty"`  // Frame size in pixels
	Height  int        `json:"height,omitempty"` // after resizing
	Faces   []FaceData `json:"faces"`
}

// FaceData is one detected face. Box is normalized, Points are in pixels.
type FaceData struct {
	Box        [4]float64   `json:"box"` // x, y, w, h
	Confidence float64      `json:"confidence"`
	Points     [][2]float64 `json:"points,omitempty"`
}

// Face converts to a detection.Face.
func (f FaceData) Face() detection.Face {
	face := detection.Face{
		Detection: detection.Detection{
			X:          f.Box[0],
			Y:          f.Box[1],
			W:          f.Box[2],
			H:          f.Box[3],
			Confidence: f.Confidence,
		},
	}
	if len(f.Points) > 0 {
		face.Landmarks = make(landmarks.Set, len(f.Points))
		for i, p := range f.Points {
			face.Landmarks[i] = landmarks.Point{X: p[0], Y: p[1]}
		}
	}
	return face
}

// NewFaceData converts a detection.Face for the wire.
func NewFaceData(f detection.Face) FaceData {
	fd := FaceData{
		Box:        [4]float64{f.X, f.Y, f.W, f.H},
		Confidence: f.Confidence,
	}
	if len(f.Landmarks) > 0 {
		fd.Points = make([][2]float64, len(f.Landmarks))
		for i, p := range f.Landmarks {
			fd.Points[i] = [2]float64{p.X, p.Y}
		}
	}
	return fd
}

// Frame selects the driver's face and builds the monitor input. A best face
// without landmarks counts as no face.
func (d *LandmarksData) Frame(t time.Time) drowsiness.Frame {
	faces := make([]detection.Face, len(d.Faces))
	for i, fd := range d.Faces {
		faces[i] = fd.Face()
	}

	frame := drowsiness.Frame{Seq: d.FrameID, Time: t, Faces: len(faces)}
	if best := detection.SelectBestFace(faces); best != nil {
		frame.Face = best.Landmarks
	}
	return frame
}

// =============================================================================
// Monitor → Producer / dashboard Message Types
// =============================================================================

// AlertData announces an alert transition
type AlertData struct {
	Kind    drowsiness.Kind `json:"kind"`
	FrameID uint64          `json:"frame_id"`
	Value   float64         `json:"value"`
	Count   int             `json:"count"`
	Message string          `json:"message"`
}

// StatusData is the per-frame monitor snapshot
type StatusData = drowsiness.Result

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
