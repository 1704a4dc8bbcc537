package protocol

import (
	"time"

	"github.com/teslashibe/go-drowsy/pkg/detection"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/landmarks"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message from detected faces
func NewLandmarksMessage(frameID uint64, width, height int, faces []detection.Face) (*Message, error) {
	data := LandmarksData{
		FrameID: frameID,
		Width:   width,
		Height:  height,
		Faces:   make([]FaceData, len(faces)),
	}
	for i, f := range faces {
		data.Faces[i] = NewFaceData(f)
	}
	return NewMessage(TypeLandmarks, data)
}

// NewFrameMessage records a monitor input frame. The face box is derived from
// the landmark bounds since only the selected face is kept.
func NewFrameMessage(f drowsiness.Frame) (*Message, error) {
	var faces []detection.Face
	if f.HasFace() {
		faces = append(faces, detection.Face{
			Detection: detectionFromBounds(f.Face),
			Landmarks: f.Face,
		})
	}

	msg, err := NewLandmarksMessage(f.Seq, 0, 0, faces)
	if err != nil {
		return nil, err
	}
	if !f.Time.IsZero() {
		msg.Timestamp = f.Time.UnixMilli()
	}
	return msg, nil
}

func detectionFromBounds(s landmarks.Set) detection.Detection {
	lo, hi := s.Bounds()
	return detection.Detection{X: lo.X, Y: lo.Y, W: hi.X - lo.X, H: hi.Y - lo.Y, Confidence: 1}
}

// NewAlertMessage creates an alert message from a monitor event
func NewAlertMessage(e drowsiness.Event) (*Message, error) {
	msg, err := NewMessage(TypeAlert, AlertData{
		Kind:    e.Kind,
		FrameID: e.Seq,
		Value:   e.Value,
		Count:   e.Count,
		Message: AlertText(e.Kind),
	})
	if err != nil {
		return nil, err
	}
	if !e.Time.IsZero() {
		msg.Timestamp = e.Time.UnixMilli()
	}
	return msg, nil
}

// AlertText is the banner text shown for an alert kind.
func AlertText(k drowsiness.Kind) string {
	switch k {
	case drowsiness.KindDrowsiness:
		return "DROWSINESS ALERT!"
	case drowsiness.KindYawn:
		return "YAWN DETECTED!"
	default:
		return ""
	}
}

// NewStatusMessage creates a status message from a monitor result
func NewStatusMessage(r drowsiness.Result) (*Message, error) {
	return NewMessage(TypeStatus, r)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts landmarks data from a message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAlertData extracts alert data from a message
func (m *Message) GetAlertData() (*AlertData, error) {
	var data AlertData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
