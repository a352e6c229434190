package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Calibration message types sent by the client app.
const (
	msgStart = "start"
	msgData  = "data"
	msgAck   = "ack"
)

var errBadMessage = errors.New("bad calibration message")

// Point that represents LED location
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CalibrationMessage is a message from the client app, one of
//
//	{"type": "start"}
//	{"type": "data", "locations": [{"x": 0.5, "y": 0.1}, ...]}
//	{"type": "ack", "ackID": 3}
//
// Locations are indexed by pixel.
type CalibrationMessage struct {
	Type      string  `json:"type"`
	Locations []Point `json:"locations,omitempty"`
	AckID     uint8   `json:"ackID,omitempty"`
}

func parseCalibrationMessage(payload []byte, pixels int) (CalibrationMessage, error) {
	var m CalibrationMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return m, fmt.Errorf("%w: %w", errBadMessage, err)
	}
	switch m.Type {
	case msgStart, msgAck:
	case msgData:
		if len(m.Locations) == 0 || len(m.Locations) > pixels {
			return m, fmt.Errorf("%w: %d locations for %d pixels", errBadMessage, len(m.Locations), pixels)
		}
	default:
		return m, fmt.Errorf("%w: unknown type %q", errBadMessage, m.Type)
	}
	return m, nil
}
