package gateway

import (
	"encoding/json"
)

const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpHello          = 3
	OpInvalidSession = 4
	OpHeartbeatAck   = 5
	OpStatusUpdate   = 6
	OpResume         = 7
)

const (
	EventReady   = "READY"
	EventResumed = "RESUMED"
)

// Frame is the envelope of everything that travels over the gateway.
type Frame struct {
	Op       int             `json:"op"`
	Sequence *int64          `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
	Data     json.RawMessage `json:"d"`
}

// Event is a decoded DISPATCH frame.
type Event struct {
	Sequence int64
	Type     string
	Data     json.RawMessage
}

type outgoingFrame struct {
	Op   int `json:"op"`
	Data any `json:"d"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type identifyData struct {
	Token string `json:"token"`
	IdentifyProperties
}

type resumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  *int64 `json:"sequence"`
}

type readySession struct {
	SessionID string `json:"session_id"`
}

func encodeFrame(op int, data any) ([]byte, error) {
	return json.Marshal(outgoingFrame{Op: op, Data: data})
}
