package gateway

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI is the faster drop-in json.Marshal/Unmarshal replacement the
// teacher's main.go configures as a package-level var (jsoniter.
// ConfigCompatibleWithStandardLibrary); gateway traffic is the hottest
// encode/decode path in the server, the same reason the teacher reaches
// for it.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Frame is the envelope every inbound and outbound gateway message shares,
// matching the teacher's Event struct's op/s/t/d tags (events.go) and the
// specification's wire-format table exactly.
type Frame struct {
	Op       Opcode          `json:"op"`
	Sequence int64           `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
	Data     json.RawMessage `json:"d,omitempty"`
}

// IdentifyData is the payload of an inbound IDENTIFY frame (op 2).
type IdentifyData struct {
	Token string `json:"token"`
}

// ResumeData is the payload of an inbound RESUME frame (op 6).
type ResumeData struct {
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HeartbeatData is the payload of an inbound HEARTBEAT frame (op 1): the
// last sequence number the client observed, or null.
type HeartbeatData struct {
	Sequence *int64 `json:"-"`
}

// HelloData is the payload of an outbound HELLO frame (op 10).
type HelloData struct {
	HeartbeatIntervalMs int64 `json:"heartbeat_interval"`
}

// InvalidSessionData is the payload of an outbound INVALID_SESSION frame
// (op 9): always false, matching the specification's wire example.
type InvalidSessionData struct {
	Resumable bool `json:"resumable"`
}

// MarshalJSON encodes the payload as the bare boolean, so the frame reads
// {"op":9,"d":false} rather than carrying an object.
func (d InvalidSessionData) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(d.Resumable)
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := jsonAPI.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// helloFrame builds the HELLO frame sent immediately after upgrade.
func helloFrame(heartbeatInterval int64) Frame {
	return Frame{Op: OpHello, Data: mustMarshal(HelloData{HeartbeatIntervalMs: heartbeatInterval})}
}

// heartbeatAckFrame builds the HEARTBEAT_ACK frame sent in reply to a
// client heartbeat.
func heartbeatAckFrame() Frame {
	return Frame{Op: OpHeartbeatAck}
}

// invalidSessionFrame builds the INVALID_SESSION frame sent when a RESUME
// cannot be honored.
func invalidSessionFrame() Frame {
	return Frame{Op: OpInvalidSession, Data: mustMarshal(InvalidSessionData{Resumable: false})}
}

// dispatchFrame builds a DISPATCH frame carrying a server event.
func dispatchFrame(seq int64, eventType string, payload json.RawMessage) Frame {
	return Frame{Op: OpDispatch, Sequence: seq, Type: eventType, Data: payload}
}
