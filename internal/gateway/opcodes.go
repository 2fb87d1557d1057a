// Package gateway implements the persistent WebSocket session clients hold
// open to receive live events: the handshake/heartbeat/resume state machine,
// the per-connection reader/writer loop, and the process-wide session
// registry.
//
// The opcode values and wire shapes below are carried over unchanged from
// the teacher's events.go (Hello.HeartbeatInterval, Heartbeat{Op,Data},
// Identify{Op,Data}), reinterpreted for a server that dispatches to many
// clients instead of a client that dispatches to one gateway.
package gateway

// Opcode identifies the kind of frame exchanged over the gateway socket,
// matching the op values the specification's wire-format section assigns.
type Opcode int

const (
	OpDispatch         Opcode = 0
	OpHeartbeat        Opcode = 1
	OpIdentify         Opcode = 2
	OpVoiceStateUpdate Opcode = 4
	OpResume           Opcode = 6
	OpInvalidSession   Opcode = 9
	OpHello            Opcode = 10
	OpHeartbeatAck     Opcode = 11

	// Voice-signaling opcodes, carried over from original_source's
	// paracord-relay/src/signaling.rs (OP_MEDIA_CONNECT and friends). The
	// media bytes themselves stay out of scope (spec non-goal), but these
	// ride the same gateway socket and are passed through to internal/media.
	OpMediaConnect       Opcode = 20
	OpMediaKeyAnnounce   Opcode = 21
	OpMediaKeyDeliver    Opcode = 22
	OpMediaSessionDesc   Opcode = 23
	OpMediaSpeakerUpdate Opcode = 24
	OpMediaSubscribe     Opcode = 25
)
