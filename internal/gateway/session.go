package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paracordchat/paracord/internal/models"
)

// State is the session's position in the handshake/dispatch/teardown state
// machine the specification describes: Connecting (post-upgrade, awaiting
// IDENTIFY) -> Ready/Heartbeating (subscribed, dispatching) -> Closed.
type State int

const (
	StateConnecting State = iota
	StateReady
	StateClosed
)

const resumeBufferSize = 100

type bufferedFrame struct {
	seq   int64
	typ   string
	data  []byte
}

// Session tracks one client's gateway connection: its identity, the guilds
// it should receive events for, its outgoing sequence counter, and a short
// replay buffer used to serve RESUME. The guild_ids/sequence/should-receive
// logic is carried over from original_source's Session (paracord-ws/src/
// session.rs: next_sequence, should_receive_event, add_guild), translated
// into a mutex-guarded Go struct the way the teacher guards its own mutable
// session fields in session.go.
type Session struct {
	ID     string
	UserID models.Snowflake

	mu       sync.RWMutex
	state    State
	guildIDs map[models.Snowflake]struct{}
	sequence int64

	lastHeartbeatAck time.Time

	ring     []bufferedFrame
	ringHead int
	ringLen  int
}

// NewSession creates a session for userID, already holding guildIDs (the
// guilds the user is currently a member of).
func NewSession(userID models.Snowflake, guildIDs []models.Snowflake) *Session {
	s := &Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		state:            StateConnecting,
		guildIDs:         make(map[models.Snowflake]struct{}, len(guildIDs)),
		lastHeartbeatAck: time.Now(),
		ring:             make([]bufferedFrame, resumeBufferSize),
	}
	for _, g := range guildIDs {
		s.guildIDs[g] = struct{}{}
	}
	return s
}

// SetState transitions the session's lifecycle state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// GetState returns the session's current lifecycle state.
func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AddGuild dynamically adds a guild to the session's subscription set, e.g.
// after the user accepts an invite mid-connection -- mirroring
// original_source's Session::add_guild.
func (s *Session) AddGuild(guildID models.Snowflake) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guildIDs[guildID] = struct{}{}
}

// RemoveGuild drops a guild from the session's subscription set, e.g. after
// the user leaves or is kicked/banned.
func (s *Session) RemoveGuild(guildID models.Snowflake) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guildIDs, guildID)
}

// ShouldReceive reports whether this session should be delivered an event
// scoped to guildID (nil for global) and/or targeted at specific user IDs,
// mirroring original_source's should_receive_event precedence: explicit
// target lists take priority over guild scoping.
func (s *Session) ShouldReceive(guildID *models.Snowflake, targetUserIDs []models.Snowflake) bool {
	if len(targetUserIDs) > 0 {
		for _, id := range targetUserIDs {
			if id == s.UserID {
				return true
			}
		}
		return false
	}

	if guildID == nil {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.guildIDs[*guildID]
	return ok
}

// NextSequence increments and returns the session's outgoing sequence
// counter, buffering the frame for potential RESUME replay.
func (s *Session) NextSequence(eventType string, data []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	seq := s.sequence

	slot := s.ringHead % len(s.ring)
	s.ring[slot] = bufferedFrame{seq: seq, typ: eventType, data: data}
	s.ringHead++
	if s.ringLen < len(s.ring) {
		s.ringLen++
	}

	return seq
}

// ReplaySince returns buffered frames with sequence greater than since, in
// ascending order, and a bool reporting whether the full gap could be
// covered by the buffer (false means frames were truncated and the caller
// must send INVALID_SESSION instead).
func (s *Session) ReplaySince(since int64) ([]Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if since > s.sequence {
		return nil, false
	}
	if s.sequence-since > int64(s.ringLen) {
		return nil, false
	}

	var frames []Frame
	start := s.ringHead - s.ringLen
	for i := 0; i < s.ringLen; i++ {
		slot := (start + i) % len(s.ring)
		bf := s.ring[slot]
		if bf.seq > since {
			frames = append(frames, dispatchFrame(bf.seq, bf.typ, bf.data))
		}
	}
	return frames, true
}

// Touch records that a heartbeat ACK was just sent, resetting the
// staleness clock HeartbeatStale checks.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeatAck = time.Now()
}

// HeartbeatStale reports whether longer than allowed has passed since the
// last heartbeat, the condition that triggers a forced close per the
// specification's failure-mode table.
func (s *Session) HeartbeatStale(allowed time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastHeartbeatAck) > allowed
}

// GuildIDs returns a snapshot of the guilds this session currently
// subscribes to.
func (s *Session) GuildIDs() []models.Snowflake {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Snowflake, 0, len(s.guildIDs))
	for g := range s.guildIDs {
		out = append(out, g)
	}
	return out
}
