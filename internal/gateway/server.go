package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/paracordchat/paracord/internal/apierrors"
	"github.com/paracordchat/paracord/internal/appstate"
	"github.com/paracordchat/paracord/internal/auth"
	"github.com/paracordchat/paracord/internal/eventbus"
	"github.com/paracordchat/paracord/internal/models"
	"github.com/paracordchat/paracord/internal/permissions"
)

const (
	identifyTimeout    = 30 * time.Second
	heartbeatInterval  = 30 * time.Second
	heartbeatAllowance = heartbeatInterval * 3 / 2
)

// Server upgrades HTTP connections to gateway WebSocket sessions and runs
// each session's dispatch loop. It generalizes gateway/connection.go's
// Connection wrapper and session.go's Open/listen/heartbeat trio, inverted
// from "client dials out to Discord" to "server accepts a client."
type Server struct {
	state    *appstate.State
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer constructs a Server bound to the application's shared state.
func NewServer(state *appstate.State) *Server {
	return &Server{
		state: state,
		hub:   NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: state.Log.With().Str("component", "gateway").Logger(),
	}
}

// Hub exposes the session registry, e.g. for admin/metrics endpoints.
func (s *Server) Hub() *Hub { return s.hub }

// wsConn pairs a gorilla connection with the write mutex gorilla's own docs
// require: WriteMessage/WriteJSON permit only one concurrent caller, but
// readLoop (HEARTBEAT_ACK, media signal replies) and writeLoop (DISPATCH)
// run as separate goroutines against the same conn. This is the same
// guarantee the teacher's gateway/connection.go gives its Connection wrapper
// via wmux. WriteControl (used by closeWith) is documented safe to call
// concurrently with the others, so it doesn't take this lock.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// ServeHTTP upgrades the request to a WebSocket and runs the session until
// it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()
	wc := &wsConn{conn: conn}

	if err := s.writeFrame(wc, helloFrame(heartbeatInterval.Milliseconds())); err != nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(identifyTimeout))
	var identify Frame
	if err := s.readFrame(wc, &identify); err != nil {
		s.closeWith(wc, apierrors.CloseReasonIdentifyTimeout)
		return
	}

	session, ok := s.onIdentifyOrResume(wc, identify)
	if !ok {
		return
	}
	defer s.hub.Unregister(session.ID)

	conn.SetReadDeadline(time.Time{})
	session.SetState(StateReady)

	ctx, cancel := context.WithCancel(s.state.Context())
	defer cancel()

	receiver := s.state.Bus.Subscribe()
	defer receiver.Close()

	go s.readLoop(ctx, cancel, wc, session)
	s.writeLoop(ctx, wc, session, receiver)
}

// onIdentifyOrResume handles the first frame a connection sends: either
// IDENTIFY(token) to start a new session, or RESUME(session_id, seq) to
// reattach to an existing one. Matches the specification's handshake
// sequence and the RESUME semantics in original_source's session.rs.
func (s *Server) onIdentifyOrResume(wc *wsConn, frame Frame) (*Session, bool) {
	switch frame.Op {
	case OpIdentify:
		var data IdentifyData
		if err := jsonAPI.Unmarshal(frame.Data, &data); err != nil {
			s.closeWith(wc, apierrors.CloseReasonPayloadDecode)
			return nil, false
		}

		claims, err := auth.ValidateToken(data.Token, s.state.Config.JWTSecret)
		if err != nil {
			s.closeWith(wc, apierrors.CloseReasonTokenInvalid)
			return nil, false
		}

		userID := models.Snowflake(claims.Subject)
		guildIDs, err := s.guildsForUser(userID)
		if err != nil {
			s.closeWith(wc, apierrors.CloseReasonTokenInvalid)
			return nil, false
		}

		session := NewSession(userID, guildIDs)
		s.hub.Register(session)
		return session, true

	case OpResume:
		var data ResumeData
		if err := jsonAPI.Unmarshal(frame.Data, &data); err != nil {
			s.closeWith(wc, apierrors.CloseReasonPayloadDecode)
			return nil, false
		}

		session, found := s.hub.Get(data.SessionID)
		if !found {
			s.writeFrame(wc, invalidSessionFrame())
			return nil, false
		}

		frames, ok := session.ReplaySince(data.Sequence)
		if !ok {
			s.writeFrame(wc, invalidSessionFrame())
			s.hub.Unregister(session.ID)
			return nil, false
		}
		for _, f := range frames {
			if err := s.writeFrame(wc, f); err != nil {
				return nil, false
			}
		}
		return session, true

	default:
		s.closeWith(wc, apierrors.CloseReasonPayloadDecode)
		return nil, false
	}
}

func (s *Server) guildsForUser(userID models.Snowflake) ([]models.Snowflake, error) {
	members, err := s.state.Store.MembershipsForIndex(s.state.Context())
	if err != nil {
		return nil, err
	}
	var out []models.Snowflake
	for _, row := range members {
		if models.Snowflake(row[1]) == userID {
			out = append(out, models.Snowflake(row[0]))
		}
	}
	return out, nil
}

// readLoop handles inbound client frames: HEARTBEAT, VOICE_STATE_UPDATE
// passthrough, and similar commands, following the division of labor the
// teacher's session.go documents between its reader and heartbeat loops.
func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, wc *wsConn, session *Session) {
	defer cancel()

	for {
		var frame Frame
		if err := s.readFrame(wc, &frame); err != nil {
			return
		}

		switch frame.Op {
		case OpHeartbeat:
			session.Touch()
			if err := s.writeFrame(wc, heartbeatAckFrame()); err != nil {
				return
			}
		case OpVoiceStateUpdate:
			s.onVoiceStateUpdate(session, frame)
		case OpMediaConnect, OpMediaKeyAnnounce, OpMediaKeyDeliver, OpMediaSessionDesc, OpMediaSpeakerUpdate, OpMediaSubscribe:
			s.onMediaSignal(wc, session, frame)
		default:
			// Unknown inbound opcodes are ignored rather than closing the
			// connection, so forward-compatible clients don't get dropped.
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// onVoiceStateUpdate passes a client's voice-state change through to the
// event bus, scoped to the guild_id the payload names, so the other
// sessions in that guild observe it. Frames without a guild_id, or naming a
// guild the session is not subscribed to, are dropped. Apart from
// guild_id the payload is opaque to the gateway, matching the
// specification's treatment of voice/media as an external collaborator.
func (s *Server) onVoiceStateUpdate(session *Session, frame Frame) {
	var data struct {
		GuildID models.Snowflake `json:"guild_id"`
	}
	if err := jsonAPI.Unmarshal(frame.Data, &data); err != nil || data.GuildID == 0 {
		return
	}
	gid := data.GuildID
	if !session.ShouldReceive(&gid, nil) {
		return
	}
	s.state.Bus.Publish(models.NewEvent(models.EventVoiceStateUpdate, json.RawMessage(frame.Data), &gid, nil))
}

// mediaSignalData is the common envelope every voice-signaling opcode
// carries: the channel the signal concerns, used to authorize the caller
// before the payload is forwarded to internal/media.
type mediaSignalData struct {
	ChannelID models.Snowflake `json:"channel_id"`
}

// onMediaSignal authorizes a voice-signaling frame against the permission
// engine's CONNECT bit and forwards it to internal/media, relaying the
// provider's response back to the client. OP_MEDIA_CONNECT additionally
// exchanges the signal for a join token rather than a passthrough relay,
// since that's the one signal this gateway itself has enough context
// (channel, caller identity) to answer without round-tripping the payload.
// Per spec.md's non-goal, the signaling payload's contents stay opaque to
// the gateway; only the channel_id envelope field is inspected.
func (s *Server) onMediaSignal(wc *wsConn, session *Session, frame Frame) {
	var data mediaSignalData
	if err := jsonAPI.Unmarshal(frame.Data, &data); err != nil {
		return
	}

	ctx := s.state.Context()

	channel, err := s.state.Store.GetChannel(ctx, data.ChannelID)
	if err != nil || channel.GuildID == nil {
		return
	}
	gid := *channel.GuildID

	perms, err := s.resolveVoicePermissions(gid, data.ChannelID, session.UserID)
	if err != nil {
		return
	}
	if reqErr := permissions.Require(perms, permissions.Connect); reqErr != nil {
		return
	}

	if frame.Op == OpMediaConnect {
		token, err := s.state.Media.IssueJoinToken(ctx, data.ChannelID, session.UserID)
		if err != nil {
			s.log.Warn().Err(err).Msg("media join token request failed")
			return
		}
		s.writeFrame(wc, Frame{Op: OpMediaConnect, Data: mustMarshal(token)})
		return
	}

	resp, err := s.state.Media.Signal(ctx, mediaSignalKind(frame.Op), frame.Data)
	if err != nil {
		s.log.Warn().Err(err).Msg("media signal forward failed")
		return
	}
	s.writeFrame(wc, Frame{Op: frame.Op, Data: resp})
}

// mediaSignalKind names the provider-side signaling endpoint for opcode,
// matching original_source's signaling.rs opcode names.
func mediaSignalKind(op Opcode) string {
	switch op {
	case OpMediaKeyAnnounce:
		return "key_announce"
	case OpMediaKeyDeliver:
		return "key_deliver"
	case OpMediaSessionDesc:
		return "session_desc"
	case OpMediaSpeakerUpdate:
		return "speaker_update"
	case OpMediaSubscribe:
		return "subscribe"
	default:
		return "unknown"
	}
}

// resolveVoicePermissions computes userID's effective permissions in
// channelID, the same owner -> @everyone -> member-roles -> administrator ->
// overwrites pipeline internal/rest's resolveChannelPermissions runs for
// REST requests, needed here so voice signaling is gated on the caller's
// CONNECT permission in that channel. SPEAK is not checked.
func (s *Server) resolveVoicePermissions(guildID, channelID, userID models.Snowflake) (permissions.Permissions, error) {
	ctx := s.state.Context()

	guild, err := s.state.Store.GetGuild(ctx, guildID)
	if err != nil {
		return 0, err
	}

	member, err := s.state.Store.GetMember(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}

	roles, err := s.state.Store.RolesByGuild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	rolePtrs := make([]*models.Role, len(roles))
	for i := range roles {
		rolePtrs[i] = &roles[i]
	}
	roleLikes := permissions.FromModelRoles(rolePtrs)
	guildPerms := permissions.ComputeGuildPerms(roleLikes, guildID, guild.OwnerID, userID, member.Roles)

	overwrites, err := s.state.Store.OverwritesByChannel(ctx, channelID)
	if err != nil {
		return 0, err
	}
	overwriteLikes := make([]permissions.OverwriteLike, 0, len(overwrites))
	for _, o := range overwrites {
		overwriteLikes = append(overwriteLikes, permissions.OverwriteLike{
			TargetID:   o.TargetID,
			TargetType: o.TargetType,
			Allow:      permissions.Permissions(o.Allow),
			Deny:       permissions.Permissions(o.Deny),
		})
	}

	return permissions.ComputeChannelPerms(guildPerms, guildID, overwriteLikes, member.Roles, userID), nil
}

// writeLoop drains the session's event-bus subscription and the
// heartbeat-staleness check, dispatching matching events and closing the
// connection on lag or heartbeat timeout per the specification's
// failure-mode table.
func (s *Server) writeLoop(ctx context.Context, wc *wsConn, session *Session, receiver *eventbus.Receiver) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if session.HeartbeatStale(heartbeatAllowance) {
				s.closeWith(wc, apierrors.CloseReasonHeartbeatMiss)
				return
			}

		default:
		}

		recvCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		event, err := receiver.Recv(recvCtx)
		cancel()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			var lagged *eventbus.Lagged
			if errors.As(err, &lagged) {
				s.closeWith(wc, apierrors.CloseReasonLagged)
				return
			}
			continue
		}

		// Dynamic guild changes: a GUILD_CREATE targeted at this session's
		// user means the session just gained access to a guild (e.g. an
		// invite was accepted) -- the guild must be added to the
		// subscription set before the event is emitted, so every
		// subsequent guild-scoped event for it is deliverable without a
		// reconnect. GUILD_DELETE is the mirror image, applied after the
		// event is delivered so the session still receives its own
		// departure notice.
		if event.Type == models.EventGuildCreate {
			if gid, ok := guildIDFromPayload(event.Payload); ok {
				session.AddGuild(gid)
			}
		}

		if !session.ShouldReceive(event.GuildID, event.TargetUserIDs) {
			continue
		}

		seq := session.NextSequence(event.Type, event.Payload)
		if err := s.writeFrame(wc, dispatchFrame(seq, event.Type, event.Payload)); err != nil {
			return
		}

		if event.Type == models.EventGuildDelete {
			if gid, ok := guildIDFromPayload(event.Payload); ok {
				session.RemoveGuild(gid)
			}
		}
	}
}

// guildIDFromPayload extracts the "id" field GUILD_CREATE/GUILD_DELETE
// payloads carry (a models.Guild), used to update the session's dynamic
// subscription set without the writer loop depending on the full Guild
// shape.
func guildIDFromPayload(payload json.RawMessage) (models.Snowflake, bool) {
	var g struct {
		ID models.Snowflake `json:"id"`
	}
	if err := jsonAPI.Unmarshal(payload, &g); err != nil {
		return 0, false
	}
	return g.ID, g.ID != 0
}

func (s *Server) writeFrame(wc *wsConn, frame Frame) error {
	b, err := jsonAPI.Marshal(frame)
	if err != nil {
		return err
	}

	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return wc.conn.WriteMessage(websocket.TextMessage, b)
}

// readFrame reads one text-framed JSON message and decodes it with
// jsoniter, the same codec writeFrame encodes with.
func (s *Server) readFrame(wc *wsConn, out *Frame) error {
	_, b, err := wc.conn.ReadMessage()
	if err != nil {
		return err
	}
	return jsonAPI.Unmarshal(b, out)
}

// closeWith sends a close frame via WriteControl, which gorilla documents
// as safe to call concurrently with WriteMessage/WriteJSON -- unlike those,
// it doesn't need wc's write mutex.
func (s *Server) closeWith(wc *wsConn, reason apierrors.CloseReason) {
	code := apierrors.GatewayCloseCode(reason)
	wc.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
}
