package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paracordchat/paracord/internal/appstate"
	"github.com/paracordchat/paracord/internal/auth"
	"github.com/paracordchat/paracord/internal/config"
	"github.com/paracordchat/paracord/internal/eventbus"
	"github.com/paracordchat/paracord/internal/media"
	"github.com/paracordchat/paracord/internal/memberindex"
	"github.com/paracordchat/paracord/internal/models"
	"github.com/paracordchat/paracord/internal/snowflake"
	"github.com/paracordchat/paracord/internal/store"
)

func TestGuildIDFromPayloadParsesGuildEnvelope(t *testing.T) {
	gid, ok := guildIDFromPayload([]byte(`{"id":"42","name":"test"}`))
	assert.True(t, ok)
	assert.Equal(t, models.Snowflake(42), gid)

	_, ok = guildIDFromPayload([]byte(`not json`))
	assert.False(t, ok)
}

func newTestServer(t *testing.T) (*Server, *appstate.State, string) {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	st := store.NewMemory()
	members := memberindex.New()
	bus := eventbus.New(zerolog.Nop())
	gen := snowflake.NewGenerator(1)
	state := appstate.New(cfg, zerolog.Nop(), st, bus, members, gen, media.New(cfg.Voice))
	t.Cleanup(state.Shutdown)

	srv := NewServer(state)
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	return srv, state, "ws" + strings.TrimPrefix(httpSrv.URL, "http")
}

func dialAndIdentify(t *testing.T, wsURL string, userID models.Snowflake, jwtSecret string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var hello Frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, OpHello, hello.Op)

	token, err := auth.CreateToken(int64(userID), jwtSecret, time.Minute)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Frame{Op: OpIdentify, Data: mustMarshal(IdentifyData{Token: token})}))
	return conn
}

// TestDynamicGuildChangeGrantsSubscriptionBeforeDelivery covers spec §4.5's
// dynamic-guild-changes contract: a GUILD_CREATE targeted at a session's
// user must add the guild to its subscription set before a later
// guild-scoped event for that same guild is deliverable, with no reconnect
// in between.
func TestDynamicGuildChangeGrantsSubscriptionBeforeDelivery(t *testing.T) {
	_, state, wsURL := newTestServer(t)

	userID := models.Snowflake(7)
	conn := dialAndIdentify(t, wsURL, userID, state.Config.JWTSecret)
	defer conn.Close()

	newGuild := models.Snowflake(99)
	guildCreate := models.NewEvent(models.EventGuildCreate, models.Guild{ID: newGuild, Name: "new"}, nil, []models.Snowflake{userID})
	stopRepublish := republishUntil(state, guildCreate)

	var created Frame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&created))
	stopRepublish()
	assert.Equal(t, models.EventGuildCreate, created.Type)

	messageCreate := models.NewEvent(models.EventMessageCreate, map[string]string{"content": "hi"}, &newGuild, nil)
	stopRepublish = republishUntil(state, messageCreate)
	defer stopRepublish()

	var dispatched Frame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&dispatched))
	assert.Equal(t, models.EventMessageCreate, dispatched.Type)
}

// republishUntil re-publishes event on an interval until the returned stop
// func is called, masking the inherent race between a freshly-dialed
// session subscribing to the bus and the test publishing to it.
func republishUntil(state *appstate.State, event models.Event) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		state.Bus.Publish(event)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				state.Bus.Publish(event)
			}
		}
	}()
	return func() { close(stop) }
}

// TestConcurrentHeartbeatAndDispatchDoNotCorruptFrames drives the
// HEARTBEAT/HEARTBEAT_ACK exchange (readLoop's writer) concurrently with
// event dispatch (writeLoop's writer) against the same connection, the two
// goroutines writeFrame's wc mutex must keep from racing.
func TestConcurrentHeartbeatAndDispatchDoNotCorruptFrames(t *testing.T) {
	_, state, wsURL := newTestServer(t)

	userID := models.Snowflake(3)
	conn := dialAndIdentify(t, wsURL, userID, state.Config.JWTSecret)
	defer conn.Close()

	stopHeartbeats := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopHeartbeats:
				return
			case <-ticker.C:
				_ = conn.WriteJSON(Frame{Op: OpHeartbeat})
			}
		}
	}()
	defer close(stopHeartbeats)

	stopPublish := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-stopPublish:
				return
			case <-ticker.C:
				state.Bus.Publish(models.NewEvent(models.EventMessageCreate, map[string]int{"n": n}, nil, nil))
				n++
			}
		}
	}()
	defer close(stopPublish)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	seenAck, seenDispatch := false, false
	for i := 0; i < 40 && !(seenAck && seenDispatch); i++ {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		switch frame.Op {
		case OpHeartbeatAck:
			seenAck = true
		case OpDispatch:
			seenDispatch = true
		}
	}

	assert.True(t, seenAck, "expected at least one HEARTBEAT_ACK frame")
	assert.True(t, seenDispatch, "expected at least one DISPATCH frame")
}
