package eventbus

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/paracordchat/paracord/internal/models"
)

// NatsBridge mirrors every published event onto a NATS subject so a second
// paracord-server process's gateway sessions also observe the dispatch.
// This generalizes the teacher's manager.go pattern of draining
// produceChannel and forwarding it onto NATS/STAN for downstream
// consumers: there, shard-received Discord events were piped out for
// external consumers; here, the direction is the same (in-process event
// in, NATS subject out) but the purpose is peer server replication rather
// than external consumption.
type NatsBridge struct {
	log     zerolog.Logger
	conn    *nats.Conn
	subject string
}

// NewNatsBridge wires a Bridge backed by an existing NATS connection.
// Events are msgpack-encoded, the same wire format the teacher's
// StreamEvent uses for its NATS/STAN payloads.
func NewNatsBridge(conn *nats.Conn, subjectPrefix string, log zerolog.Logger) *NatsBridge {
	return &NatsBridge{
		log:     log.With().Str("component", "eventbus.natsbridge").Logger(),
		conn:    conn,
		subject: subjectPrefix,
	}
}

// Mirror implements Bridge.
func (n *NatsBridge) Mirror(event models.Event) {
	subject := n.subject + ".broadcast"
	if event.GuildID != nil {
		subject = fmt.Sprintf("%s.guild.%d", n.subject, *event.GuildID)
	}

	payload, err := msgpack.Marshal(event)
	if err != nil {
		n.log.Error().Err(err).Str("event_type", event.Type).Msg("failed to encode event for nats bridge")
		return
	}

	if err := n.conn.Publish(subject, payload); err != nil {
		n.log.Warn().Err(err).Str("subject", subject).Msg("failed to mirror event onto nats")
	}
}

// SubscribeBridge subscribes to every subject under subjectPrefix and
// republishes decoded events onto the local bus, completing the
// cross-process replication loop.
func SubscribeBridge(conn *nats.Conn, subjectPrefix string, bus *Bus, log zerolog.Logger) (*nats.Subscription, error) {
	l := log.With().Str("component", "eventbus.natsbridge").Logger()

	return conn.Subscribe(subjectPrefix+".>", func(msg *nats.Msg) {
		var event models.Event
		if err := msgpack.Unmarshal(msg.Data, &event); err != nil {
			l.Error().Err(err).Str("subject", msg.Subject).Msg("failed to decode bridged event")
			return
		}
		bus.deliverLocal(event)
	})
}
