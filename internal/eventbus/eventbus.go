// Package eventbus implements the in-process publish/subscribe layer
// described in the server's specification §4.4: it accepts events from
// REST writers and delivers them to every gateway session with
// back-pressure tolerance.
//
// This is the ring-buffer-per-subscriber strategy the specification's
// design notes (§9) suggest for languages without a native broadcast
// primitive: each subscriber owns a bounded channel (default capacity
// 4096, spec §4.4); Publish never blocks the caller. When a subscriber's
// channel is full, the new event is dropped for that subscriber only and
// its drop counter is incremented; the subscriber's next Recv call
// surfaces a Lagged(n) result (and resets the counter) before resuming
// normal delivery, so a slow subscriber recovers from the database
// instead of stalling every other subscriber or the publisher.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/paracordchat/paracord/internal/models"
)

// DefaultCapacity is the default bounded in-flight capacity per subscriber.
const DefaultCapacity = 4096

// Lagged is returned by Receiver.Recv when the bus had to drop events for
// this subscriber because it could not keep pace with the publisher.
type Lagged struct {
	N uint64
}

func (l *Lagged) Error() string { return "eventbus: subscriber lagged" }

// ErrClosed is returned by Receiver.Recv once the bus (or this receiver)
// has been shut down and no further events will arrive.
var ErrClosed = errClosed{}

type errClosed struct{}

func (errClosed) Error() string { return "eventbus: receiver closed" }

// Bus delivers events from any publisher to every currently active
// subscriber. The zero value is not valid; use New.
type Bus struct {
	log      zerolog.Logger
	capacity int

	mu   sync.RWMutex
	subs map[uint64]*subscriber
	next uint64

	bridge Bridge
}

// Bridge optionally mirrors every published event to an external
// transport (e.g. NATS) so a second server process's gateway sessions
// also observe the dispatch. See internal/eventbus/natsbridge.go.
type Bridge interface {
	Mirror(event models.Event)
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithCapacity overrides the default per-subscriber bounded capacity.
func WithCapacity(capacity int) Option {
	return func(b *Bus) { b.capacity = capacity }
}

// WithBridge attaches a Bridge that mirrors every publish.
func WithBridge(bridge Bridge) Option {
	return func(b *Bus) { b.bridge = bridge }
}

// New constructs a Bus.
func New(log zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		log:      log.With().Str("component", "eventbus").Logger(),
		capacity: DefaultCapacity,
		subs:     make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type subscriber struct {
	ch      chan models.Event
	dropped atomic.Uint64
	closed  atomic.Bool
}

// Receiver is an independent event stream returned by Subscribe. Each
// Receiver starts delivery from "now" -- events published before
// Subscribe was called are never seen.
type Receiver struct {
	bus *Bus
	id  uint64
	sub *subscriber
}

// Publish delivers event to every current subscriber. It never blocks: a
// subscriber that cannot keep up has the event dropped for it alone, with
// Lagged accounting, per spec §4.4. If no subscribers exist, Publish
// succeeds and the event is simply discarded.
func (b *Bus) Publish(event models.Event) {
	if b.bridge != nil {
		b.bridge.Mirror(event)
	}
	b.deliverLocal(event)
}

// deliverLocal fans event out to local subscribers only, without mirroring
// it onto the bridge. SubscribeBridge uses this to republish events that
// arrived from a peer process, avoiding a republish-mirror echo loop.
func (b *Bus) deliverLocal(event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.closed.Load() {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribe registers a new independent receiver.
func (b *Bus) Subscribe() *Receiver {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++

	sub := &subscriber{ch: make(chan models.Event, b.capacity)}
	b.subs[id] = sub

	return &Receiver{bus: b, id: id, sub: sub}
}

// Recv blocks until an event is available, the context is canceled, or
// the receiver is closed. A non-nil *Lagged error means events were
// dropped for this receiver; the caller should recover lost state from
// the database and may call Recv again immediately to resume.
func (r *Receiver) Recv(ctx context.Context) (models.Event, error) {
	if n := r.sub.dropped.Swap(0); n > 0 {
		return models.Event{}, &Lagged{N: n}
	}

	select {
	case event, ok := <-r.sub.ch:
		if !ok {
			return models.Event{}, ErrClosed
		}
		return event, nil
	case <-ctx.Done():
		return models.Event{}, ctx.Err()
	}
}

// Close unregisters the receiver. The bus does not leak memory or block
// other subscribers when a slow subscriber disappears: Close only removes
// this receiver's map entry and closes its channel.
func (r *Receiver) Close() {
	if !r.sub.closed.CompareAndSwap(false, true) {
		return
	}

	r.bus.mu.Lock()
	delete(r.bus.subs, r.id)
	r.bus.mu.Unlock()

	close(r.sub.ch)
}

// SubscriberCount reports how many receivers are currently registered,
// used for logging/metrics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
