// Package appstate wires together the long-lived singletons every request
// handler and gateway session needs: the store, the event bus, the member
// index, the snowflake generator, and a small set of runtime-mutable
// settings. It generalizes the teacher's Manager struct (manager.go), which
// bundled a Redis client, a NATS client, and a slice of Sessions behind one
// struct threaded through the whole program.
package appstate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/paracordchat/paracord/internal/config"
	"github.com/paracordchat/paracord/internal/eventbus"
	"github.com/paracordchat/paracord/internal/media"
	"github.com/paracordchat/paracord/internal/memberindex"
	"github.com/paracordchat/paracord/internal/snowflake"
	"github.com/paracordchat/paracord/internal/store"
)

// RuntimeSettings holds the subset of configuration an admin can change
// while the server is running, mirroring original_source's RuntimeSettings
// struct (paracord-core/src/lib.rs) field-for-field.
type RuntimeSettings struct {
	RegistrationEnabled bool
	ServerName          string
	ServerDescription   string
	MaxGuildsPerUser    uint32
	MaxMembersPerGuild  uint32
}

// FromConfig seeds RuntimeSettings from the static config loaded at startup.
func FromConfig(cfg config.Config) RuntimeSettings {
	return RuntimeSettings{
		RegistrationEnabled: cfg.RegistrationEnabled,
		ServerName:          cfg.ServerName,
		ServerDescription:   cfg.ServerDescription,
		MaxGuildsPerUser:    cfg.MaxGuildsPerUser,
		MaxMembersPerGuild:  cfg.MaxMembersPerGuild,
	}
}

// State is the application's single shared handle, analogous to the
// teacher's Manager: it carries the store, the event bus, the member index,
// the ID generator, and a mutex-guarded RuntimeSettings block, plus a
// context used to fan out shutdown to every goroutine that was handed it.
type State struct {
	Config config.Config
	Log    zerolog.Logger

	Store       store.Store
	Bus         *eventbus.Bus
	Members     *memberindex.Index
	Snowflakes  *snowflake.Generator

	// Media is the voice/storage façade (internal/media): it issues voice
	// join tokens and relays voice-signaling messages forwarded from the
	// gateway, analogous to the teacher's Manager.Client REST handle.
	Media *media.Client

	settingsMu sync.RWMutex
	settings   RuntimeSettings

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a State from its already-constructed components. Callers
// (cmd/paracord-server/main.go) are responsible for constructing the store,
// bus, and member index according to configuration -- State only owns the
// wiring and the runtime-settings lock.
func New(cfg config.Config, log zerolog.Logger, st store.Store, bus *eventbus.Bus, members *memberindex.Index, gen *snowflake.Generator, voice *media.Client) *State {
	ctx, cancel := context.WithCancel(context.Background())
	return &State{
		Config:     cfg,
		Log:        log,
		Store:      st,
		Bus:        bus,
		Members:    members,
		Snowflakes: gen,
		Media:      voice,
		settings:   FromConfig(cfg),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Context returns the application's root context, cancelled by Shutdown.
func (s *State) Context() context.Context { return s.ctx }

// Shutdown cancels the application context, signalling every goroutine
// holding it (gateway sessions, the NATS bridge subscription, background
// workers) to stop.
func (s *State) Shutdown() { s.cancel() }

// Settings returns a copy of the current runtime settings.
func (s *State) Settings() RuntimeSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// UpdateSettings applies mutate to the runtime settings under an exclusive
// lock, so concurrent admin-settings requests cannot interleave partial
// writes.
func (s *State) UpdateSettings(mutate func(*RuntimeSettings)) RuntimeSettings {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	mutate(&s.settings)
	return s.settings
}
