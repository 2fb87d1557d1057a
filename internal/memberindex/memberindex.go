// Package memberindex implements the in-memory guild-membership cache
// described in the server's specification §4.3: "who else should receive a
// presence-like event for user U?" without a database round-trip.
//
// No sharded-concurrent-map library exists anywhere in the example corpus
// for Go (the nearest analogue, dashmap, is Rust-only); per-guild locking is
// therefore built on sync.RWMutex the way the teacher's own cache type
// (state.go's State) embeds sync.RWMutex, guarded by a top-level RWMutex
// over the map of guild sets so adding/removing a guild's set and reading
// an existing set never race.
package memberindex

import "sync"

// Index is a concurrent map from guild ID to the set of member user IDs.
type Index struct {
	mu     sync.RWMutex
	guilds map[int64]*guildSet
}

type guildSet struct {
	mu      sync.RWMutex
	members map[int64]struct{}
}

// New creates an empty index.
func New() *Index {
	return &Index{guilds: make(map[int64]*guildSet)}
}

// FromMemberships bulk-builds an index from a pre-fetched list of
// (guild_id, user_id) pairs. Callers must not mutate the index
// concurrently with this call (single-writer, startup-time only).
func FromMemberships(rows [][2]int64) *Index {
	idx := New()
	for _, row := range rows {
		idx.add(row[0], row[1])
	}
	return idx
}

func (idx *Index) getOrCreate(guildID int64) *guildSet {
	idx.mu.RLock()
	gs, ok := idx.guilds[guildID]
	idx.mu.RUnlock()
	if ok {
		return gs
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	gs, ok = idx.guilds[guildID]
	if !ok {
		gs = &guildSet{members: make(map[int64]struct{})}
		idx.guilds[guildID] = gs
	}
	return gs
}

func (idx *Index) add(guildID, userID int64) {
	gs := idx.getOrCreate(guildID)
	gs.mu.Lock()
	gs.members[userID] = struct{}{}
	gs.mu.Unlock()
}

// Add inserts userID into guildID's member set, creating the set if
// absent. Callers are responsible for persisting the membership to the
// database as part of the same write-through operation.
func (idx *Index) Add(guildID, userID int64) {
	idx.add(guildID, userID)
}

// Remove deletes userID from guildID's member set, if present. Idempotent.
func (idx *Index) Remove(guildID, userID int64) {
	idx.mu.RLock()
	gs, ok := idx.guilds[guildID]
	idx.mu.RUnlock()
	if !ok {
		return
	}

	gs.mu.Lock()
	delete(gs.members, userID)
	gs.mu.Unlock()
}

// RemoveGuild drops a guild's entire member set. Idempotent.
func (idx *Index) RemoveGuild(guildID int64) {
	idx.mu.Lock()
	delete(idx.guilds, guildID)
	idx.mu.Unlock()
}

// PresenceRecipients returns the union of members across guildIDs,
// excluding userID itself. This is a snapshot read: a membership mutation
// racing with this call may be missed, a staleness tolerance of at most
// one event that the specification accepts explicitly.
func (idx *Index) PresenceRecipients(userID int64, guildIDs []int64) map[int64]struct{} {
	recipients := make(map[int64]struct{})

	for _, guildID := range guildIDs {
		idx.mu.RLock()
		gs, ok := idx.guilds[guildID]
		idx.mu.RUnlock()
		if !ok {
			continue
		}

		gs.mu.RLock()
		for member := range gs.members {
			recipients[member] = struct{}{}
		}
		gs.mu.RUnlock()
	}

	delete(recipients, userID)
	return recipients
}

// GuildCount reports how many guilds currently have an entry, used for
// logging/metrics at startup.
func (idx *Index) GuildCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.guilds)
}
