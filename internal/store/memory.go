package store

import (
	"context"
	"sync"

	"github.com/paracordchat/paracord/internal/models"
)

type overwriteKey struct {
	channelID models.Snowflake
	targetID  models.Snowflake
}

type banKey struct {
	guildID models.Snowflake
	userID  models.Snowflake
}

type readStateKey struct {
	userID    models.Snowflake
	channelID models.Snowflake
}

type memberKey struct {
	guildID models.Snowflake
	userID  models.Snowflake
}

// Memory is an in-process Store implementation backed by plain maps
// guarded by a single sync.RWMutex, in the same spirit as the teacher's
// state.go State struct and internal/memberindex.Index: fine enough for
// tests and the single-node demo binary, never intended to replace a real
// SQL-backed implementation under load.
type Memory struct {
	mu sync.RWMutex

	users    map[models.Snowflake]models.User
	usersByName map[string]models.Snowflake
	guilds   map[models.Snowflake]models.Guild
	channels map[models.Snowflake]models.Channel
	roles    map[models.Snowflake]models.Role
	members  map[memberKey]models.Member
	overwrites map[overwriteKey]models.ChannelOverwrite
	messages map[models.Snowflake]models.Message
	bans     map[banKey]models.Ban
	readStates map[readStateKey]models.ReadState
	settings map[string]string
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[models.Snowflake]models.User),
		usersByName: make(map[string]models.Snowflake),
		guilds:      make(map[models.Snowflake]models.Guild),
		channels:    make(map[models.Snowflake]models.Channel),
		roles:       make(map[models.Snowflake]models.Role),
		members:     make(map[memberKey]models.Member),
		overwrites:  make(map[overwriteKey]models.ChannelOverwrite),
		messages:    make(map[models.Snowflake]models.Message),
		bans:        make(map[banKey]models.Ban),
		readStates:  make(map[readStateKey]models.ReadState),
		settings:    make(map[string]string),
	}
}

func (m *Memory) CreateUser(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.usersByName[u.Username] = u.ID
	return u, nil
}

func (m *Memory) GetUser(_ context.Context, id models.Snowflake) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByName[username]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) UpdateUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = u
	m.usersByName[u.Username] = u.ID
	return nil
}

func (m *Memory) CreateGuild(_ context.Context, g models.Guild) (models.Guild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[g.ID] = g
	return g, nil
}

func (m *Memory) GetGuild(_ context.Context, id models.Snowflake) (models.Guild, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.guilds[id]
	if !ok {
		return models.Guild{}, ErrNotFound
	}
	return g, nil
}

func (m *Memory) DeleteGuild(_ context.Context, id models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.guilds, id)
	return nil
}

func (m *Memory) GuildsByOwner(_ context.Context, ownerID models.Snowflake) ([]models.Guild, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Guild
	for _, g := range m.guilds {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *Memory) CreateChannel(_ context.Context, c models.Channel) (models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[c.ID] = c
	return c, nil
}

func (m *Memory) GetChannel(_ context.Context, id models.Snowflake) (models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.channels[id]
	if !ok {
		return models.Channel{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) DeleteChannel(_ context.Context, id models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
	return nil
}

func (m *Memory) ChannelsByGuild(_ context.Context, guildID models.Snowflake) ([]models.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Channel
	for _, c := range m.channels {
		if c.GuildID != nil && *c.GuildID == guildID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) CreateRole(_ context.Context, r models.Role) (models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[r.ID] = r
	return r, nil
}

func (m *Memory) GetRole(_ context.Context, id models.Snowflake) (models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[id]
	if !ok {
		return models.Role{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) DeleteRole(_ context.Context, id models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, id)
	return nil
}

func (m *Memory) RolesByGuild(_ context.Context, guildID models.Snowflake) ([]models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Role
	for _, r := range m.roles {
		if r.GuildID == guildID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) AddMember(_ context.Context, mem models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[memberKey{mem.GuildID, mem.UserID}] = mem
	return nil
}

func (m *Memory) RemoveMember(_ context.Context, guildID, userID models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, memberKey{guildID, userID})
	return nil
}

func (m *Memory) GetMember(_ context.Context, guildID, userID models.Snowflake) (models.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[memberKey{guildID, userID}]
	if !ok {
		return models.Member{}, ErrNotFound
	}
	return mem, nil
}

func (m *Memory) MembersByGuild(_ context.Context, guildID models.Snowflake) ([]models.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Member
	for k, mem := range m.members {
		if k.guildID == guildID {
			out = append(out, mem)
		}
	}
	return out, nil
}

// MembershipsForIndex returns every (guild_id, user_id) pair, in the shape
// internal/memberindex.FromMemberships expects, so the in-process member
// index can be rebuilt from scratch at startup.
func (m *Memory) MembershipsForIndex(_ context.Context) ([][2]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][2]int64, 0, len(m.members))
	for k := range m.members {
		out = append(out, [2]int64{int64(k.guildID), int64(k.userID)})
	}
	return out, nil
}

func (m *Memory) SetChannelOverwrite(_ context.Context, o models.ChannelOverwrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overwrites[overwriteKey{o.ChannelID, o.TargetID}] = o
	return nil
}

func (m *Memory) RemoveChannelOverwrite(_ context.Context, channelID, targetID models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overwrites, overwriteKey{channelID, targetID})
	return nil
}

func (m *Memory) OverwritesByChannel(_ context.Context, channelID models.Snowflake) ([]models.ChannelOverwrite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ChannelOverwrite
	for k, o := range m.overwrites {
		if k.channelID == channelID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) CreateMessage(_ context.Context, msg models.Message) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *Memory) GetMessage(_ context.Context, id models.Snowflake) (models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	if !ok {
		return models.Message{}, ErrNotFound
	}
	return msg, nil
}

func (m *Memory) DeleteMessage(_ context.Context, id models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, id)
	return nil
}

// CreateBan upserts, matching original_source's
// "ON CONFLICT (user_id, guild_id) DO UPDATE" ban semantics.
func (m *Memory) CreateBan(_ context.Context, b models.Ban) (models.Ban, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bans[banKey{b.GuildID, b.UserID}] = b
	return b, nil
}

func (m *Memory) GetBan(_ context.Context, guildID, userID models.Snowflake) (models.Ban, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bans[banKey{guildID, userID}]
	if !ok {
		return models.Ban{}, ErrNotFound
	}
	return b, nil
}

func (m *Memory) DeleteBan(_ context.Context, guildID, userID models.Snowflake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bans, banKey{guildID, userID})
	return nil
}

func (m *Memory) GuildBans(_ context.Context, guildID models.Snowflake) ([]models.Ban, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Ban
	for k, b := range m.bans {
		if k.guildID == guildID {
			out = append(out, b)
		}
	}
	return out, nil
}

// UpdateReadState resets mention_count to zero, matching
// original_source/read_states.rs's update_read_state.
func (m *Memory) UpdateReadState(_ context.Context, userID, channelID, lastMessageID models.Snowflake) (models.ReadState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := models.ReadState{UserID: userID, ChannelID: channelID, LastMessageID: lastMessageID, MentionCount: 0}
	m.readStates[readStateKey{userID, channelID}] = rs
	return rs, nil
}

func (m *Memory) GetReadState(_ context.Context, userID, channelID models.Snowflake) (models.ReadState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.readStates[readStateKey{userID, channelID}]
	if !ok {
		return models.ReadState{}, ErrNotFound
	}
	return rs, nil
}

func (m *Memory) UserReadStates(_ context.Context, userID models.Snowflake) ([]models.ReadState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ReadState
	for k, rs := range m.readStates {
		if k.userID == userID {
			out = append(out, rs)
		}
	}
	return out, nil
}

func (m *Memory) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *Memory) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

var _ Store = (*Memory)(nil)
