// Package store defines the persistence boundary every other package talks
// to: a single Store interface covering users, guilds, channels, roles,
// members, permission overwrites, messages, bans, read states, and server
// settings, plus an in-memory implementation used by tests and by the
// in-process demo mode.
//
// The interface shape is grounded on original_source's paracord-db crate
// (one module per entity, CRUD functions taking a pool handle); the
// in-memory implementation's concurrency style -- a struct embedding
// sync.RWMutex guarding plain maps -- is grounded on the teacher's state.go
// State struct and generalizes internal/memberindex's same choice.
package store

import (
	"context"
	"errors"

	"github.com/paracordchat/paracord/internal/models"
)

// ErrNotFound is returned when a lookup finds nothing, mirroring
// original_source's DbError::NotFound variant.
var ErrNotFound = errors.New("store: not found")

// Store is the full persistence surface the server depends on. Every
// method takes a context so a real SQL-backed implementation can propagate
// cancellation/timeouts; the in-memory implementation ignores it.
type Store interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id models.Snowflake) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	UpdateUser(ctx context.Context, u models.User) error

	CreateGuild(ctx context.Context, g models.Guild) (models.Guild, error)
	GetGuild(ctx context.Context, id models.Snowflake) (models.Guild, error)
	DeleteGuild(ctx context.Context, id models.Snowflake) error
	GuildsByOwner(ctx context.Context, ownerID models.Snowflake) ([]models.Guild, error)

	CreateChannel(ctx context.Context, c models.Channel) (models.Channel, error)
	GetChannel(ctx context.Context, id models.Snowflake) (models.Channel, error)
	DeleteChannel(ctx context.Context, id models.Snowflake) error
	ChannelsByGuild(ctx context.Context, guildID models.Snowflake) ([]models.Channel, error)

	CreateRole(ctx context.Context, r models.Role) (models.Role, error)
	GetRole(ctx context.Context, id models.Snowflake) (models.Role, error)
	DeleteRole(ctx context.Context, id models.Snowflake) error
	RolesByGuild(ctx context.Context, guildID models.Snowflake) ([]models.Role, error)

	AddMember(ctx context.Context, m models.Member) error
	RemoveMember(ctx context.Context, guildID, userID models.Snowflake) error
	GetMember(ctx context.Context, guildID, userID models.Snowflake) (models.Member, error)
	MembersByGuild(ctx context.Context, guildID models.Snowflake) ([]models.Member, error)
	MembershipsForIndex(ctx context.Context) ([][2]int64, error)

	SetChannelOverwrite(ctx context.Context, o models.ChannelOverwrite) error
	RemoveChannelOverwrite(ctx context.Context, channelID, targetID models.Snowflake) error
	OverwritesByChannel(ctx context.Context, channelID models.Snowflake) ([]models.ChannelOverwrite, error)

	CreateMessage(ctx context.Context, m models.Message) (models.Message, error)
	GetMessage(ctx context.Context, id models.Snowflake) (models.Message, error)
	DeleteMessage(ctx context.Context, id models.Snowflake) error

	CreateBan(ctx context.Context, b models.Ban) (models.Ban, error)
	GetBan(ctx context.Context, guildID, userID models.Snowflake) (models.Ban, error)
	DeleteBan(ctx context.Context, guildID, userID models.Snowflake) error
	GuildBans(ctx context.Context, guildID models.Snowflake) ([]models.Ban, error)

	UpdateReadState(ctx context.Context, userID, channelID, lastMessageID models.Snowflake) (models.ReadState, error)
	GetReadState(ctx context.Context, userID, channelID models.Snowflake) (models.ReadState, error)
	UserReadStates(ctx context.Context, userID models.Snowflake) ([]models.ReadState, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}
