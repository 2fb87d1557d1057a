package models

import "time"

// ChannelType enumerates the kinds of channel a guild or DM can hold.
type ChannelType int

// Channel type values. DM and GroupDM channels carry no GuildID.
const (
	ChannelTypeText ChannelType = iota
	ChannelTypeDM
	ChannelTypeVoice
	ChannelTypeGroupDM
	ChannelTypeCategory
	ChannelTypeAnnouncement
)

// OverwriteTargetType distinguishes a channel overwrite's target.
type OverwriteTargetType int

const (
	OverwriteTargetRole OverwriteTargetType = iota
	OverwriteTargetMember
)

// User flag bits. UserFlagAdmin mirrors spec.md's `is_admin ⇔ flags & 1 ≠ 0`.
const (
	UserFlagAdmin int64 = 1 << 0
)

// IsAdmin reports whether the flags bitmask marks a server-wide admin.
func IsAdmin(flags int64) bool {
	return flags&UserFlagAdmin != 0
}

// User is the account-level entity. Password digests and other
// authentication material never round-trip through JSON.
type User struct {
	ID       Snowflake `json:"id" msgpack:"id"`
	Username string    `json:"username" msgpack:"username"`
	Flags    int64     `json:"flags" msgpack:"flags"`
	Email    string    `json:"-" msgpack:"email,omitempty"`
	PwHash   string    `json:"-" msgpack:"pw_hash,omitempty"`
}

// Guild is a named collection of channels and members (a "server").
type Guild struct {
	ID          Snowflake `json:"id" msgpack:"id"`
	OwnerID     Snowflake `json:"owner_id" msgpack:"owner_id"`
	Name        string    `json:"name" msgpack:"name"`
	MemberCount int       `json:"member_count" msgpack:"member_count"`
	Features    []string  `json:"features" msgpack:"features"`
}

// Channel is a message or voice room, attached to a guild or a DM group.
type Channel struct {
	ID       Snowflake    `json:"id" msgpack:"id"`
	GuildID  *Snowflake   `json:"guild_id,omitempty" msgpack:"guild_id,omitempty"`
	Type     ChannelType  `json:"type" msgpack:"type"`
	Name     string       `json:"name" msgpack:"name"`
	ParentID *Snowflake   `json:"parent_id,omitempty" msgpack:"parent_id,omitempty"`
	Position int          `json:"position" msgpack:"position"`
	Topic    string       `json:"topic,omitempty" msgpack:"topic,omitempty"`
}

// Role is a named bundle of permissions within a guild. The `@everyone`
// role for a guild always has ID == GuildID.
type Role struct {
	ID          Snowflake `json:"id" msgpack:"id"`
	GuildID     Snowflake `json:"guild_id" msgpack:"guild_id"`
	Name        string    `json:"name" msgpack:"name"`
	Position    int       `json:"position" msgpack:"position"`
	Permissions int64     `json:"permissions" msgpack:"permissions"`
	Color       int       `json:"color" msgpack:"color"`
}

// ChannelOverwrite modifies baseline role permissions for a role or member
// within one channel.
type ChannelOverwrite struct {
	ChannelID  Snowflake           `json:"channel_id" msgpack:"channel_id"`
	TargetID   Snowflake           `json:"target_id" msgpack:"target_id"`
	TargetType OverwriteTargetType `json:"target_type" msgpack:"target_type"`
	Allow      int64               `json:"allow" msgpack:"allow"`
	Deny       int64               `json:"deny" msgpack:"deny"`
}

// Member is the per-guild projection of a user.
type Member struct {
	GuildID  Snowflake   `json:"guild_id" msgpack:"guild_id"`
	UserID   Snowflake   `json:"user_id" msgpack:"user_id"`
	Nick     string      `json:"nick,omitempty" msgpack:"nick,omitempty"`
	Roles    []Snowflake `json:"roles" msgpack:"roles"`
	Deaf     bool        `json:"deaf" msgpack:"deaf"`
	Mute     bool        `json:"mute" msgpack:"mute"`
	JoinedAt time.Time   `json:"joined_at" msgpack:"joined_at"`
}

// VoiceState tracks a member's presence in a guild voice channel.
type VoiceState struct {
	GuildID   Snowflake  `json:"guild_id" msgpack:"guild_id"`
	UserID    Snowflake  `json:"user_id" msgpack:"user_id"`
	ChannelID *Snowflake `json:"channel_id,omitempty" msgpack:"channel_id,omitempty"`
	SessionID string     `json:"session_id" msgpack:"session_id"`
	SelfMute  bool       `json:"self_mute" msgpack:"self_mute"`
	SelfDeaf  bool       `json:"self_deaf" msgpack:"self_deaf"`
	Mute      bool       `json:"mute" msgpack:"mute"`
	Deaf      bool       `json:"deaf" msgpack:"deaf"`
}

// Message is a chat message posted to a channel. Persistence/validation
// bodies are a non-goal; this shape is what the bus payload and REST
// responses carry.
type Message struct {
	ID        Snowflake `json:"id" msgpack:"id"`
	ChannelID Snowflake `json:"channel_id" msgpack:"channel_id"`
	GuildID   *Snowflake `json:"guild_id,omitempty" msgpack:"guild_id,omitempty"`
	AuthorID  Snowflake `json:"author_id" msgpack:"author_id"`
	Content   string    `json:"content" msgpack:"content"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty" msgpack:"edited_at,omitempty"`
}

// Ban records a guild-level ban on a user.
type Ban struct {
	UserID    Snowflake `json:"user_id" msgpack:"user_id"`
	GuildID   Snowflake `json:"guild_id" msgpack:"guild_id"`
	Reason    string    `json:"reason,omitempty" msgpack:"reason,omitempty"`
	BannedBy  Snowflake `json:"banned_by" msgpack:"banned_by"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// ReadState tracks the last message a user has read in a channel.
type ReadState struct {
	UserID        Snowflake `json:"user_id" msgpack:"user_id"`
	ChannelID     Snowflake `json:"channel_id" msgpack:"channel_id"`
	LastMessageID Snowflake `json:"last_message_id" msgpack:"last_message_id"`
	MentionCount  int       `json:"mention_count" msgpack:"mention_count"`
}

// AuditLogEntry records a privileged action taken against a guild.
type AuditLogEntry struct {
	ID       Snowflake `json:"id" msgpack:"id"`
	GuildID  Snowflake `json:"guild_id" msgpack:"guild_id"`
	ActorID  Snowflake `json:"actor_id" msgpack:"actor_id"`
	Action   string    `json:"action" msgpack:"action"`
	TargetID Snowflake `json:"target_id,omitempty" msgpack:"target_id,omitempty"`
	Reason   string    `json:"reason,omitempty" msgpack:"reason,omitempty"`
	At       time.Time `json:"at" msgpack:"at"`
}
