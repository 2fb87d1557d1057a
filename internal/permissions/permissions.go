// Package permissions implements the role-aggregation and channel-overwrite
// evaluator described in the server's specification §4.2. Every privileged
// REST call and every event-delivery decision consults this package.
//
// Bit layout is ported from the Rust original's bitflags block
// (paracord-models/src/permissions.rs) since spec.md only names
// ADMINISTRATOR explicitly and leaves the remaining bit positions implicit.
package permissions

import "github.com/paracordchat/paracord/internal/models"

// Permissions is a 64-bit permission bit-set.
type Permissions int64

// Named permission bits.
const (
	CreateInstantInvite Permissions = 1 << 0
	KickMembers         Permissions = 1 << 1
	BanMembers          Permissions = 1 << 2
	Administrator       Permissions = 1 << 3
	ManageChannels      Permissions = 1 << 4
	ManageGuild         Permissions = 1 << 5
	AddReactions        Permissions = 1 << 6
	ViewAuditLog        Permissions = 1 << 7
	PrioritySpeaker     Permissions = 1 << 8
	Stream              Permissions = 1 << 9
	ViewChannel         Permissions = 1 << 10
	SendMessages        Permissions = 1 << 11
	SendTTSMessages     Permissions = 1 << 12
	ManageMessages      Permissions = 1 << 13
	EmbedLinks          Permissions = 1 << 14
	AttachFiles         Permissions = 1 << 15
	ReadMessageHistory  Permissions = 1 << 16
	MentionEveryone     Permissions = 1 << 17
	UseExternalEmojis   Permissions = 1 << 18
	Connect             Permissions = 1 << 20
	Speak               Permissions = 1 << 21
	MuteMembers         Permissions = 1 << 22
	DeafenMembers       Permissions = 1 << 23
	MoveMembers         Permissions = 1 << 24
	UseVAD              Permissions = 1 << 25
	ChangeNickname      Permissions = 1 << 26
	ManageNicknames     Permissions = 1 << 27
	ManageRoles         Permissions = 1 << 28
	ManageWebhooks      Permissions = 1 << 29
	ManageEmojis        Permissions = 1 << 30

	// All has every defined bit set; short-circuit results (owner, or
	// ADMINISTRATOR present) return it verbatim.
	All Permissions = (1 << 31) - 1

	// none is the empty set.
	none Permissions = 0
)

// Defaults returns the permission set a freshly created `@everyone` role is
// seeded with, mirroring the Rust original's Default impl.
func Defaults() Permissions {
	return ViewChannel | SendMessages | ReadMessageHistory | AddReactions |
		Connect | Speak | Stream | UseVAD | ChangeNickname
}

// Has reports whether p contains every bit in required.
func (p Permissions) Has(required Permissions) bool {
	return p&required == required
}

// Mask truncates p to only the bits this package defines, rejecting
// unknown high bits on input per the server's specification design notes.
func Mask(raw int64) Permissions {
	return Permissions(raw) & (All | Administrator)
}

// ErrMissingPermission is returned by Require when perms lacks one or more
// bits in required.
type ErrMissingPermission struct {
	Required Permissions
	Have     Permissions
}

func (e *ErrMissingPermission) Error() string {
	return "missing permission"
}

// Require returns ErrMissingPermission if perms does not contain every bit
// in required, nil otherwise.
func Require(perms, required Permissions) error {
	if perms.Has(required) {
		return nil
	}
	return &ErrMissingPermission{Required: required, Have: perms}
}

// RoleSource supplies role data for guild-level computation: either a
// *models.Role or any type exposing ID/Permissions is adaptable via the
// RoleLike interface below.
type RoleLike interface {
	RoleID() models.Snowflake
	RolePermissions() Permissions
}

// role adapts a *models.Role to RoleLike.
type role struct{ r *models.Role }

func (r role) RoleID() models.Snowflake         { return r.r.ID }
func (r role) RolePermissions() Permissions     { return Permissions(r.r.Permissions) }

// FromModelRoles adapts a slice of *models.Role to []RoleLike.
func FromModelRoles(roles []*models.Role) []RoleLike {
	out := make([]RoleLike, len(roles))
	for i, r := range roles {
		out[i] = role{r}
	}
	return out
}

// ComputeGuildPerms computes the effective guild-level permission set for
// a member, following spec §4.2's five-step guild-level algorithm:
//  1. owner short-circuits to All.
//  2. start from @everyone (role ID == guildID).
//  3. union every role in memberRoleIDs.
//  4. ADMINISTRATOR anywhere in the accumulation short-circuits to All.
//  5. otherwise return the accumulated set.
func ComputeGuildPerms(roles []RoleLike, guildID, ownerID, userID models.Snowflake, memberRoleIDs []models.Snowflake) Permissions {
	if userID == ownerID {
		return All
	}

	memberRoles := make(map[models.Snowflake]struct{}, len(memberRoleIDs))
	for _, id := range memberRoleIDs {
		memberRoles[id] = struct{}{}
	}

	var perms Permissions
	for _, r := range roles {
		if r.RoleID() == guildID {
			// @everyone always applies.
			perms |= r.RolePermissions()
			continue
		}
		if _, ok := memberRoles[r.RoleID()]; ok {
			perms |= r.RolePermissions()
		}
	}

	if perms.Has(Administrator) {
		return All
	}

	return perms
}

// OverwriteLike is the minimal shape ComputeChannelPerms needs from a
// channel overwrite row.
type OverwriteLike struct {
	TargetID   models.Snowflake
	TargetType models.OverwriteTargetType
	Allow      Permissions
	Deny       Permissions
}

// ComputeChannelPerms extends guild-level permissions with channel
// overwrites, following spec §4.2's channel-level algorithm:
//  1. if guildPerms has ADMINISTRATOR, return All immediately.
//  2. apply the @everyone channel overwrite.
//  3. union role overwrites for the member's roles, apply as one step.
//  4. apply the member-specific overwrite last (highest precedence).
//
// Role overwrites are combined as a union (order-independent); the member
// overwrite always wins over role overwrites and never grants
// ADMINISTRATOR: that bit is dropped from its allow mask (the guild-level
// short-circuit above is the only way to reach All).
func ComputeChannelPerms(guildPerms Permissions, guildID models.Snowflake, overwrites []OverwriteLike, memberRoleIDs []models.Snowflake, userID models.Snowflake) Permissions {
	if guildPerms.Has(Administrator) {
		return All
	}

	perms := guildPerms

	memberRoleSet := make(map[models.Snowflake]struct{}, len(memberRoleIDs))
	for _, id := range memberRoleIDs {
		memberRoleSet[id] = struct{}{}
	}

	var roleAllow, roleDeny Permissions
	var everyoneOW, memberOW *OverwriteLike

	for i := range overwrites {
		ow := overwrites[i]
		switch ow.TargetType {
		case models.OverwriteTargetRole:
			if ow.TargetID == guildID {
				o := ow
				everyoneOW = &o
				continue
			}
			if _, ok := memberRoleSet[ow.TargetID]; ok {
				roleAllow |= ow.Allow
				roleDeny |= ow.Deny
			}
		case models.OverwriteTargetMember:
			if ow.TargetID == userID {
				o := ow
				memberOW = &o
			}
		}
	}

	if everyoneOW != nil {
		perms = (perms &^ everyoneOW.Deny) | everyoneOW.Allow
	}

	perms = (perms &^ roleDeny) | roleAllow

	if memberOW != nil {
		perms = (perms &^ memberOW.Deny) | (memberOW.Allow &^ Administrator)
	}

	return perms
}
