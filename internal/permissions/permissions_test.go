package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paracordchat/paracord/internal/models"
)

func roleLikes(rs ...RoleLike) []RoleLike { return rs }

type fakeRole struct {
	id    models.Snowflake
	perms Permissions
}

func (f fakeRole) RoleID() models.Snowflake     { return f.id }
func (f fakeRole) RolePermissions() Permissions { return f.perms }

func TestOwnerAlwaysAll(t *testing.T) {
	guildID := models.Snowflake(1)
	ownerID := models.Snowflake(42)

	perms := ComputeGuildPerms(nil, guildID, ownerID, ownerID, nil)
	assert.Equal(t, All, perms)
}

func TestEveryoneRoleAlwaysApplies(t *testing.T) {
	guildID := models.Snowflake(1)
	roles := roleLikes(
		fakeRole{id: guildID, perms: SendMessages},
		fakeRole{id: 99, perms: ManageGuild},
	)

	perms := ComputeGuildPerms(roles, guildID, 2, 3, nil)
	assert.True(t, perms.Has(SendMessages))
	assert.False(t, perms.Has(ManageGuild))
}

func TestMemberRolesUnion(t *testing.T) {
	guildID := models.Snowflake(1)
	roles := roleLikes(
		fakeRole{id: guildID, perms: SendMessages},
		fakeRole{id: 10, perms: ManageGuild},
		fakeRole{id: 11, perms: KickMembers},
	)

	perms := ComputeGuildPerms(roles, guildID, 2, 3, []models.Snowflake{10})
	assert.True(t, perms.Has(SendMessages))
	assert.True(t, perms.Has(ManageGuild))
	assert.False(t, perms.Has(KickMembers))
}

func TestAdministratorShortCircuitsGuildLevel(t *testing.T) {
	guildID := models.Snowflake(1)
	roles := roleLikes(
		fakeRole{id: guildID, perms: SendMessages},
		fakeRole{id: 10, perms: Administrator},
	)

	perms := ComputeGuildPerms(roles, guildID, 2, 3, []models.Snowflake{10})
	assert.Equal(t, All, perms)
}

func TestAdministratorAlwaysYieldsAllAtChannelLevel(t *testing.T) {
	guildID := models.Snowflake(1)
	overwrites := []OverwriteLike{
		{TargetID: guildID, TargetType: models.OverwriteTargetRole, Deny: SendMessages},
		{TargetID: 7, TargetType: models.OverwriteTargetMember, Deny: ViewChannel},
	}

	perms := ComputeChannelPerms(All, guildID, overwrites, nil, 7)
	assert.Equal(t, All, perms)
}

// TestChannelOverwritePrecedence implements scenario 5 from the
// specification's testable properties: a guild grant via @everyone, a
// role-level deny, and a member-level allow that must win.
func TestChannelOverwritePrecedence(t *testing.T) {
	guildID := models.Snowflake(1)
	roleID := models.Snowflake(55)
	userID := models.Snowflake(7)

	guildPerms := SendMessages | ViewChannel

	overwrites := []OverwriteLike{
		{TargetID: roleID, TargetType: models.OverwriteTargetRole, Deny: SendMessages},
		{TargetID: userID, TargetType: models.OverwriteTargetMember, Allow: SendMessages},
	}

	perms := ComputeChannelPerms(guildPerms, guildID, overwrites, []models.Snowflake{roleID}, userID)
	assert.True(t, perms.Has(SendMessages), "member overwrite must win over role overwrite")
}

func TestRoleOverwritesCombineAsUnionOrderIndependent(t *testing.T) {
	guildID := models.Snowflake(1)
	guildPerms := Permissions(0)

	overwrites := []OverwriteLike{
		{TargetID: 10, TargetType: models.OverwriteTargetRole, Allow: SendMessages},
		{TargetID: 11, TargetType: models.OverwriteTargetRole, Allow: ViewChannel},
	}

	permsA := ComputeChannelPerms(guildPerms, guildID, overwrites, []models.Snowflake{10, 11}, 999)

	reversed := []OverwriteLike{overwrites[1], overwrites[0]}
	permsB := ComputeChannelPerms(guildPerms, guildID, reversed, []models.Snowflake{11, 10}, 999)

	assert.Equal(t, permsA, permsB)
	assert.True(t, permsA.Has(SendMessages))
	assert.True(t, permsA.Has(ViewChannel))
}

func TestMemberOverwriteNeverGrantsAdministrator(t *testing.T) {
	guildID := models.Snowflake(1)
	userID := models.Snowflake(7)
	guildPerms := SendMessages

	overwrites := []OverwriteLike{
		{TargetID: userID, TargetType: models.OverwriteTargetMember, Allow: Administrator},
	}

	perms := ComputeChannelPerms(guildPerms, guildID, overwrites, nil, userID)
	assert.NotEqual(t, All, perms)
	assert.False(t, perms.Has(Administrator), "a member overwrite must not grant the ADMINISTRATOR bit")
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(SendMessages|ViewChannel, SendMessages))
	err := Require(ViewChannel, SendMessages)
	assert.Error(t, err)
	var mp *ErrMissingPermission
	assert.ErrorAs(t, err, &mp)
}

func TestMaskRejectsUnknownHighBits(t *testing.T) {
	raw := int64(1<<40) | int64(SendMessages)
	masked := Mask(raw)
	assert.True(t, masked.Has(SendMessages))
	assert.Equal(t, Permissions(SendMessages), masked)
}
