package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paracordchat/paracord/internal/models"
)

func TestUserCreateGetUpdateByUsername(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u, err := m.CreateUser(ctx, models.User{ID: 1, Username: "ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)

	got, err := m.GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ID)

	u.Username = "ada2"
	require.NoError(t, m.UpdateUser(ctx, u))
	_, err = m.GetUserByUsername(ctx, "ada2")
	require.NoError(t, err)

	_, err = m.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBanUpsertOverwritesReason(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateBan(ctx, models.Ban{UserID: 1, GuildID: 2, Reason: "spam"})
	require.NoError(t, err)

	_, err = m.CreateBan(ctx, models.Ban{UserID: 1, GuildID: 2, Reason: "updated reason"})
	require.NoError(t, err)

	b, err := m.GetBan(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "updated reason", b.Reason)
}

func TestReadStateResetsMentionCountOnUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rs, err := m.UpdateReadState(ctx, 1, 10, 500)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rs.MentionCount)
	assert.EqualValues(t, 500, rs.LastMessageID)
}

func TestMembershipsForIndexReflectsAddRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.AddMember(ctx, models.Member{GuildID: 1, UserID: 10}))
	require.NoError(t, m.AddMember(ctx, models.Member{GuildID: 1, UserID: 11}))

	rows, err := m.MembershipsForIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, m.RemoveMember(ctx, 1, 10))
	rows, err = m.MembershipsForIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestChannelOverwriteSetAndRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetChannelOverwrite(ctx, models.ChannelOverwrite{ChannelID: 1, TargetID: 2, Allow: 4}))
	ows, err := m.OverwritesByChannel(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ows, 1)

	require.NoError(t, m.RemoveChannelOverwrite(ctx, 1, 2))
	ows, err = m.OverwritesByChannel(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ows, 0)
}

func TestSettingsGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SetSetting(ctx, "server_name", "Test Server"))
	v, ok, err := m.GetSetting(ctx, "server_name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Test Server", v)
}
