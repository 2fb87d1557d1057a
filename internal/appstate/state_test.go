package appstate

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paracordchat/paracord/internal/config"
	"github.com/paracordchat/paracord/internal/eventbus"
	"github.com/paracordchat/paracord/internal/media"
	"github.com/paracordchat/paracord/internal/memberindex"
	"github.com/paracordchat/paracord/internal/snowflake"
	"github.com/paracordchat/paracord/internal/store"
)

func testState(t *testing.T) *State {
	t.Helper()
	cfg := config.Default()
	cfg.ServerName = "Test"
	return New(cfg, zerolog.Nop(), store.NewMemory(), eventbus.New(zerolog.Nop()), memberindex.New(), snowflake.NewGenerator(1), media.New(cfg.Voice))
}

func TestSettingsSeededFromConfig(t *testing.T) {
	s := testState(t)
	assert.Equal(t, "Test", s.Settings().ServerName)
	assert.True(t, s.Settings().RegistrationEnabled)
}

func TestUpdateSettingsIsAtomicUnderMutate(t *testing.T) {
	s := testState(t)

	updated := s.UpdateSettings(func(rs *RuntimeSettings) {
		rs.RegistrationEnabled = false
		rs.ServerName = "Renamed"
	})

	assert.False(t, updated.RegistrationEnabled)
	assert.Equal(t, "Renamed", s.Settings().ServerName)
}

func TestShutdownCancelsContext(t *testing.T) {
	s := testState(t)
	require.NoError(t, s.Context().Err())

	s.Shutdown()
	assert.Error(t, s.Context().Err())
}
