package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAppliedWhenFieldsOmitted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paracord.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
jwt_secret = "shh"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shh", cfg.JWTSecret)
	assert.Equal(t, int64(3600), cfg.JWTExpirySeconds)
	assert.True(t, cfg.RegistrationEnabled)
	assert.Equal(t, uint32(100), cfg.MaxGuildsPerUser)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadOverridesDefaultsAndParsesSubTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paracord.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
jwt_secret = "shh"
jwt_expiry_seconds = 60
registration_enabled = false

[redis]
address = "localhost:6379"
database = 2

[nats]
enabled = true
address = "nats://localhost:4222"
subject_prefix = "paracord"

[voice]
api_key = "k"
api_secret = "s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(60), cfg.JWTExpirySeconds)
	assert.False(t, cfg.RegistrationEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.Database)
	assert.True(t, cfg.Nats.Enabled)
	assert.Equal(t, "paracord", cfg.Nats.SubjectPrefix)
	assert.Equal(t, "k", cfg.Voice.APIKey)
	assert.Equal(t, time.Minute, cfg.JWTExpiry())
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestParseArgsDefaultsAndOverrides(t *testing.T) {
	args, err := ParseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "config/paracord.toml", args.ConfigPath)
	assert.Equal(t, "", args.WebDir)

	args, err = ParseArgs([]string{"--config", "/etc/paracord.toml", "--web-dir", "/srv/web"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/paracord.toml", args.ConfigPath)
	assert.Equal(t, "/srv/web", args.WebDir)
}
