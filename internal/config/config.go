// Package config parses the server's configuration file and CLI flags,
// following the same "load a struct once at startup, override with flags"
// approach the teacher's main.go uses, but reading TOML instead of
// hand-rolled flag defaults: this project's config carries secrets and
// provider credentials a single-binary CLI shouldn't require retyping
// every run.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Redis holds connection details for the rate-limit counter store, named the way the teacher's Configuration.Redis sub-struct
// is (gateway/manager.go).
type Redis struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	Database int    `toml:"database"`
	Prefix   string `toml:"prefix"`
}

// Nats holds connection details for the optional cross-process event bus
// bridge, named the way the teacher's Configuration.Nats sub-struct is.
type Nats struct {
	Address       string `toml:"address"`
	SubjectPrefix string `toml:"subject_prefix"`
	Enabled       bool   `toml:"enabled"`
}

// Voice holds the credentials the media façade uses when issuing tokens
// to the external voice-media provider. Field names are lifted from
// original_source's AppConfig (livekit_*), since spec.md only says
// "voice-provider credentials" without naming fields.
type Voice struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	URL       string `toml:"url"`
	HTTPURL   string `toml:"http_url"`
	PublicURL string `toml:"public_url"`
}

// Storage holds the media/storage façade's limits and paths.
type Storage struct {
	MediaPath       string `toml:"media_path"`
	MaxUploadBytes  int64  `toml:"max_upload_bytes"`
	P2PThresholdB   int64  `toml:"p2p_threshold_bytes"`
}

// Config is the full parsed configuration file.
type Config struct {
	PublicURL string `toml:"public_url"`

	JWTSecret        string `toml:"jwt_secret"`
	JWTExpirySeconds int64  `toml:"jwt_expiry_seconds"`

	RegistrationEnabled bool   `toml:"registration_enabled"`
	ServerName          string `toml:"server_name"`
	ServerDescription   string `toml:"server_description"`
	MaxGuildsPerUser    uint32 `toml:"max_guilds_per_user"`
	MaxMembersPerGuild  uint32 `toml:"max_members_per_guild"`

	DatabaseURL       string `toml:"database_url"`
	DatabaseMaxConns  uint32 `toml:"database_max_conns"`

	WorkerID uint16 `toml:"worker_id"`
	ListenAddr string `toml:"listen_addr"`
	WebDir     string `toml:"web_dir"`

	Redis Redis `toml:"redis"`
	Nats  Nats  `toml:"nats"`
	Voice Voice `toml:"voice"`
	Storage Storage `toml:"storage"`
}

// JWTExpiry returns JWTExpirySeconds as a time.Duration.
func (c Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpirySeconds) * time.Second
}

// Default returns a Config with the same defaults the Rust original's
// RuntimeSettings::default() uses, adapted to the full config surface.
func Default() Config {
	return Config{
		JWTExpirySeconds:    3600,
		RegistrationEnabled: true,
		ServerName:          "Paracord Server",
		MaxGuildsPerUser:    100,
		MaxMembersPerGuild:  1000,
		DatabaseMaxConns:    10,
		ListenAddr:          ":8080",
		WorkerID:            0,
	}
}

// Args is the CLI surface: --config <path> and --web-dir <path>, matching
// original_source/crates/paracord-server/src/cli.rs exactly.
type Args struct {
	ConfigPath string
	WebDir     string
}

// ParseArgs parses the process's command-line flags the way the teacher's
// main.go uses the standard library flag package.
func ParseArgs(arguments []string) (Args, error) {
	fs := flag.NewFlagSet("paracord-server", flag.ContinueOnError)
	configPath := fs.String("config", "config/paracord.toml", "path to configuration file")
	webDir := fs.String("web-dir", "", "path to directory containing built web UI files (overrides config)")

	if err := fs.Parse(arguments); err != nil {
		return Args{}, err
	}

	return Args{ConfigPath: *configPath, WebDir: *webDir}, nil
}

// Load reads and parses the TOML configuration file at path, applying
// Default() first so unset fields retain sane defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, fmt.Errorf("config: %s not found: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	return cfg, nil
}
