// Package config loads the bridge's configuration: a JSON file in the host
// plugin's convention, with environment variable overrides on top.
// Configuration faults are fatal; the process does not start without a
// valid config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Storage backend selectors.
const (
	StorageHost   = "host"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config shapes the relay's behavior. Field names on the JSON side keep the
// original plugin's kebab-case keys so existing config files keep working.
type Config struct {
	// Token authenticates against the chat service.
	Token string `json:"token" env:"ODL_TOKEN"`

	// ChannelID is the chat channel messages are relayed to and from.
	ChannelID string `json:"channel-id" env:"ODL_CHANNEL_ID"`

	// ChannelNameOnlineFormat, when non-empty, renames the channel on
	// join/leave with $n bound to the online count.
	ChannelNameOnlineFormat string `json:"channel-name-online-format" env:"ODL_CHANNEL_NAME_ONLINE_FORMAT"`

	// DiscordPrefix introduces chat-side commands.
	DiscordPrefix string `json:"discord-prefix" env:"ODL_DISCORD_PREFIX"`

	// Message templates, rendered with $role/$user/$message/$color/$map.
	GameMessageFormat    string `json:"game-message-format" env:"ODL_GAME_MESSAGE_FORMAT"`
	DiscordMessageFormat string `json:"discord-message-format" env:"ODL_DISCORD_MESSAGE_FORMAT"`
	JoinMessageFormat    string `json:"join-message-format" env:"ODL_JOIN_MESSAGE_FORMAT"`
	LeaveMessageFormat   string `json:"leave-message-format" env:"ODL_LEAVE_MESSAGE_FORMAT"`
	ServerStartFormat    string `json:"server-start-format" env:"ODL_SERVER_START_FORMAT"`

	// Role priority lists, entries of the form "name:tag".
	GameRoles    []string `json:"game-roles" env:"ODL_GAME_ROLES"`
	DiscordRoles []string `json:"discord-roles" env:"ODL_DISCORD_ROLES"`

	// Verification toggles the chat-side verify command entirely.
	Verification bool `json:"verification" env:"ODL_VERIFICATION"`

	// VerifiedRole, when non-empty, is granted on successful verification.
	VerifiedRole string `json:"verified-role" env:"ODL_VERIFIED_ROLE"`

	// VerifiedNickname syncs the chat nickname to the player name on
	// verification.
	VerifiedNickname bool `json:"verified-nickname" env:"ODL_VERIFIED_NICKNAME"`

	// Storage selects the link store backend: host, memory, or redis.
	Storage string `json:"storage" env:"ODL_STORAGE"`

	// RedisURL configures the redis backend.
	RedisURL string `json:"redis-url" env:"ODL_REDIS_URL"`

	// StatusAddr, when non-empty, serves the health/status endpoint.
	StatusAddr string `json:"status-addr" env:"ODL_STATUS_ADDR"`
}

// Default returns a Config with default values. Token and ChannelID have no
// defaults and must come from the file or the environment.
func Default() *Config {
	return &Config{
		DiscordPrefix:        "!",
		GameMessageFormat:    `<color="$color">[Discord]</> $role<b>$user</>: $message`,
		DiscordMessageFormat: "$role **$user**: $message",
		JoinMessageFormat:    "$role **$user** joined the game.",
		LeaveMessageFormat:   "$role **$user** left the game.",
		ServerStartFormat:    "Server started on map **$map**.",
		Verification:         true,
		Storage:              StorageHost,
	}
}

// Load reads the config file at path, applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the settings without which the bridge cannot run.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("config: token is required")
	}
	if c.ChannelID == "" {
		return errors.New("config: channel-id is required")
	}
	if c.DiscordPrefix == "" {
		return errors.New("config: discord-prefix must not be empty")
	}
	switch c.Storage {
	case StorageHost, StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("config: redis-url is required when storage is redis")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage)
	}
	return nil
}
