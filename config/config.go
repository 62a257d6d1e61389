package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the bot's configuration settings.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
}

// DiscordConfig holds the Discord gateway configuration.
type DiscordConfig struct {
	Token string `yaml:"token"`
	// GuildID scopes command registration to one guild. Empty registers
	// commands globally, which Discord propagates slowly.
	GuildID string `yaml:"guild_id"`
	// AnnounceRate caps announcement edits per second to stay under the
	// Discord API rate limit.
	AnnounceRate float64 `yaml:"announce_rate"`
}

// DatabaseConfig holds the SQLite configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds the health/metrics/API listener configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SweeperConfig holds the expired-session sweeper configuration.
type SweeperConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LoadConfig loads configuration from a YAML file, falling back to
// environment variables when the file is absent. Env vars override file
// values either way.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL value: %w", err)
		}
		cfg.Sweeper.Interval = d
	}

	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("discord token not set; use the config file or DISCORD_TOKEN")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "stackbot.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
	if cfg.Discord.AnnounceRate <= 0 {
		cfg.Discord.AnnounceRate = 2
	}

	return &cfg, nil
}
