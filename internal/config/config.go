// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".sidera/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
)

// Load reads configuration from ~/.sidera/configs/config.json
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configPath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return loadFromDefaults(v)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite_path", filepath.Join(homeDir, ".sidera/db/sidera.db"))

	// AI provider defaults
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("ai.dimensions", 1536)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.max_output_tokens", 1000)

	// Importance scoring defaults
	v.SetDefault("scoring.info_weight", 0.5)
	v.SetDefault("scoring.struct_weight", 0.3)
	v.SetDefault("scoring.func_weight", 0.2)
	v.SetDefault("scoring.root_anchor_min_len", 5)
	v.SetDefault("scoring.length_denominator", 500.0)

	// Star rating defaults
	v.SetDefault("rating.cold_start_size", 10)
	v.SetDefault("rating.p5", 0.90)
	v.SetDefault("rating.p4", 0.80)
	v.SetDefault("rating.p3", 0.50)
	v.SetDefault("rating.p2", 0.20)

	// Edge classification defaults
	v.SetDefault("connect.window", 50)
	v.SetDefault("connect.reply_decay", 20.0)
	v.SetDefault("connect.topic_decay", 50.0)
	v.SetDefault("connect.explicit_threshold", 0.70)
	v.SetDefault("connect.implicit_threshold", 0.45)
	v.SetDefault("connect.explicit_limit", 1)
	v.SetDefault("connect.implicit_limit", 2)

	// Layout defaults
	v.SetDefault("layout.base_radius", 8.0)
	v.SetDefault("layout.radius_jitter", 2.0)

	// Snapshot defaults
	v.SetDefault("snapshot.dir", filepath.Join(homeDir, ".sidera/snapshots"))
	v.SetDefault("snapshot.default_branch", "main")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.rebuild_interval_minutes", 60)
}

// loadFromDefaults creates a config from default values
func loadFromDefaults(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	// Validate database type
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be 'sqlite' or 'postgres', got '%s'", cfg.Database.Type)
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
	}
	if cfg.Database.Type == "postgres" && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
	}

	// Scoring weights must form a convex combination
	weightSum := cfg.Scoring.InfoWeight + cfg.Scoring.StructWeight + cfg.Scoring.FuncWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %.3f", weightSum)
	}

	// Percentile cutoffs must be strictly ordered
	if !(cfg.Rating.P5 > cfg.Rating.P4 && cfg.Rating.P4 > cfg.Rating.P3 && cfg.Rating.P3 > cfg.Rating.P2) {
		return fmt.Errorf("rating percentiles must satisfy p5 > p4 > p3 > p2")
	}
	if cfg.Rating.P5 >= 1 || cfg.Rating.P2 <= 0 {
		return fmt.Errorf("rating percentiles must be in (0, 1)")
	}
	if cfg.Rating.ColdStartSize < 1 {
		return fmt.Errorf("rating.cold_start_size must be at least 1, got %d", cfg.Rating.ColdStartSize)
	}

	// Edge classification bounds
	if cfg.Connect.Window < 1 {
		return fmt.Errorf("connect.window must be at least 1, got %d", cfg.Connect.Window)
	}
	if cfg.Connect.ReplyDecay <= 0 || cfg.Connect.TopicDecay <= 0 {
		return fmt.Errorf("connect decay constants must be positive")
	}
	if cfg.Connect.ExplicitLimit < 0 || cfg.Connect.ImplicitLimit < 0 {
		return fmt.Errorf("connect edge limits must not be negative")
	}

	if cfg.Layout.BaseRadius <= 0 {
		return fmt.Errorf("layout.base_radius must be positive, got %f", cfg.Layout.BaseRadius)
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.RebuildIntervalMinutes < 1 {
		return fmt.Errorf("scheduler.rebuild_interval_minutes must be at least 1, got %d", cfg.Scheduler.RebuildIntervalMinutes)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Database: DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(homeDir, ".sidera/db/sidera.db"),
		},
		AI: AIConfig{
			Enabled:         false,
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
			APIKeyEnv:       "OPENAI_API_KEY",
			Dimensions:      1536,
			TimeoutSeconds:  30,
			MaxOutputTokens: 1000,
		},
		Scoring: ScoringConfig{
			InfoWeight:        0.5,
			StructWeight:      0.3,
			FuncWeight:        0.2,
			RootAnchorMinLen:  5,
			LengthDenominator: 500.0,
		},
		Rating: RatingConfig{
			ColdStartSize: 10,
			P5:            0.90,
			P4:            0.80,
			P3:            0.50,
			P2:            0.20,
		},
		Connect: ConnectConfig{
			Window:            50,
			ReplyDecay:        20.0,
			TopicDecay:        50.0,
			ExplicitThreshold: 0.70,
			ImplicitThreshold: 0.45,
			ExplicitLimit:     1,
			ImplicitLimit:     2,
		},
		Layout: LayoutConfig{
			BaseRadius:   8.0,
			RadiusJitter: 2.0,
		},
		Snapshot: SnapshotConfig{
			Dir:           filepath.Join(homeDir, ".sidera/snapshots"),
			DefaultBranch: "main",
		},
		Scheduler: SchedulerConfig{
			Enabled:                false,
			RebuildIntervalMinutes: 60,
		},
	}
}
