// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Rating    RatingConfig    `mapstructure:"rating"`
	Connect   ConnectConfig   `mapstructure:"connect"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type        string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// AIConfig holds the embedding and text generation provider settings
type AIConfig struct {
	Enabled         bool   `mapstructure:"enabled"`         // Feature flag for the AI providers
	BaseURL         string `mapstructure:"base_url"`        // OpenAI-compatible API base URL
	Model           string `mapstructure:"model"`           // Chat model for answer generation
	EmbeddingModel  string `mapstructure:"embedding_model"` // Embedding model name
	APIKeyEnv       string `mapstructure:"api_key_env"`     // Environment variable holding the API key
	Dimensions      int    `mapstructure:"dimensions"`      // Embedding vector dimensions
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"` // HTTP timeout for provider calls
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
}

// ScoringConfig holds the importance scoring weights.
// The three sub-score weights must sum to 1.
type ScoringConfig struct {
	InfoWeight        float64 `mapstructure:"info_weight"`
	StructWeight      float64 `mapstructure:"struct_weight"`
	FuncWeight        float64 `mapstructure:"func_weight"`
	RootAnchorMinLen  int     `mapstructure:"root_anchor_min_len"`  // Minimum question length for the root anchor
	LengthDenominator float64 `mapstructure:"length_denominator"`   // Text length normalizer for the info sub-score
}

// RatingConfig holds the star rating percentile cutoffs
type RatingConfig struct {
	ColdStartSize int     `mapstructure:"cold_start_size"` // Below this population size, absolute thresholds apply
	P5            float64 `mapstructure:"p5"`              // Percentile cutoff for 5 stars
	P4            float64 `mapstructure:"p4"`
	P3            float64 `mapstructure:"p3"`
	P2            float64 `mapstructure:"p2"`
}

// ConnectConfig holds the edge classification tunables
type ConnectConfig struct {
	Window            int     `mapstructure:"window"`             // Look-back window in turns
	ReplyDecay        float64 `mapstructure:"reply_decay"`        // Short-range decay constant (direct reply signal)
	TopicDecay        float64 `mapstructure:"topic_decay"`        // Long-range decay constant (same topic signal)
	ExplicitThreshold float64 `mapstructure:"explicit_threshold"` // Minimum decayed reply score for an explicit edge
	ImplicitThreshold float64 `mapstructure:"implicit_threshold"` // Minimum decayed topic score for an implicit edge
	ExplicitLimit     int     `mapstructure:"explicit_limit"`     // Explicit edges per turn
	ImplicitLimit     int     `mapstructure:"implicit_limit"`     // Implicit edges per turn
}

// LayoutConfig holds the 3D placement tunables
type LayoutConfig struct {
	BaseRadius   float64 `mapstructure:"base_radius"`   // Base distance from the parent turn
	RadiusJitter float64 `mapstructure:"radius_jitter"` // Seeded variance applied to the base radius
}

// SnapshotConfig holds the graph snapshot export settings
type SnapshotConfig struct {
	Dir           string `mapstructure:"dir"`            // Snapshot repository path
	DefaultBranch string `mapstructure:"default_branch"` // Git branch snapshots are committed to
}

// SchedulerConfig holds the background reconciliation settings
type SchedulerConfig struct {
	Enabled                bool `mapstructure:"enabled"`
	RebuildIntervalMinutes int  `mapstructure:"rebuild_interval_minutes"`
}
