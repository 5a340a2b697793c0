// Package config defines the typed configuration for the memory engine and
// loads it from defaults, a JSON file, and environment overrides.
package config

// Config is the top-level engine configuration (spec.md §6).
type Config struct {
	Memory    MemoryConfig    `koanf:"memory" mapstructure:"memory" validate:"required"`
	Recall    RecallConfig    `koanf:"recall" mapstructure:"recall" validate:"required"`
	Capture   CaptureConfig   `koanf:"capture" mapstructure:"capture" validate:"required"`
	Retention RetentionConfig `koanf:"retention" mapstructure:"retention" validate:"required"`
	WAL       WALConfig       `koanf:"wal" mapstructure:"wal" validate:"required"`
	Embedding EmbeddingConfig `koanf:"embedding" mapstructure:"embedding"`
}

// MemoryConfig is the master switch and backend selection.
type MemoryConfig struct {
	Enabled bool   `koanf:"enabled" mapstructure:"enabled"`
	DBPath  string `koanf:"dbpath" mapstructure:"dbpath" validate:"required"`
	Backend string `koanf:"backend" mapstructure:"backend" validate:"oneof=sqlite_fts reserved_hybrid"`
}

// RecallConfig bounds the retrieval pipeline's output.
type RecallConfig struct {
	MaxResults                 int `koanf:"maxresults" mapstructure:"maxresults" validate:"min=1"`
	MaxPromptChars              int `koanf:"maxpromptchars" mapstructure:"maxpromptchars" validate:"min=1"`
	UserPreferenceLayerResults int `koanf:"userpreferencelayerresults" mapstructure:"userpreferencelayerresults" validate:"min=0"`
}

// CaptureConfig gates the capture pipeline.
type CaptureConfig struct {
	Enabled           bool     `koanf:"enabled" mapstructure:"enabled"`
	Mode              string   `koanf:"mode" mapstructure:"mode" validate:"oneof=heuristic"`
	MinConfidence     float64  `koanf:"minconfidence" mapstructure:"minconfidence" validate:"min=0,max=1"`
	MinImportance     float64  `koanf:"minimportance" mapstructure:"minimportance" validate:"min=0,max=1"`
	Channels          []string `koanf:"channels" mapstructure:"channels"`
	CaptureAssistant  bool     `koanf:"captureassistant" mapstructure:"captureassistant"`
	MaxEntriesPerTurn int      `koanf:"maxentriesperturn" mapstructure:"maxentriesperturn" validate:"min=1"`
}

// RetentionConfig holds per-kind retention windows, in days.
type RetentionConfig struct {
	EpisodicDays   int `koanf:"episodicdays" mapstructure:"episodicdays" validate:"min=1"`
	FactDays       int `koanf:"factdays" mapstructure:"factdays" validate:"min=1"`
	PreferenceDays int `koanf:"preferencedays" mapstructure:"preferencedays" validate:"min=1"`
	DecisionDays   int `koanf:"decisiondays" mapstructure:"decisiondays" validate:"min=1"`
}

// WALConfig toggles and locates the per-session write-ahead markdown log.
type WALConfig struct {
	Enabled  bool   `koanf:"enabled" mapstructure:"enabled"`
	StateDir string `koanf:"statedir" mapstructure:"statedir" validate:"required"`
}

// EmbeddingConfig is reserved for a future hybrid lexical+vector backend.
type EmbeddingConfig struct {
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`
}

// Default returns the compiled-in configuration defaults (spec.md §6's
// Default column).
func Default() Config {
	return Config{
		Memory: MemoryConfig{
			Enabled: true,
			DBPath:  "~/.nanobot/memory/longterm.db",
			Backend: "sqlite_fts",
		},
		Recall: RecallConfig{
			MaxResults:                 8,
			MaxPromptChars:             2400,
			UserPreferenceLayerResults: 2,
		},
		Capture: CaptureConfig{
			Enabled:           true,
			Mode:              "heuristic",
			MinConfidence:     0.78,
			MinImportance:     0.6,
			Channels:          []string{"cli", "messenger"},
			CaptureAssistant:  false,
			MaxEntriesPerTurn: 4,
		},
		Retention: RetentionConfig{
			EpisodicDays:   90,
			FactDays:       3650,
			PreferenceDays: 3650,
			DecisionDays:   3650,
		},
		WAL: WALConfig{
			Enabled:  true,
			StateDir: "memory/session-state",
		},
		Embedding: EmbeddingConfig{
			Enabled: false,
		},
	}
}

// Days returns the configured retention window for a kind.
func (c RetentionConfig) Days(kind string) int {
	switch kind {
	case "episodic":
		return c.EpisodicDays
	case "fact":
		return c.FactDays
	case "preference":
		return c.PreferenceDays
	case "decision":
		return c.DecisionDays
	default:
		return c.FactDays
	}
}
