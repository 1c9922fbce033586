// Package config provides the configuration schema, loader, and file
// watcher for the mythweaver prompt engine.
package config

import (
	"log/slog"

	"github.com/ntbao/mythweaver/internal/budget"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to the corresponding [slog.Level]. Unset or invalid
// levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file via [Load]; environment variables with the MYTHWEAVER_ prefix
// override individual fields after decoding.
type Config struct {
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Budget  BudgetConfig  `yaml:"budget" envPrefix:"BUDGET_"`
	Compact CompactConfig `yaml:"compact" envPrefix:"COMPACT_"`
	Lore    LoreConfig    `yaml:"lore" envPrefix:"LORE_"`
	Prompt  PromptConfig  `yaml:"prompt" envPrefix:"PROMPT_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level" env:"LOG_LEVEL"`

	// MetricsAddr, when set, exposes the Prometheus endpoint on this
	// address (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// BudgetConfig holds token accounting settings.
type BudgetConfig struct {
	// MaxTokensPerTurn is the total model context the engine may fill.
	MaxTokensPerTurn int `yaml:"max_tokens_per_turn" env:"MAX_TOKENS_PER_TURN"`

	// TokenBuffer is reserved headroom subtracted before allocation.
	TokenBuffer int `yaml:"token_buffer" env:"TOKEN_BUFFER"`

	// CharsPerTokenRatio converts character counts to token estimates.
	CharsPerTokenRatio float64 `yaml:"chars_per_token_ratio" env:"CHARS_PER_TOKEN_RATIO"`

	// Section weights. When all four are zero the engine defaults apply.
	CriticalWeight     float64 `yaml:"critical_weight" env:"CRITICAL_WEIGHT"`
	ImportantWeight    float64 `yaml:"important_weight" env:"IMPORTANT_WEIGHT"`
	ContextualWeight   float64 `yaml:"contextual_weight" env:"CONTEXTUAL_WEIGHT"`
	SupplementalWeight float64 `yaml:"supplemental_weight" env:"SUPPLEMENTAL_WEIGHT"`

	// HighScoreThreshold and HighScoreCount tune the entity-pressure
	// weight shift.
	HighScoreThreshold int `yaml:"high_score_threshold" env:"HIGH_SCORE_THRESHOLD"`
	HighScoreCount     int `yaml:"high_score_count" env:"HIGH_SCORE_COUNT"`
}

// AllocatorConfig maps the budget settings onto a [budget.Config].
func (b BudgetConfig) AllocatorConfig() budget.Config {
	return budget.Config{
		MaxTokens:          b.MaxTokensPerTurn,
		Buffer:             b.TokenBuffer,
		CriticalWeight:     b.CriticalWeight,
		ImportantWeight:    b.ImportantWeight,
		ContextualWeight:   b.ContextualWeight,
		SupplementalWeight: b.SupplementalWeight,
		HighScoreThreshold: b.HighScoreThreshold,
		HighScoreCount:     b.HighScoreCount,
	}
}

// CompactConfig holds reference-compression settings.
type CompactConfig struct {
	// Enabled switches the compact representation on.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// ArenaSize caps resident session registries before LRU eviction.
	ArenaSize int `yaml:"arena_size" env:"ARENA_SIZE"`

	// MaxTokens is the sub-ceiling for the compact block; items past it are
	// dropped lowest-priority first. Zero means unbounded.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// LoreConfig holds world-knowledge activation settings.
type LoreConfig struct {
	// MaxActivationsPerTurn caps how often one rule fires per turn.
	MaxActivationsPerTurn int `yaml:"max_activations_per_turn" env:"MAX_ACTIVATIONS_PER_TURN"`
}

// PromptConfig holds prompt framing toggles.
type PromptConfig struct {
	// StructuredReasoning appends the step-by-step reasoning scaffold.
	StructuredReasoning bool `yaml:"structured_reasoning" env:"STRUCTURED_REASONING"`

	// MatureContent appends the mature-content framing block.
	MatureContent bool `yaml:"mature_content" env:"MATURE_CONTENT"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// PostgresDSN, when set, enables the durable reference store. Empty
	// keeps references in memory only.
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
}

// Defaults applied by the loader when the file leaves them unset.
const (
	DefaultMaxTokensPerTurn = 90000
	DefaultTokenBuffer      = 10000
)

func applyDefaults(cfg *Config) {
	if cfg.Budget.MaxTokensPerTurn == 0 {
		cfg.Budget.MaxTokensPerTurn = DefaultMaxTokensPerTurn
	}
	if cfg.Budget.TokenBuffer == 0 {
		cfg.Budget.TokenBuffer = DefaultTokenBuffer
	}
	if cfg.Budget.CharsPerTokenRatio == 0 {
		cfg.Budget.CharsPerTokenRatio = 1.2
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Compact.ArenaSize == 0 {
		cfg.Compact.ArenaSize = 256
	}
	if cfg.Lore.MaxActivationsPerTurn == 0 {
		cfg.Lore.MaxActivationsPerTurn = 1
	}
}
