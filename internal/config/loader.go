package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every env override, e.g.
// MYTHWEAVER_BUDGET_MAX_TOKENS_PER_TURN.
const envPrefix = "MYTHWEAVER_"

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// overrides and defaults, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	b := cfg.Budget
	if b.MaxTokensPerTurn <= 0 {
		errs = append(errs, fmt.Errorf("budget.max_tokens_per_turn %d must be positive", b.MaxTokensPerTurn))
	}
	if b.TokenBuffer < 0 {
		errs = append(errs, fmt.Errorf("budget.token_buffer %d must not be negative", b.TokenBuffer))
	}
	if b.TokenBuffer >= b.MaxTokensPerTurn && b.MaxTokensPerTurn > 0 {
		errs = append(errs, fmt.Errorf("budget.token_buffer %d leaves no room under max_tokens_per_turn %d", b.TokenBuffer, b.MaxTokensPerTurn))
	}
	if b.CharsPerTokenRatio < 0.5 || b.CharsPerTokenRatio > 4 {
		errs = append(errs, fmt.Errorf("budget.chars_per_token_ratio %.2f is out of range [0.5, 4]", b.CharsPerTokenRatio))
	}

	weights := []struct {
		name string
		v    float64
	}{
		{"critical_weight", b.CriticalWeight},
		{"important_weight", b.ImportantWeight},
		{"contextual_weight", b.ContextualWeight},
		{"supplemental_weight", b.SupplementalWeight},
	}
	sum := 0.0
	allZero := true
	for _, w := range weights {
		if w.v < 0 || w.v > 1 {
			errs = append(errs, fmt.Errorf("budget.%s %.2f is out of range [0, 1]", w.name, w.v))
		}
		if w.v != 0 {
			allZero = false
		}
		sum += w.v
	}
	if !allZero && math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Errorf("budget section weights sum to %.3f, want 1", sum))
	}

	if b.HighScoreThreshold < 0 || b.HighScoreThreshold > 100 {
		errs = append(errs, fmt.Errorf("budget.high_score_threshold %d is out of range [0, 100]", b.HighScoreThreshold))
	}

	if cfg.Compact.ArenaSize < 0 {
		errs = append(errs, fmt.Errorf("compact.arena_size %d must not be negative", cfg.Compact.ArenaSize))
	}
	if cfg.Compact.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("compact.max_tokens %d must not be negative", cfg.Compact.MaxTokens))
	}
	if cfg.Lore.MaxActivationsPerTurn < 0 {
		errs = append(errs, fmt.Errorf("lore.max_activations_per_turn %d must not be negative", cfg.Lore.MaxActivationsPerTurn))
	}

	if cfg.Compact.Enabled && cfg.Storage.PostgresDSN == "" {
		slog.Warn("compact mode enabled without storage.postgres_dsn; reference IDs will not survive restarts")
	}

	return errors.Join(errs...)
}
