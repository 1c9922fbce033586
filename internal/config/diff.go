package config

import "fmt"

// ConfigDiff describes what changed between two configs. All tracked fields
// are safe to hot-reload without restarting the process.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// BudgetChanged is set when any token accounting field changed; the
	// engine rebuilds its allocator and estimator in response.
	BudgetChanged bool

	// CompactToggled is set when compact mode was switched on or off.
	CompactToggled bool

	// PromptChanged is set when a prompt framing toggle flipped.
	PromptChanged bool

	// Changes lists every changed field in "path: old -> new" form for
	// logging.
	Changes []string
}

// Empty reports whether the diff carries no change at all.
func (d ConfigDiff) Empty() bool { return len(d.Changes) == 0 }

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}
	note := func(path string, oldV, newV any) {
		d.Changes = append(d.Changes, fmt.Sprintf("%s: %v -> %v", path, oldV, newV))
	}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
		note("server.log_level", old.Server.LogLevel, new.Server.LogLevel)
	}

	if old.Budget != new.Budget {
		d.BudgetChanged = true
		ob, nb := old.Budget, new.Budget
		if ob.MaxTokensPerTurn != nb.MaxTokensPerTurn {
			note("budget.max_tokens_per_turn", ob.MaxTokensPerTurn, nb.MaxTokensPerTurn)
		}
		if ob.TokenBuffer != nb.TokenBuffer {
			note("budget.token_buffer", ob.TokenBuffer, nb.TokenBuffer)
		}
		if ob.CharsPerTokenRatio != nb.CharsPerTokenRatio {
			note("budget.chars_per_token_ratio", ob.CharsPerTokenRatio, nb.CharsPerTokenRatio)
		}
		if weightsOf(ob) != weightsOf(nb) {
			note("budget.section_weights", weightsOf(ob), weightsOf(nb))
		}
		if ob.HighScoreThreshold != nb.HighScoreThreshold || ob.HighScoreCount != nb.HighScoreCount {
			note("budget.high_score_shift",
				fmt.Sprintf("%d/%d", ob.HighScoreThreshold, ob.HighScoreCount),
				fmt.Sprintf("%d/%d", nb.HighScoreThreshold, nb.HighScoreCount))
		}
	}

	if old.Compact.Enabled != new.Compact.Enabled {
		d.CompactToggled = true
		note("compact.enabled", old.Compact.Enabled, new.Compact.Enabled)
	}
	if old.Compact.MaxTokens != new.Compact.MaxTokens {
		note("compact.max_tokens", old.Compact.MaxTokens, new.Compact.MaxTokens)
	}
	if old.Compact.ArenaSize != new.Compact.ArenaSize {
		note("compact.arena_size", old.Compact.ArenaSize, new.Compact.ArenaSize)
	}

	if old.Lore.MaxActivationsPerTurn != new.Lore.MaxActivationsPerTurn {
		note("lore.max_activations_per_turn", old.Lore.MaxActivationsPerTurn, new.Lore.MaxActivationsPerTurn)
	}

	if old.Prompt != new.Prompt {
		d.PromptChanged = true
		if old.Prompt.StructuredReasoning != new.Prompt.StructuredReasoning {
			note("prompt.structured_reasoning", old.Prompt.StructuredReasoning, new.Prompt.StructuredReasoning)
		}
		if old.Prompt.MatureContent != new.Prompt.MatureContent {
			note("prompt.mature_content", old.Prompt.MatureContent, new.Prompt.MatureContent)
		}
	}

	return d
}

// weightsOf packs the four section weights for comparison and logging.
func weightsOf(b BudgetConfig) [4]float64 {
	return [4]float64{b.CriticalWeight, b.ImportantWeight, b.ContextualWeight, b.SupplementalWeight}
}
