package config_test

import (
	"strings"
	"testing"

	"github.com/ntbao/mythweaver/internal/config"
)

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	a := mustLoad(t, validYAML)
	b := mustLoad(t, validYAML)

	d := config.Diff(a, b)
	if !d.Empty() {
		t.Errorf("Diff of identical configs not empty: %v", d.Changes)
	}
}

func TestDiff_BudgetAndPrompt(t *testing.T) {
	a := mustLoad(t, validYAML)
	b := mustLoad(t, strings.Replace(
		strings.Replace(validYAML, "max_tokens_per_turn: 80000", "max_tokens_per_turn: 60000", 1),
		"structured_reasoning: true", "structured_reasoning: false", 1))

	d := config.Diff(a, b)
	if !d.BudgetChanged {
		t.Errorf("BudgetChanged not set")
	}
	if !d.PromptChanged {
		t.Errorf("PromptChanged not set")
	}
	joined := strings.Join(d.Changes, "\n")
	if !strings.Contains(joined, "budget.max_tokens_per_turn: 80000 -> 60000") {
		t.Errorf("changes missing budget entry:\n%s", joined)
	}
}

func TestDiff_CompactToggle(t *testing.T) {
	a := mustLoad(t, validYAML)
	b := mustLoad(t, strings.Replace(validYAML, "enabled: true", "enabled: false", 1))

	d := config.Diff(a, b)
	if !d.CompactToggled {
		t.Errorf("CompactToggled not set")
	}
	if d.BudgetChanged {
		t.Errorf("BudgetChanged set without a budget change")
	}
}

func TestDiff_LogLevel(t *testing.T) {
	a := mustLoad(t, validYAML)
	b := mustLoad(t, strings.Replace(validYAML, "log_level: debug", "log_level: error", 1))

	d := config.Diff(a, b)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogError {
		t.Errorf("log level change not reported: %+v", d)
	}
}
