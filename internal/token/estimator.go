// Package token provides the character-ratio token estimator and the
// truncation policies that every budgeting decision in the engine is built
// on. Estimation is deliberately a heuristic — a fixed tokens-per-character
// ratio — which avoids pulling in a tokenizer dependency while staying
// conservative enough that final prompts never exceed the provider's real
// context window.
package token

import (
	"math"
	"unicode/utf8"
)

// DefaultRatio is the conservative tokens-per-character ratio. Vietnamese
// prose tokenizes badly on most providers, so the ratio is above 1.
const DefaultRatio = 1.2

// Estimator converts text into an approximate token count.
//
// The zero value uses [DefaultRatio]. Estimation is deterministic, monotonic
// in input length, and side-effect free. Characters are counted as runes so
// multi-byte Vietnamese text is measured the same way regardless of
// encoding width.
type Estimator struct {
	ratio float64
}

// NewEstimator returns an [Estimator] with the given tokens-per-character
// ratio. Non-positive ratios fall back to [DefaultRatio].
func NewEstimator(ratio float64) Estimator {
	if ratio <= 0 {
		ratio = DefaultRatio
	}
	return Estimator{ratio: ratio}
}

// Ratio returns the effective tokens-per-character ratio.
func (e Estimator) Ratio() float64 {
	if e.ratio <= 0 {
		return DefaultRatio
	}
	return e.ratio
}

// Estimate returns ceil(runeCount(text) × ratio). The empty string yields 0.
func (e Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) * e.Ratio()))
}

// CharBudget returns the largest character (rune) count whose estimate still
// fits within maxTokens. Non-positive budgets yield 0.
func (e Estimator) CharBudget(maxTokens int) int {
	if maxTokens <= 0 {
		return 0
	}
	return int(math.Floor(float64(maxTokens) / e.Ratio()))
}
