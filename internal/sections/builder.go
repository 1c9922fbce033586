// Package sections renders the four prioritised context sections of the
// full (non-compact) prompt representation.
//
// Each builder function accepts a token sub-budget and fills it greedily:
// whole items are appended until the next item would overflow, then the
// section stops. Only free-text description fields are ever truncated
// mid-item, via the aggressive head/tail policy in internal/token. Budget
// exhaustion is never an error — the section simply comes out smaller.
package sections

import (
	"fmt"
	"strings"

	"github.com/ntbao/mythweaver/internal/token"
)

// maxCriticalEntities caps how many non-party entities the critical section
// renders in detail; the important section picks up the rest in brief form.
const maxCriticalEntities = 10

// Builder renders context sections. Safe for concurrent use; it holds only
// the token estimator.
type Builder struct {
	est token.Estimator
}

// NewBuilder creates a [Builder] using est for all budget accounting.
func NewBuilder(est token.Estimator) *Builder {
	return &Builder{est: est}
}

// sectionWriter accumulates lines under a token budget with greedy
// fill-and-stop semantics.
type sectionWriter struct {
	est    token.Estimator
	budget int
	used   int
	sb     strings.Builder
	full   bool
}

func newSectionWriter(est token.Estimator, budget int) *sectionWriter {
	return &sectionWriter{est: est, budget: budget}
}

// add appends s when it fits, returning false (and marking the writer full)
// once the budget would be exceeded. Subsequent adds still attempt smaller
// items — greedy fill, not first-failure abort — but callers typically stop
// on the first false for strictly ordered content.
func (w *sectionWriter) add(s string) bool {
	if s == "" {
		return true
	}
	cost := w.est.Estimate(s)
	if w.used+cost > w.budget {
		w.full = true
		return false
	}
	w.sb.WriteString(s)
	w.used += cost
	return true
}

// addTruncated appends s, aggressively truncating it to fit within at most
// maxTokens (or whatever budget remains, whichever is smaller). Used for
// free-text description fields only.
func (w *sectionWriter) addTruncated(s string, maxTokens int) bool {
	if s == "" {
		return true
	}
	remaining := w.budget - w.used
	if remaining <= 0 {
		w.full = true
		return false
	}
	if maxTokens > remaining {
		maxTokens = remaining
	}
	return w.add(w.est.Truncate(s, maxTokens))
}

func (w *sectionWriter) remaining() int {
	r := w.budget - w.used
	if r < 0 {
		return 0
	}
	return r
}

func (w *sectionWriter) String() string { return w.sb.String() }

// entityLabel renders "Name (type)".
func entityLabel(name, typ string) string {
	return fmt.Sprintf("%s (%s)", name, typ)
}
