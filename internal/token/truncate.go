package token

// truncationMarker joins the preserved head and tail of an aggressively
// truncated field so the model knows content was elided.
const truncationMarker = " [content truncated] "

// ellipsis terminates head-only truncation.
const ellipsis = "…"

// Truncate shortens text so that its estimate fits within maxTokens.
//
// Policy: keep the first 60% and last 30% of the allowed character budget,
// joined by a "[content truncated]" marker. When the budget is too small for
// the marker plus both halves (the halves would overlap), fall back to simple
// head truncation with an ellipsis.
//
// Guarantees: the result's estimate never exceeds maxTokens, and a non-empty
// input with a positive budget never truncates to the empty string.
func (e Estimator) Truncate(text string, maxTokens int) string {
	if text == "" {
		return ""
	}
	if maxTokens <= 0 {
		return ""
	}
	if e.Estimate(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	budget := e.CharBudget(maxTokens)
	if budget < 1 {
		budget = 1
	}

	marker := []rune(truncationMarker)
	head := budget * 6 / 10
	tail := budget * 3 / 10
	// The marker spends part of the budget; both halves plus the marker must
	// fit, and the halves must not overlap in the source text.
	if head+tail+len(marker) > budget || head+tail >= len(runes) || head == 0 || tail == 0 {
		return headTruncate(runes, budget)
	}
	head -= len(marker) // charge the marker against the head share
	if head <= 0 {
		return headTruncate(runes, budget)
	}

	out := make([]rune, 0, budget)
	out = append(out, runes[:head]...)
	out = append(out, marker...)
	out = append(out, runes[len(runes)-tail:]...)
	return string(out)
}

// headTruncate keeps the leading content and appends an ellipsis, spending at
// most budget runes in total. At minimum one source rune survives.
func headTruncate(runes []rune, budget int) string {
	ell := []rune(ellipsis)
	keep := budget - len(ell)
	if keep < 1 {
		keep = 1
		ell = nil // no room for the marker at all
	}
	if keep >= len(runes) {
		keep = len(runes)
	}
	out := make([]rune, 0, keep+len(ell))
	out = append(out, runes[:keep]...)
	out = append(out, ell...)
	return string(out)
}
