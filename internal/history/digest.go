// Package history digests the raw game history into the compact lines the
// important context section renders: alternating player actions and story
// continuity extracted from model output.
//
// Model entries may be JSON-encoded structured output. Field extraction is
// tolerant via gjson: well-formed JSON yields its narrative and state-change
// fields; malformed JSON that still looks like JSON is skipped with a debug
// log rather than aborting the build.
package history

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ntbao/mythweaver/pkg/state"
)

// DefaultRecentPairs is how many user+model exchange pairs the recent
// window covers.
const DefaultRecentPairs = 3

// narrativeFields are the JSON paths tried, in order, when extracting story
// text from a structured model entry.
var narrativeFields = []string{"narrative", "story", "text", "description"}

// RecentLines summarises the last pairs exchanges as renderable lines:
// "Người chơi: ..." for user entries and "Diễn biến: ..." for model
// entries, oldest first. Unparseable JSON model entries are skipped.
func RecentLines(st *state.GameState, pairs int) []string {
	if st == nil || len(st.History) == 0 {
		return nil
	}
	if pairs <= 0 {
		pairs = DefaultRecentPairs
	}

	h := st.History
	if max := pairs * 2; len(h) > max {
		h = h[len(h)-max:]
	}

	lines := make([]string, 0, len(h))
	for _, entry := range h {
		switch entry.Role {
		case state.RoleUser:
			if t := strings.TrimSpace(entry.Text); t != "" {
				lines = append(lines, "Người chơi: "+t)
			}
		case state.RoleModel:
			if t := ModelText(entry.Text); t != "" {
				lines = append(lines, "Diễn biến: "+t)
			}
			for _, c := range stateChanges(entry.Text) {
				lines = append(lines, "Thay đổi: "+c)
			}
		}
	}
	return lines
}

// ModelText extracts the narrative text from a model history entry.
//
// Plain text is returned as-is. Valid JSON yields the first non-empty
// narrative field. Text that looks like JSON but fails to parse is skipped
// (empty return) per the degrade-gracefully policy.
func ModelText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !looksLikeJSON(trimmed) {
		return trimmed
	}
	if !gjson.Valid(trimmed) {
		slog.Debug("skipping unparseable model history entry", "prefix", prefix(trimmed, 40))
		return ""
	}
	for _, field := range narrativeFields {
		if v := gjson.Get(trimmed, field); v.Exists() && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

// stateChanges pulls the state_changes array from a structured model entry,
// tolerating both string arrays and objects with a description field.
func stateChanges(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if !looksLikeJSON(trimmed) || !gjson.Valid(trimmed) {
		return nil
	}
	var out []string
	gjson.Get(trimmed, "state_changes").ForEach(func(_, v gjson.Result) bool {
		s := v.String()
		if v.IsObject() {
			s = v.Get("description").String()
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

// StoryFlow returns the story-flow lines of all compressed history segments,
// oldest segment first, prefixed with their turn range.
func StoryFlow(st *state.GameState) []string {
	if st == nil {
		return nil
	}
	var out []string
	for _, seg := range st.CompressedHistory {
		for _, line := range seg.StoryFlow {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, fmt.Sprintf("[lượt %d–%d] %s", seg.FromTurn, seg.ToTurn, line))
			}
		}
	}
	return out
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
