package intent_test

import (
	"slices"
	"testing"

	"github.com/ntbao/mythweaver/internal/intent"
)

// TestClassify_Combat verifies the end-to-end combat scenario: a Vietnamese
// attack action sets IsCombat and the combat primary type.
func TestClassify_Combat(t *testing.T) {
	var c intent.KeywordClassifier
	res := c.Classify("tấn công con sói")

	if !res.IsCombat {
		t.Error("IsCombat = false, want true")
	}
	if res.Type != intent.Combat {
		t.Errorf("Type = %q, want %q", res.Type, intent.Combat)
	}
}

// TestClassify_PrimaryTypeOrder verifies that the first matching category in
// the fixed order wins the primary type while other flags stay set.
func TestClassify_PrimaryTypeOrder(t *testing.T) {
	var c intent.KeywordClassifier

	// Both movement ("chạy đến") and combat ("tấn công") match; movement is
	// tested first so it becomes the primary type.
	res := c.Classify("chạy đến và tấn công tên lính gác")
	if res.Type != intent.Movement {
		t.Errorf("Type = %q, want %q", res.Type, intent.Movement)
	}
	if !res.IsMovement || !res.IsCombat {
		t.Errorf("flags = movement:%v combat:%v, want both true", res.IsMovement, res.IsCombat)
	}
}

// TestClassify_GeneralFallback verifies that unmatched actions default to
// the general category with no flags set.
func TestClassify_GeneralFallback(t *testing.T) {
	var c intent.KeywordClassifier
	res := c.Classify("ngắm nhìn bầu trời")

	if res.Type != intent.General {
		t.Errorf("Type = %q, want %q", res.Type, intent.General)
	}
	if res.IsMovement || res.IsCombat || res.IsSocial || res.IsItemUse || res.IsSkillUse {
		t.Errorf("general action should set no category flags: %+v", res)
	}
}

// TestClassify_ShortVerbBoundaries verifies that short Vietnamese verbs only
// match as whole words.
func TestClassify_ShortVerbBoundaries(t *testing.T) {
	var c intent.KeywordClassifier

	// "điện thờ" contains "đi" as a prefix but is not a movement action.
	if res := c.Classify("quan sát điện thờ cổ"); res.IsMovement {
		t.Error("'điện thờ' should not trigger movement")
	}
	if res := c.Classify("đi về phía điện thờ"); !res.IsMovement {
		t.Error("'đi' as a standalone verb should trigger movement")
	}
}

// TestClassify_Targets verifies quoted and capitalised target extraction,
// including non-Latin accented capitals, with deduplication.
func TestClassify_Targets(t *testing.T) {
	var c intent.KeywordClassifier
	res := c.Classify(`hỏi Lý Thanh Vân về "thanh kiếm cổ" rồi đưa cho Lý Thanh Vân`)

	if !slices.Contains(res.Targets, "thanh kiếm cổ") {
		t.Errorf("Targets missing quoted name: %v", res.Targets)
	}
	if !slices.Contains(res.Targets, "Lý Thanh Vân") {
		t.Errorf("Targets missing capitalised name: %v", res.Targets)
	}

	count := 0
	for _, tg := range res.Targets {
		if tg == "Lý Thanh Vân" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate target extracted %d times: %v", count, res.Targets)
	}
}

// TestClassify_Keywords verifies stop-word removal and deduplication.
func TestClassify_Keywords(t *testing.T) {
	var c intent.KeywordClassifier
	res := c.Classify("tấn công con sói và con sói")

	if slices.Contains(res.Keywords, "và") {
		t.Errorf("stop word 'và' kept in keywords: %v", res.Keywords)
	}
	count := 0
	for _, k := range res.Keywords {
		if k == "sói" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("keyword 'sói' appears %d times, want 1: %v", count, res.Keywords)
	}
}

// TestClassify_AlwaysWellFormed verifies that pathological inputs still
// return a usable result.
func TestClassify_AlwaysWellFormed(t *testing.T) {
	var c intent.KeywordClassifier
	for _, action := range []string{"", "   ", "!!!", `""`} {
		res := c.Classify(action)
		if res.Type != intent.General {
			t.Errorf("Classify(%q).Type = %q, want general", action, res.Type)
		}
	}
}
