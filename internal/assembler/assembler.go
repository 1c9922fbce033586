// Package assembler composes the final prompt from the prioritised
// sections, the action framing, and the guidance blocks, in a fixed order
// the downstream model is tuned against.
package assembler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ntbao/mythweaver/internal/budget"
	"github.com/ntbao/mythweaver/internal/intent"
	"github.com/ntbao/mythweaver/internal/lore"
	"github.com/ntbao/mythweaver/internal/refpack"
	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/internal/sections"
	"github.com/ntbao/mythweaver/internal/token"
	"github.com/ntbao/mythweaver/pkg/state"
)

// loreScanDepth is how many trailing runes of the latest model output feed
// lore keyword scanning.
const loreScanDepth = 2000

// fallbackPrompt is emitted when no game state is available. The model gets
// enough framing to respond gracefully instead of inventing a world.
const fallbackPrompt = `## VAI TRÒ
Bạn là người quản trò cho một trò chơi nhập vai tu tiên bằng văn bản.

## TÌNH TRẠNG
Trạng thái trò chơi hiện không khả dụng. Hãy trả lời ngắn gọn, xin lỗi người
chơi và đề nghị họ thử lại, không tự bịa ra diễn biến mới.
`

// Input carries everything one prompt build needs. Ranked entities and the
// budget come from the upstream pipeline stages.
type Input struct {
	State       *state.GameState
	SessionID   string
	PlayerInput string
	Intent      intent.ActionIntent
	Ranked      []scoring.EntityRelevance
	Budget      budget.TokenBudget

	// Compact, when non-nil, replaces the detailed entity renderings with
	// the reference-compressed block.
	Compact *refpack.CompactRAGContext

	// RuleChangeNote describes lore rules edited since the previous turn.
	RuleChangeNote string

	// StructuredReasoning appends the reasoning scaffold; when false a
	// direct-answer notice is prepended instead.
	StructuredReasoning bool

	// MatureContent appends the mature-content framing block.
	MatureContent bool
}

// Prompt is the assembled result.
type Prompt struct {
	Text             string
	Tokens           int
	CorrelationToken string
	Truncated        bool
	Lore             lore.Result
}

// Assembler builds prompts. Safe for concurrent use.
type Assembler struct {
	est      token.Estimator
	sections *sections.Builder
}

// New creates an [Assembler] over the given estimator and section builder.
func New(est token.Estimator, sb *sections.Builder) *Assembler {
	return &Assembler{est: est, sections: sb}
}

// Build assembles the prompt for one turn. hardCeiling is the absolute
// token limit after the per-section budgets: the finished prompt is
// truncated to it as a last resort, which only triggers when fixed blocks
// (framing, guidance) outgrow the slack the budget buffer leaves.
func (a *Assembler) Build(in Input, act *lore.Activator, hardCeiling int) Prompt {
	corr := uuid.NewString()
	if in.State == nil {
		return Prompt{Text: fallbackPrompt, Tokens: a.est.Estimate(fallbackPrompt), CorrelationToken: corr}
	}
	st := in.State

	var sb strings.Builder

	if !in.StructuredReasoning {
		sb.WriteString("## CHẾ ĐỘ PHẢN HỒI\nTrả lời trực tiếp bằng lời kể, không trình bày quá trình suy luận.\n\n")
	}
	if in.RuleChangeNote != "" {
		fmt.Fprintf(&sb, "## LUẬT CHƠI VỪA THAY ĐỔI\n%s\n\n", in.RuleChangeNote)
	}

	// In compact mode the critical section keeps only the party block; the
	// reference block carries everything else.
	rankedForSections := in.Ranked
	if in.Compact != nil {
		rankedForSections = nil
	}

	sb.WriteString(a.sections.Critical(st, rankedForSections, in.Budget.Critical))
	if in.Compact != nil {
		sb.WriteString("\n")
		sb.WriteString(in.Compact.Render())
	}
	sb.WriteString("\n")
	sb.WriteString(a.sections.Important(st, rankedForSections, in.Budget.Important))
	sb.WriteString("\n")
	sb.WriteString(a.sections.Contextual(st, in.Budget.Contextual))

	loreRes := a.sections.Supplemental(st, act, in.PlayerInput, lastModelOutput(st), loreScanDepth, in.Budget.Supplemental)
	if loreRes.Text != "" {
		sb.WriteString("\n")
		sb.WriteString(loreRes.Text)
	}

	a.actionFraming(&sb, in, corr)

	if guard := antiRepetition(st); guard != "" {
		sb.WriteString("\n")
		sb.WriteString(guard)
	}

	if in.StructuredReasoning {
		sb.WriteString("\n## SUY LUẬN\nTrước khi kể tiếp, suy luận từng bước trong thẻ <thinking> về hậu quả\nhành động của người chơi, rồi mới viết phần lời kể bên ngoài thẻ.\n")
	}
	if in.MatureContent {
		sb.WriteString("\n## NỘI DUNG NGƯỜI LỚN\nNgười chơi đã xác nhận đủ tuổi. Được phép mô tả bạo lực và tình tiết\nngười lớn khi câu chuyện dẫn tới, ở mức phục vụ mạch truyện.\n")
	}

	text := sb.String()
	p := Prompt{CorrelationToken: corr, Lore: loreRes}
	if a.est.Estimate(text) > hardCeiling {
		text = a.est.Truncate(text, hardCeiling)
		p.Truncated = true
	}
	p.Text = text
	p.Tokens = a.est.Estimate(text)
	return p
}

// actionFraming renders the turn header, the correlation token, the raw
// player input and the intent read-out.
func (a *Assembler) actionFraming(sb *strings.Builder, in Input, corr string) {
	st := in.State
	fmt.Fprintf(sb, "\n## HÀNH ĐỘNG LƯỢT %d\n", st.Turn)
	fmt.Fprintf(sb, "Thời điểm: %s\n", st.Time)
	fmt.Fprintf(sb, "Mã lượt: %s\n", corr)
	fmt.Fprintf(sb, "Người chơi: %s\n", in.PlayerInput)
	fmt.Fprintf(sb, "Phân tích: %s\n", intentSummary(in.Intent))
}

// intentSummary renders the classifier output in one line.
func intentSummary(in intent.ActionIntent) string {
	s := "loại: " + string(in.Type)
	if len(in.Targets) > 0 {
		s += "; mục tiêu: " + strings.Join(in.Targets, ", ")
	}
	if len(in.Keywords) > 0 {
		s += "; từ khóa: " + strings.Join(in.Keywords, ", ")
	}
	return s
}

// lastModelOutput returns the most recent model history entry, or "".
func lastModelOutput(st *state.GameState) string {
	for i := len(st.History) - 1; i >= 0; i-- {
		if st.History[i].Role == state.RoleModel {
			return st.History[i].Text
		}
	}
	return ""
}
