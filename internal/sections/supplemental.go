package sections

import (
	"github.com/ntbao/mythweaver/internal/lore"
	"github.com/ntbao/mythweaver/pkg/state"
)

// Supplemental renders the lowest-priority section by delegating to the
// lore activation engine. The returned result carries the rendered text and
// the activation bookkeeping for metrics.
func (b *Builder) Supplemental(st *state.GameState, act *lore.Activator, playerInput, modelOutput string, scanDepth, budget int) lore.Result {
	res := act.Activate(st.Rules, lore.Context{
		PlayerInput: playerInput,
		ModelOutput: modelOutput,
		ScanDepth:   scanDepth,
		Budget:      budget,
		Turn:        st.Turn,
	})
	if res.Text != "" {
		res.Text = "## TRI THỨC THẾ GIỚI\n" + res.Text
	}
	return res
}
