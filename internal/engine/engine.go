// Package engine wires the assembly pipeline together: intent
// classification, relationship graphing, relevance scoring, budget
// allocation, optional reference compression, and final prompt assembly.
//
// The pipeline for one turn is strictly sequential; concurrency lives at
// the edges (session warm-load, config watching), never inside a build.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ntbao/mythweaver/internal/assembler"
	"github.com/ntbao/mythweaver/internal/budget"
	"github.com/ntbao/mythweaver/internal/config"
	"github.com/ntbao/mythweaver/internal/intent"
	"github.com/ntbao/mythweaver/internal/lore"
	"github.com/ntbao/mythweaver/internal/observe"
	"github.com/ntbao/mythweaver/internal/refpack"
	"github.com/ntbao/mythweaver/internal/relgraph"
	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/internal/sections"
	"github.com/ntbao/mythweaver/internal/token"
	"github.com/ntbao/mythweaver/pkg/state"
)

// Engine is the top-level prompt assembly facade. Safe for concurrent use;
// [Engine.ApplyConfig] may run alongside builds.
type Engine struct {
	mu         sync.RWMutex
	cfg        *config.Config
	est        token.Estimator
	alloc      budget.Allocator
	builder    *sections.Builder
	asm        *assembler.Assembler
	classifier intent.Classifier
	activator  *lore.Activator
	arena      *refpack.Arena
	store      refpack.Store
	metrics    *observe.Metrics
}

// Option configures an [Engine].
type Option func(*Engine)

// WithStore attaches a durable reference store. Sessions are warm-loaded
// from it at startup and persisted after compact builds.
func WithStore(s refpack.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an [Engine] from cfg.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	arena, err := refpack.NewArena(cfg.Compact.ArenaSize)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	est := token.NewEstimator(cfg.Budget.CharsPerTokenRatio)
	builder := sections.NewBuilder(est)
	e := &Engine{
		cfg:        cfg,
		est:        est,
		alloc:      budget.NewAllocator(cfg.Budget.AllocatorConfig()),
		builder:    builder,
		asm:        assembler.New(est, builder),
		classifier: intent.KeywordClassifier{},
		activator:  lore.NewActivator(est, cfg.Lore.MaxActivationsPerTurn),
		arena:      arena,
		metrics:    observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	arena.Notify(func(delta int) {
		e.metrics.ActiveSessions.Add(context.Background(), int64(delta))
	})
	return e, nil
}

// WarmUp loads persisted session references into the arena. A nil store
// makes this a no-op.
func (e *Engine) WarmUp(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	return refpack.WarmArena(ctx, e.store, e.arena)
}

// ApplyConfig swaps in a reloaded configuration. Token accounting and lore
// settings take effect on the next build; the arena keeps its sessions.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	est := token.NewEstimator(cfg.Budget.CharsPerTokenRatio)
	builder := sections.NewBuilder(est)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.est = est
	e.alloc = budget.NewAllocator(cfg.Budget.AllocatorConfig())
	e.builder = builder
	e.asm = assembler.New(est, builder)
	e.activator = lore.NewActivator(est, cfg.Lore.MaxActivationsPerTurn)
}

// BuildPrompt runs the full pipeline for one player action and returns the
// assembled prompt. A nil state produces the degraded fallback prompt
// rather than an error.
func (e *Engine) BuildPrompt(ctx context.Context, sessionID string, st *state.GameState, playerInput string) (assembler.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return assembler.Prompt{}, fmt.Errorf("engine: build prompt: %w", err)
	}

	e.mu.RLock()
	cfg := e.cfg
	est := e.est
	alloc := e.alloc
	asm := e.asm
	classifier := e.classifier
	activator := e.activator
	e.mu.RUnlock()

	ctx, span := observe.StartSpan(ctx, "engine.build_prompt")
	defer span.End()
	start := time.Now()
	log := observe.Logger(ctx)

	in := assembler.Input{
		State:               st,
		SessionID:           sessionID,
		PlayerInput:         playerInput,
		Budget:              alloc.Allocate(nil, st, 0),
		StructuredReasoning: cfg.Prompt.StructuredReasoning,
		MatureContent:       cfg.Prompt.MatureContent,
	}
	mode := "full"

	if st != nil {
		in.Intent = classifier.Classify(playerInput)
		graph := relgraph.Build(st)
		in.Ranked = scoring.ScoreEntities(st, playerInput, in.Intent, graph)
		in.Budget = alloc.Allocate(in.Ranked, st, 0)

		if cfg.Compact.Enabled {
			reg := e.arena.Session(sessionID)
			compact := refpack.BuildCompact(st, in.Ranked, reg, est, cfg.Compact.MaxTokens)
			if compact.Savings() > 0 {
				in.Compact = compact
				mode = "compact"
				e.metrics.RecordCompactSavings(ctx, compact.Savings())
			} else {
				log.Debug("compact representation not smaller, using full",
					"session_id", sessionID, "savings", compact.Savings())
			}
			if e.store != nil {
				if err := e.store.SaveSession(ctx, sessionID, reg.References()); err != nil {
					log.Warn("persisting entity references failed",
						"session_id", sessionID, "err", err)
				}
			}
		}
	}

	prompt := asm.Build(in, activator, alloc.Ceiling())
	if prompt.Truncated {
		e.metrics.RecordTruncation(ctx, "prompt")
	}
	for range prompt.Lore.Activated {
		e.metrics.LoreActivations.Add(ctx, 1)
	}

	e.metrics.RecordBuild(ctx, mode, "ok", time.Since(start).Seconds(), prompt.Tokens)
	span.SetAttributes(
		observe.Attr("session_id", sessionID),
		observe.Attr("mode", mode),
		attribute.Int("prompt_tokens", prompt.Tokens),
	)
	log.Debug("prompt assembled",
		"session_id", sessionID,
		"turn", turnOf(st),
		"mode", mode,
		"tokens", prompt.Tokens,
		"correlation", prompt.CorrelationToken,
	)
	return prompt, nil
}

func turnOf(st *state.GameState) int {
	if st == nil {
		return 0
	}
	return st.Turn
}
