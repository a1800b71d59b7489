package parallel

import (
	"context"

	"github.com/harrison/conductor/internal/engine/domain"
)

// Invocation is everything an agent callable needs to act on one task.
type Invocation struct {
	WorkingDir    string
	TaskText      string
	PromptContext string
	ModelTier     domain.ModelTier
}

// Outcome is what an agent callable reports back.
type Outcome struct {
	OK            bool
	Logs          string
	CostUSD       float64
	InputTokens   int64
	OutputTokens  int64
	ModifiedFiles []string
}

// Agent is the vendor-agnostic contract the Parallel Executor drives. The
// core never depends on a specific LLM provider; concrete implementations
// (a CLI subprocess wrapper, an in-process SDK client, a test stub) all
// satisfy this one method.
type Agent interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}
