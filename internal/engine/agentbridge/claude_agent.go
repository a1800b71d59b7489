// Package agentbridge adapts the Claude CLI invocation machinery used
// elsewhere in the codebase to the engine's vendor-agnostic parallel.Agent
// interface, running each invocation rooted in its task's worktree.
package agentbridge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/harrison/conductor/internal/agent"
	"github.com/harrison/conductor/internal/claude"
	"github.com/harrison/conductor/internal/engine/parallel"
	"github.com/harrison/conductor/internal/models"
)

// ClaudeAgent runs the claude CLI with its working directory pinned to the
// invocation's worktree, unlike agent.Invoker which always runs in the
// current process's directory.
type ClaudeAgent struct {
	ClaudePath string
	Registry   *agent.Registry
	Timeout    time.Duration
}

// New constructs a ClaudeAgent with sensible defaults.
func New(registry *agent.Registry) *ClaudeAgent {
	return &ClaudeAgent{ClaudePath: "claude", Registry: registry, Timeout: 20 * time.Minute}
}

// Run shells out to claude in inv.WorkingDir and parses its JSON response.
func (c *ClaudeAgent) Run(ctx context.Context, inv parallel.Invocation) (parallel.Outcome, error) {
	task := models.Task{
		Number: "engine-task",
		Name:   inv.TaskText,
		Prompt: buildPrompt(inv),
	}

	invoker := agent.NewInvokerWithRegistry(c.Registry)
	if c.ClaudePath != "" {
		invoker.ClaudePath = c.ClaudePath
	}
	args := invoker.BuildCommandArgs(task)

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, invoker.ClaudePath, args...)
	cmd.Dir = inv.WorkingDir
	claude.SetCleanEnv(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	out := strings.TrimSpace(stdout.String())
	parsed, parseErr := agent.ParseClaudeOutput(out)

	outcome := parallel.Outcome{
		Logs: out,
	}
	if parsed != nil {
		outcome.OK = parsed.Error == ""
		if parsed.Error != "" {
			outcome.Logs = parsed.Error
		}
	}

	if runErr != nil {
		return outcome, fmt.Errorf("claude invocation failed after %s: %w", duration.Round(time.Second), runErr)
	}
	if parseErr != nil {
		return outcome, fmt.Errorf("parse claude output: %w", parseErr)
	}
	return outcome, nil
}

func buildPrompt(inv parallel.Invocation) string {
	var b strings.Builder
	b.WriteString(inv.TaskText)
	if inv.PromptContext != "" {
		b.WriteString("\n\n")
		b.WriteString(inv.PromptContext)
	}
	return agent.PrepareAgentPrompt(b.String())
}
