package worktree

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// ExecGitRunner shells out to the system git binary, the same
// CommandContext-plus-combined-output pattern the preflight dependency
// checker uses for arbitrary shell commands.
type ExecGitRunner struct{}

// Run executes `git <args...>` with dir as the working directory.
func (ExecGitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimRight(out.String(), "\n"), err
}
