package planbuilder

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/conductor/internal/engine/domain"
)

// RenderPlanSummary assembles a short Markdown report of a built plan
// (batch layout, parallelism, predicted conflicts) and renders it to HTML
// via goldmark, the teacher's markdown library, for display by callers that
// want a glanceable plan summary (e.g. the CLI's `plan build` output) rather
// than raw JSON.
func RenderPlanSummary(plan *domain.ExecutionPlan) (string, error) {
	var md strings.Builder

	fmt.Fprintf(&md, "# Execution plan: %s\n\n", plan.ProjectID)
	fmt.Fprintf(&md, "- Total tasks: %d\n", plan.Metadata.TotalTasks)
	fmt.Fprintf(&md, "- Total batches: %d\n", plan.Metadata.TotalBatches)
	fmt.Fprintf(&md, "- Parallel batches: %d\n", plan.Metadata.ParallelPossible)
	fmt.Fprintf(&md, "- Predicted conflicts: %d\n", plan.Metadata.ConflictsDetected)
	fmt.Fprintf(&md, "- Circular dependencies: %d\n", plan.Metadata.CircularDependencies)
	fmt.Fprintf(&md, "- Missing dependencies: %d\n\n", plan.Metadata.MissingDependencies)

	md.WriteString("## Batches\n\n")
	for _, b := range plan.Batches {
		mode := "sequential"
		if b.CanParallel {
			mode = "parallel"
		}
		fmt.Fprintf(&md, "- Batch %d (%s): tasks %v\n", b.BatchID, mode, b.TaskIDs)
	}

	if len(plan.PredictedConflicts) > 0 {
		md.WriteString("\n## Predicted conflicts\n\n")
		for _, c := range plan.PredictedConflicts {
			fmt.Fprintf(&md, "- `%s` conflict on tasks %v: %s\n", c.Kind, c.TaskIDs, strings.Join(c.PredictedFiles, ", "))
		}
	}

	var out bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &out); err != nil {
		return "", fmt.Errorf("render plan summary: %w", err)
	}
	return out.String(), nil
}

// TestCommandOverride scans a project README for a "Test Command" heading
// immediately followed by a fenced code block, and returns its contents as
// the merge validator's test command override. Returns ok=false if no such
// section exists, in which case the caller falls back to its configured
// default.
func TestCommandOverride(readme []byte) (command string, ok bool) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(readme))

	var expectCode bool
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			expectCode = strings.EqualFold(strings.TrimSpace(headingText(node, readme)), "test command")
		case *ast.FencedCodeBlock:
			if expectCode && command == "" {
				command = strings.TrimSpace(codeBlockText(node, readme))
			}
			expectCode = false
		}
		return ast.WalkContinue, nil
	})

	return command, command != ""
}

func headingText(h *ast.Heading, source []byte) string {
	var buf bytes.Buffer
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return buf.String()
}

func codeBlockText(b *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := b.Lines()
	for i := 0; i < lines.Len(); i++ {
		buf.Write(lines.At(i).Value(source))
	}
	return buf.String()
}
