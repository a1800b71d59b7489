package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/conductor/internal/agent"
	"github.com/harrison/conductor/internal/config"
	"github.com/harrison/conductor/internal/engine/agentbridge"
	"github.com/harrison/conductor/internal/engine/batch"
	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/engine/expertise"
	"github.com/harrison/conductor/internal/engine/mergevalidate"
	"github.com/harrison/conductor/internal/engine/modelselect"
	"github.com/harrison/conductor/internal/engine/parallel"
	"github.com/harrison/conductor/internal/engine/planbuilder"
	"github.com/harrison/conductor/internal/engine/resolver"
	"github.com/harrison/conductor/internal/engine/store"
	"github.com/harrison/conductor/internal/engine/worktree"
	"github.com/harrison/conductor/internal/logger"
)

// NewEngineCommand creates the engine command tree: plan, run, worktree,
// reap, and graph subcommands, plus project, epic, and task bootstrap
// subcommands, over the DB-backed parallel execution engine. It operates on
// persisted projects/epics/tasks.
func NewEngineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Operate the parallel execution engine",
		Long: `The engine command family drives the dependency-aware, worktree-isolated
parallel execution engine: build an execution plan from persisted tasks,
run it to completion with bounded concurrency, inspect or reconcile
worktrees, and sweep stale sessions.`,
	}

	cmd.AddCommand(newEnginePlanCommand())
	cmd.AddCommand(newEngineRunCommand())
	cmd.AddCommand(newEngineWorktreeCommand())
	cmd.AddCommand(newEngineReapCommand())
	cmd.AddCommand(newEngineGraphCommand())
	cmd.AddCommand(newEngineProjectCommand())
	cmd.AddCommand(newEngineEpicCommand())
	cmd.AddCommand(newEngineTaskCommand())

	return cmd
}

func newEngineProjectCommand() *cobra.Command {
	wrapper := &cobra.Command{Use: "project", Short: "Project bootstrap operations"}

	create := &cobra.Command{
		Use:   "create <name> <working-dir>",
		Short: "Register a new project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.CreateProject(args[0], args[1])
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project created: %s\n", id)
			return nil
		},
	}

	wrapper.AddCommand(create)
	return wrapper
}

func newEngineEpicCommand() *cobra.Command {
	var priority int
	wrapper := &cobra.Command{Use: "epic", Short: "Epic bootstrap operations"}

	add := &cobra.Command{
		Use:   "add <project-id> <name>",
		Short: "Add an epic to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.CreateEpic(args[0], args[1], priority, nil)
			if err != nil {
				return fmt.Errorf("create epic: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Epic created: %d\n", id)
			return nil
		},
	}
	add.Flags().IntVar(&priority, "priority", 999, "Scheduling priority (lower runs earlier)")

	wrapper.AddCommand(add)
	return wrapper
}

func newEngineTaskCommand() *cobra.Command {
	var epicID int64
	var priority int
	var dependsOn []int64
	var soft bool

	wrapper := &cobra.Command{Use: "task", Short: "Task bootstrap operations"}

	add := &cobra.Command{
		Use:   "add <project-id> <description>",
		Short: "Add a pending task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			depType := domain.DependencyHard
			if soft {
				depType = domain.DependencySoft
			}
			id, err := s.CreateTask(domain.EngineTask{
				ProjectID:      args[0],
				EpicID:         epicID,
				Description:    args[1],
				Priority:       priority,
				DependsOn:      dependsOn,
				DependencyType: depType,
			})
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task created: %d\n", id)
			return nil
		},
	}
	add.Flags().Int64Var(&epicID, "epic", 0, "Owning epic id (0 for none)")
	add.Flags().IntVar(&priority, "priority", 999, "Scheduling priority (lower runs earlier)")
	add.Flags().Int64SliceVar(&dependsOn, "depends-on", nil, "Task ids this task depends on")
	add.Flags().BoolVar(&soft, "soft", false, "Record dependencies as non-blocking hints")

	wrapper.AddCommand(add)
	return wrapper
}

func openEngineStore() (*store.Store, error) {
	dbPath, err := config.GetEngineDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve engine database path: %w", err)
	}
	return store.Open(dbPath)
}

func newEnginePlanCommand() *cobra.Command {
	var maxWorktrees int
	var summaryHTML bool
	planCmd := &cobra.Command{
		Use:   "build <project-id>",
		Short: "Resolve dependencies and build an execution plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, err := s.PendingTasks(projectID)
			if err != nil {
				return fmt.Errorf("load tasks: %w", err)
			}
			epics, err := s.Epics(projectID)
			if err != nil {
				return fmt.Errorf("load epics: %w", err)
			}

			builder := planbuilder.New(maxWorktrees)
			plan, err := builder.Build(projectID, tasks, epics)
			if err != nil {
				return fmt.Errorf("build plan: %w", err)
			}

			validation := planbuilder.Validate(plan)
			if len(validation.EmptyBatches) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d empty batch(es): %v\n", len(validation.EmptyBatches), validation.EmptyBatches)
			}
			if len(validation.UnassignedTasks) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d task(s) with no worktree assignment: %v\n", len(validation.UnassignedTasks), validation.UnassignedTasks)
			}
			if validation.ConflictRateAbove50 {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: more than half of tasks have predicted file conflicts\n")
			}

			if err := s.SavePlan(plan); err != nil {
				return fmt.Errorf("persist plan: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Plan built: %d task(s) across %d batch(es), %d parallel-eligible, mode=%s\n",
				plan.TotalTasksIn(), len(plan.Batches), plan.ParallelBatches(), domain.SelectMode(plan))

			if summaryHTML {
				html, err := planbuilder.RenderPlanSummary(plan)
				if err != nil {
					return fmt.Errorf("render plan summary: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), html)
			}
			return nil
		},
	}
	planCmd.Flags().IntVar(&maxWorktrees, "max-worktrees", 4, "Maximum number of dedicated worktrees to allocate")
	planCmd.Flags().BoolVar(&summaryHTML, "summary", false, "Print an HTML plan summary rendered from markdown")

	wrapper := &cobra.Command{Use: "plan", Short: "Plan-building operations"}
	wrapper.AddCommand(planCmd)
	return wrapper
}

func newEngineRunCommand() *cobra.Command {
	var maxConcurrency int
	var repoPath string
	var runTests bool
	var testCommand string
	var budgetLimit float64

	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Execute a project's saved plan to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			plan, err := s.LoadPlan(projectID)
			if err != nil || plan == nil {
				return fmt.Errorf("no saved plan for project %s; run `engine plan build` first", projectID)
			}

			wt := worktree.New(repoPath, worktree.ExecGitRunner{}, s)

			registry := agent.NewRegistry("")
			_, _ = registry.Discover()
			ag := agentbridge.New(registry)

			selector := modelselect.New(store.BudgetAdapter{Store: s, Limit: budgetLimit})
			pe := parallel.New(maxConcurrency, ag, wt, selector, s, s)
			pe.Expertise = expertise.New()
			if saved, err := s.LoadAllExpertiseBlobs(projectID); err == nil {
				pe.Expertise.Seed(saved)
			}
			if !cmd.Flags().Changed("test-command") {
				if readme, err := os.ReadFile(filepath.Join(repoPath, "README.md")); err == nil {
					if override, ok := planbuilder.TestCommandOverride(readme); ok {
						testCommand = override
					}
				}
			}
			mv := mergevalidate.New(wt, mergevalidate.ExecRunner{WorkDir: repoPath}, runTests, testCommand)

			consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), "info")
			progress := func(e batch.ProgressEvent) {
				consoleLog.LogInfo(fmt.Sprintf("[%s] batch %d: %v", e.Type, e.BatchID, e.Extra))
			}
			stop := func(pid string) bool { return s.StopRequested(pid) }

			ex := batch.New(pe, mv, s, progress, stop)

			ctx, cancel := context.WithTimeout(cmd.Context(), 6*time.Hour)
			defer cancel()

			result := ex.ExecutePlan(ctx, projectID, plan)
			for d, blob := range pe.Expertise.Snapshot() {
				summary := fmt.Sprintf("run for project %s updated %s expertise to v%d", projectID, d, blob.Version)
				if err := s.SaveExpertiseBlob(projectID, d, blob, "", summary); err != nil {
					consoleLog.LogWarn(fmt.Sprintf("persist expertise for domain %s: %v", d, err))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nBatches completed: %d/%d, cost: $%.2f, success: %v\n",
				result.BatchesCompleted, result.BatchesTotal, result.TotalCost, result.Success)
			if !result.Success {
				return fmt.Errorf("execution did not complete successfully")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 4, "Maximum concurrent agent sessions")
	cmd.Flags().StringVar(&repoPath, "repo", ".", "Path to the git repository under orchestration")
	cmd.Flags().BoolVar(&runTests, "run-tests", true, "Gate merges on the configured test command")
	cmd.Flags().StringVar(&testCommand, "test-command", "go test ./...", "Command used to validate a merged batch")
	cmd.Flags().Float64Var(&budgetLimit, "budget", 0, "Project cost ceiling in USD (0 disables budget enforcement)")

	return cmd
}

func newEngineWorktreeCommand() *cobra.Command {
	var repoPath string
	wrapper := &cobra.Command{Use: "worktree", Short: "Inspect or reconcile epic worktrees"}

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List worktrees for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.ListWorktrees(args[0])
			if err != nil {
				return err
			}
			for _, w := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "epic=%d branch=%s path=%s status=%s\n", w.EpicID, w.Branch, w.Path, w.Status)
			}
			return nil
		},
	}

	cleanup := &cobra.Command{
		Use:   "cleanup <project-id> <epic-id>",
		Short: "Remove a merged or abandoned epic worktree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			epicID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid epic id %q: %w", args[1], err)
			}
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			wt := worktree.New(repoPath, worktree.ExecGitRunner{}, s)
			if err := wt.Cleanup(cmd.Context(), epicID); err != nil {
				return fmt.Errorf("cleanup worktree: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed worktree for epic %d\n", epicID)
			return nil
		},
	}

	sync := &cobra.Command{
		Use:   "sync <project-id> <epic-id> <merge|rebase>",
		Short: "Bring an epic worktree's branch up to date with main",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			epicID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid epic id %q: %w", args[1], err)
			}
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			wt := worktree.New(repoPath, worktree.ExecGitRunner{}, s)
			if err := wt.SyncFromMain(cmd.Context(), epicID, args[2]); err != nil {
				return fmt.Errorf("sync worktree: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced worktree for epic %d from main via %s\n", epicID, args[2])
			return nil
		},
	}

	recoverCmd := &cobra.Command{
		Use:   "recover <project-id>",
		Short: "Reconcile worktree state across the DB, filesystem, and git",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			wt := worktree.New(repoPath, worktree.ExecGitRunner{}, s)
			notes, err := wt.RecoverState(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("recover worktree state: %w", err)
			}
			if len(notes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No inconsistencies found")
				return nil
			}
			for _, n := range notes {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	wrapper.PersistentFlags().StringVar(&repoPath, "repo", ".", "Path to the git repository under orchestration")
	wrapper.AddCommand(list, cleanup, sync, recoverCmd)
	return wrapper
}

func newEngineReapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Transition stale running sessions to interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.ReapStaleSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("reap stale sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reaped %d stale session(s)\n", n)
			return nil
		},
	}
}

func newEngineGraphCommand() *cobra.Command {
	var asMermaid, asASCII bool
	var batchFilter int

	cmd := &cobra.Command{
		Use:   "graph <project-id>",
		Short: "Render the task dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openEngineStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, err := s.PendingTasks(args[0])
			if err != nil {
				return err
			}

			r := resolver.New()
			if _, err := r.Resolve(tasks); err != nil {
				return fmt.Errorf("resolve graph: %w", err)
			}

			var filter *int
			if cmd.Flags().Changed("batch") {
				filter = &batchFilter
			}

			switch {
			case asMermaid:
				fmt.Fprintln(cmd.OutOrStdout(), r.ToMermaid(filter))
			case asASCII:
				fmt.Fprintln(cmd.OutOrStdout(), r.ToASCII(filter))
			default:
				fmt.Fprintln(cmd.OutOrStdout(), r.ToASCII(filter))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asMermaid, "mermaid", false, "Render as a Mermaid flowchart")
	cmd.Flags().BoolVar(&asASCII, "ascii", false, "Render as ASCII (default)")
	cmd.Flags().IntVar(&batchFilter, "batch", 0, "Restrict rendering to one batch number")

	return cmd
}
