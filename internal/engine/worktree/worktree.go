// Package worktree owns the lifecycle of per-epic isolated git working
// copies: create, merge back into trunk, and clean up.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harrison/conductor/internal/engine/domain"
	"github.com/harrison/conductor/internal/filelock"
)

// ErrMergeConflict is returned by Merge when the VCS reports conflicted files.
var ErrMergeConflict = errors.New("merge conflict")

// ErrCommandTimeout is returned when a VCS invocation exceeds its deadline.
var ErrCommandTimeout = errors.New("vcs command timed out")

// Runner executes a VCS command in a working directory and returns combined
// output. Implementations must honor ctx cancellation/timeout by killing the
// underlying process. A fake implementation is used in tests.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// Store persists worktree rows. The engine's sqlite-backed store implements
// this; tests use an in-memory fake.
type Store interface {
	UpsertWorktree(w domain.Worktree) error
	GetWorktree(epicID int64) (domain.Worktree, bool, error)
	ListWorktrees(projectID string) ([]domain.Worktree, error)
}

// Manager creates, merges, and removes epic worktrees under RepoPath.
type Manager struct {
	RepoPath   string
	WorktreeRoot string // defaults to filepath.Join(RepoPath, ".worktrees")
	Runner     Runner
	Store      Store
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	mu       sync.Mutex
	epicLock map[int64]*sync.Mutex
}

// New constructs a Manager.
func New(repoPath string, runner Runner, store Store) *Manager {
	return &Manager{
		RepoPath:     repoPath,
		WorktreeRoot: filepath.Join(repoPath, ".worktrees"),
		Runner:       runner,
		Store:        store,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		epicLock:     map[int64]*sync.Mutex{},
	}
}

func (m *Manager) lockFor(epicID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.epicLock[epicID]
	if !ok {
		l = &sync.Mutex{}
		m.epicLock[epicID] = l
	}
	return l
}

// lockMain guards the single main-repo checkout shared by every epic's
// merge/sync, across goroutines in this process and across other conductor
// processes pointed at the same repo. The epic-keyed in-memory mutexes above
// only serialize operations on one epic's own worktree; the main checkout
// itself is a separate, process-wide (indeed machine-wide) resource.
func (m *Manager) lockMain(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(m.WorktreeRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create worktree root: %w", err)
	}
	lock := filelock.NewFileLock(filepath.Join(m.WorktreeRoot, ".main.lock"))
	if err := lock.LockWithTimeout(m.WriteTimeout); err != nil {
		return nil, fmt.Errorf("lock main checkout: %w", err)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (m *Manager) run(ctx context.Context, timeout time.Duration, dir string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := m.Runner.Run(cctx, dir, args...)
	if cctx.Err() == context.DeadlineExceeded {
		return out, ErrCommandTimeout
	}
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, out)
	}
	return out, nil
}

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
}

func isReservedName(name string) bool {
	if reservedNames[name] {
		return true
	}
	for _, prefix := range []string{"com", "lpt"} {
		if strings.HasPrefix(name, prefix) && len(name) == len(prefix)+1 {
			if name[len(prefix)] >= '1' && name[len(prefix)] <= '9' {
				return true
			}
		}
	}
	return false
}

var hyphenRun = regexp.MustCompile(`-+`)
var nonBranchChar = regexp.MustCompile(`[^a-z0-9\-.]`)

// SanitizeBranchName reproduces the original Python sanitizer exactly:
// lowercase, spaces/underscores to hyphens, strip everything outside
// [a-z0-9-.], collapse repeated hyphens, trim separators, rewrite reserved
// device names, cap at 100 characters (re-trimmed after truncation), and
// default to "epic" if nothing survives.
func SanitizeBranchName(name string) string {
	branch := strings.ToLower(name)
	branch = strings.ReplaceAll(branch, " ", "-")
	branch = strings.ReplaceAll(branch, "_", "-")
	branch = nonBranchChar.ReplaceAllString(branch, "")
	branch = hyphenRun.ReplaceAllString(branch, "-")
	branch = strings.Trim(branch, "-.")

	if isReservedName(branch) {
		branch = "epic-" + branch
	}

	if len(branch) > 100 {
		branch = branch[:100]
		branch = strings.TrimRight(branch, "-.")
	}

	if branch == "" {
		branch = "epic"
	}
	return branch
}

// BranchName returns the full branch name for an epic.
func BranchName(epicID int64, epicName string) string {
	return fmt.Sprintf("epic-%d-%s", epicID, SanitizeBranchName(epicName))
}

func (m *Manager) mainBranch(ctx context.Context) (string, error) {
	if out, err := m.run(ctx, m.ReadTimeout, m.RepoPath, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		parts := strings.Split(strings.TrimSpace(out), "/")
		return parts[len(parts)-1], nil
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := m.run(ctx, m.ReadTimeout, m.RepoPath, "rev-parse", "--verify", candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New("could not determine main branch")
}

// Create ensures an active worktree exists for the epic, reusing a valid
// existing one, and returns it.
func (m *Manager) Create(ctx context.Context, epicID int64, epicName string) (domain.Worktree, error) {
	lock := m.lockFor(epicID)
	lock.Lock()
	defer lock.Unlock()

	if existing, ok, err := m.Store.GetWorktree(epicID); err == nil && ok && existing.Status == domain.WorktreeActive {
		if _, statErr := os.Stat(existing.Path); statErr == nil {
			return existing, nil
		}
	}

	branch := BranchName(epicID, epicName)
	path := filepath.Join(m.WorktreeRoot, fmt.Sprintf("epic-%d", epicID))

	if _, err := os.Stat(path); err == nil {
		if err := os.RemoveAll(path); err != nil {
			return domain.Worktree{}, fmt.Errorf("remove stale worktree dir: %w", err)
		}
	}
	if err := os.MkdirAll(m.WorktreeRoot, 0o755); err != nil {
		return domain.Worktree{}, fmt.Errorf("create worktree root: %w", err)
	}

	main, err := m.mainBranch(ctx)
	if err != nil {
		return domain.Worktree{}, err
	}

	if _, err := m.run(ctx, m.ReadTimeout, m.RepoPath, "rev-parse", "--verify", branch); err != nil {
		if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "branch", branch, main); err != nil {
			return domain.Worktree{}, fmt.Errorf("create branch %s: %w", branch, err)
		}
	}

	if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "worktree", "add", path, branch); err != nil {
		return domain.Worktree{}, fmt.Errorf("create worktree: %w", err)
	}

	wt := domain.Worktree{
		EpicID:    epicID,
		Path:      path,
		Branch:    branch,
		Status:    domain.WorktreeActive,
		CreatedAt: time.Now(),
	}
	if err := m.Store.UpsertWorktree(wt); err != nil {
		return domain.Worktree{}, fmt.Errorf("persist worktree: %w", err)
	}
	return wt, nil
}

func (m *Manager) hasUncommittedChanges(ctx context.Context, dir string) (bool, error) {
	out, err := m.run(ctx, m.ReadTimeout, dir, "status", "--short")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Merge auto-commits pending changes in the epic's worktree, then merges
// its branch into trunk. On conflict it aborts and transitions the worktree
// to the conflict state without committing anything.
func (m *Manager) Merge(ctx context.Context, epicID int64, squash bool) (string, error) {
	lock := m.lockFor(epicID)
	lock.Lock()
	defer lock.Unlock()

	wt, ok, err := m.Store.GetWorktree(epicID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no worktree for epic %d", epicID)
	}

	if dirty, _ := m.hasUncommittedChanges(ctx, wt.Path); dirty {
		if _, err := m.run(ctx, m.WriteTimeout, wt.Path, "add", "-A"); err != nil {
			return "", err
		}
		msg := fmt.Sprintf("Auto-commit changes before merge (epic %d)", epicID)
		if _, err := m.run(ctx, m.WriteTimeout, wt.Path, "commit", "-m", msg); err != nil {
			return "", err
		}
	}

	unlockMain, err := m.lockMain(ctx)
	if err != nil {
		return "", err
	}
	defer unlockMain()

	main, err := m.mainBranch(ctx)
	if err != nil {
		return "", err
	}
	if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "checkout", main); err != nil {
		// The main branch may already be checked out by this very worktree;
		// proceed against the current head rather than failing outright.
	}

	mergeFlag := "--no-ff"
	if squash {
		mergeFlag = "--squash"
	}
	if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "merge", "--no-commit", mergeFlag, wt.Branch); err != nil {
		m.abortMerge(ctx)
		wt.Status = domain.WorktreeConflict
		_ = m.Store.UpsertWorktree(wt)
		return "", fmt.Errorf("%w: %v", ErrMergeConflict, err)
	}
	if out, err := m.run(ctx, m.ReadTimeout, m.RepoPath, "diff", "--name-only", "--diff-filter=U"); err == nil && strings.TrimSpace(out) != "" {
		m.abortMerge(ctx)
		wt.Status = domain.WorktreeConflict
		_ = m.Store.UpsertWorktree(wt)
		return "", fmt.Errorf("%w: conflicted files: %s", ErrMergeConflict, strings.TrimSpace(out))
	}

	commitMsg := fmt.Sprintf("Merge %s (parallel batch execution)", wt.Branch)
	if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "commit", "-m", commitMsg); err != nil {
		// Tolerate a no-op merge (nothing to commit) as success.
		if !strings.Contains(err.Error(), "nothing to commit") {
			return "", fmt.Errorf("commit merge: %w", err)
		}
	}

	commit, err := m.run(ctx, m.ReadTimeout, m.RepoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	commit = strings.TrimSpace(commit)

	wt.Status = domain.WorktreeMerged
	wt.MergeCommit = commit
	wt.MergedAt = time.Now()
	if err := m.Store.UpsertWorktree(wt); err != nil {
		return "", err
	}
	return commit, nil
}

func (m *Manager) abortMerge(ctx context.Context) {
	_, _ = m.run(ctx, m.WriteTimeout, m.RepoPath, "merge", "--abort")
}

// Cleanup removes the epic's worktree directory and branch. The branch is
// only deleted via a safe (merged-only) delete; it is never force-deleted.
func (m *Manager) Cleanup(ctx context.Context, epicID int64) error {
	lock := m.lockFor(epicID)
	lock.Lock()
	defer lock.Unlock()

	wt, ok, err := m.Store.GetWorktree(epicID)
	if err != nil || !ok {
		return err
	}

	if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "worktree", "remove", wt.Path); err != nil {
		if _, err := m.run(ctx, m.WriteTimeout, m.RepoPath, "worktree", "remove", "--force", wt.Path); err != nil {
			_ = os.RemoveAll(wt.Path)
		}
	}
	_, _ = m.run(ctx, m.WriteTimeout, m.RepoPath, "branch", "-d", wt.Branch)

	wt.Status = domain.WorktreeCleanup
	return m.Store.UpsertWorktree(wt)
}

// SyncFromMain brings changes from main into the epic's worktree branch
// using the requested strategy. Like Merge, a failed sync aborts cleanly and
// transitions the worktree to the conflict state rather than leaving the
// branch half-merged or mid-rebase.
func (m *Manager) SyncFromMain(ctx context.Context, epicID int64, strategy string) error {
	lock := m.lockFor(epicID)
	lock.Lock()
	defer lock.Unlock()

	var verb string
	switch strategy {
	case "merge", "rebase":
		verb = strategy
	default:
		return fmt.Errorf("unknown sync strategy %q: want merge or rebase", strategy)
	}

	wt, ok, err := m.Store.GetWorktree(epicID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no worktree for epic %d", epicID)
	}

	main, err := m.mainBranch(ctx)
	if err != nil {
		return err
	}

	if _, err := m.run(ctx, m.WriteTimeout, wt.Path, verb, main); err != nil {
		if _, abortErr := m.run(ctx, m.WriteTimeout, wt.Path, verb, "--abort"); abortErr != nil {
			// Nothing to abort (e.g. the failure happened before any
			// rebase/merge state was created) - not itself fatal.
			_ = abortErr
		}
		wt.Status = domain.WorktreeConflict
		_ = m.Store.UpsertWorktree(wt)
		return fmt.Errorf("%w: %v", ErrMergeConflict, err)
	}

	if wt.Status == domain.WorktreeConflict {
		wt.Status = domain.WorktreeActive
		if err := m.Store.UpsertWorktree(wt); err != nil {
			return err
		}
	}
	return nil
}

var epicDirPattern = regexp.MustCompile(`^epic-(\d+)$`)

func epicIDFromDirName(name string) (int64, bool) {
	m := epicDirPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	var id int64
	if _, err := fmt.Sscanf(m[1], "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

// RecoverState reconciles three independent views of worktree state for a
// project - the DB rows, the `.worktrees/epic-<id>` directories on disk, and
// `git worktree list`'s own bookkeeping - into one consistent picture. It is
// meant to run once at process startup, after a crash may have left the
// three out of sync. A DB row whose directory has vanished is marked
// cleanup; a worktree directory or git registration with no DB row at all is
// treated as an orphan and removed. It returns a human-readable note per
// correction made, for startup logging.
func (m *Manager) RecoverState(ctx context.Context, projectID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dbRows, err := m.Store.ListWorktrees(projectID)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	dbByEpic := make(map[int64]domain.Worktree, len(dbRows))
	for _, w := range dbRows {
		dbByEpic[w.EpicID] = w
	}

	fsByEpic := map[int64]string{}
	entries, err := os.ReadDir(m.WorktreeRoot)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read worktree root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if id, ok := epicIDFromDirName(e.Name()); ok {
			fsByEpic[id] = filepath.Join(m.WorktreeRoot, e.Name())
		}
	}

	vcsEpics := map[int64]bool{}
	if out, err := m.run(ctx, m.ReadTimeout, m.RepoPath, "worktree", "list", "--porcelain"); err == nil {
		for _, line := range strings.Split(out, "\n") {
			path, ok := strings.CutPrefix(line, "worktree ")
			if !ok {
				continue
			}
			if id, ok := epicIDFromDirName(filepath.Base(strings.TrimSpace(path))); ok {
				vcsEpics[id] = true
			}
		}
	}

	allEpics := map[int64]bool{}
	for id := range dbByEpic {
		allEpics[id] = true
	}
	for id := range fsByEpic {
		allEpics[id] = true
	}
	for id := range vcsEpics {
		allEpics[id] = true
	}

	var notes []string
	for id := range allEpics {
		row, inDB := dbByEpic[id]
		path, onDisk := fsByEpic[id]
		_, inVCS := vcsEpics[id]

		switch {
		case inDB && row.Status == domain.WorktreeActive && (!onDisk || !inVCS):
			row.Status = domain.WorktreeCleanup
			if err := m.Store.UpsertWorktree(row); err != nil {
				return notes, fmt.Errorf("reconcile epic %d: %w", id, err)
			}
			notes = append(notes, fmt.Sprintf("epic %d: active in DB but missing from disk/VCS, marked cleanup", id))

		case !inDB && (onDisk || inVCS):
			if onDisk {
				if err := os.RemoveAll(path); err != nil {
					return notes, fmt.Errorf("remove orphan worktree %s: %w", path, err)
				}
			}
			if inVCS {
				_, _ = m.run(ctx, m.WriteTimeout, m.RepoPath, "worktree", "prune")
			}
			notes = append(notes, fmt.Sprintf("epic %d: orphaned worktree with no DB row, removed", id))
		}
	}
	return notes, nil
}
