package planbuilder

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/harrison/conductor/internal/engine/domain"
)

// filePatterns extract plausible file references from free-form task text.
// Ported from the conservative regex set used by the original plan builder:
// backtick-quoted names, quoted paths with a separator, explicit path-prefix
// tokens, and a small allow-list of root config/entry files.
var filePatterns = []*regexp.Regexp{
	regexp.MustCompile("`([\\w./\\-]+\\.\\w+)`"),
	regexp.MustCompile(`"([\w./\-]*/[\w./\-]+\.\w+)"`),
	regexp.MustCompile(`'([\w./\-]*/[\w./\-]+\.\w+)'`),
	regexp.MustCompile(`\b((?:src|lib|server|client|routes|components|services|middleware|migrations|utils|hooks|api|core|web-ui|tests|schema)/[\w./\-]+\.\w+)\b`),
	regexp.MustCompile(`(?:^|[^\w./\-])((?:index|main|app|config|schema|package|tsconfig|vite\.config|setup|init)\.(?:py|ts|tsx|js|jsx|json|yaml|sql))\b`),
}

// fileExclusions is a stop-list of ecosystem/product names that resemble
// filenames but are not actual file references.
var fileExclusions = map[string]bool{
	"node.js": true, "react.js": true, "vue.js": true, "next.js": true,
	"express.js": true, "sqlite": true, "postgresql": true, "mongodb": true,
	"redis": true, "docker": true, "kubernetes": true, "typescript": true,
	"javascript": true, "python": true, "golang": true, "rust": true,
}

func extractFileReferences(text string) []string {
	found := map[string]bool{}
	for _, pattern := range filePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			candidate := m[1]
			lower := strings.ToLower(candidate)
			if fileExclusions[lower] {
				continue
			}
			hasSeparator := strings.Contains(candidate, "/")
			isRootFile := isKnownRootFile(lower)
			if hasSeparator || isRootFile {
				found[candidate] = true
			}
		}
	}
	out := make([]string, 0, len(found))
	for f := range found {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

var rootFileStems = []string{"index", "main", "app", "config", "schema", "package", "tsconfig", "vite.config", "setup", "init"}

func isKnownRootFile(lower string) bool {
	for _, stem := range rootFileStems {
		if strings.HasPrefix(lower, stem+".") {
			return true
		}
	}
	return false
}

// AnalyzeFileConflicts predicts same-file and same-directory conflicts by
// scanning each task's description and action text for file references.
// Directory conflicts are only emitted for a task pair not already covered
// by a stronger same-file conflict.
func AnalyzeFileConflicts(tasks []domain.EngineTask) ([]domain.PredictedConflict, map[int64][]string) {
	predicted := make(map[int64][]string, len(tasks))
	fileToTasks := map[string][]int64{}
	dirToTasks := map[string][]int64{}

	for _, t := range tasks {
		refs := extractFileReferences(t.Description + " " + t.Action)
		predicted[t.ID] = refs
		for _, f := range refs {
			fileToTasks[f] = append(fileToTasks[f], t.ID)
			if idx := strings.LastIndex(f, "/"); idx > 0 {
				dir := f[:idx]
				dirToTasks[dir] = append(dirToTasks[dir], t.ID)
			}
		}
	}

	var conflicts []domain.PredictedConflict
	processedPairs := map[string]bool{}

	for file, ids := range fileToTasks {
		ids = uniqueSorted(ids)
		if len(ids) < 2 {
			continue
		}
		conflicts = append(conflicts, domain.PredictedConflict{
			TaskIDs:        ids,
			PredictedFiles: []string{file},
			Kind:           domain.ConflictSameFile,
		})
		markPairs(processedPairs, ids)
	}

	for dir, ids := range dirToTasks {
		ids = uniqueSorted(ids)
		if len(ids) < 2 {
			continue
		}
		if allPairsProcessed(processedPairs, ids) {
			continue
		}
		conflicts = append(conflicts, domain.PredictedConflict{
			TaskIDs:        ids,
			PredictedFiles: []string{dir},
			Kind:           domain.ConflictSameDirectory,
		})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].TaskIDs[0] < conflicts[j].TaskIDs[0]
	})

	return conflicts, predicted
}

func uniqueSorted(ids []int64) []int64 {
	set := map[int64]bool{}
	for _, id := range ids {
		set[id] = true
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func pairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func markPairs(processed map[string]bool, ids []int64) {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			processed[pairKey(ids[i], ids[j])] = true
		}
	}
}

func allPairsProcessed(processed map[string]bool, ids []int64) bool {
	if len(ids) < 2 {
		return false
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if !processed[pairKey(ids[i], ids[j])] {
				return false
			}
		}
	}
	return true
}
