package expertise

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store is the thread-safe per-project knowledge store the executor
// consults for a domain's blob and feeds session logs back into. The core
// only depends on Get and Observe; everything else here is the supporting
// machinery those two calls need.
type Store struct {
	mu    sync.RWMutex
	blobs map[Domain]*Blob
}

// New returns an empty Store, one blob per domain created lazily on first
// write.
func New() *Store {
	return &Store{blobs: make(map[Domain]*Blob)}
}

// Seed preloads blobs (typically read back from persistent storage) before a
// run begins, so expertise accumulated in prior runs is available from the
// first task onward.
func (s *Store) Seed(blobs map[Domain]Blob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for d, b := range blobs {
		b := b
		s.blobs[d] = &b
	}
}

// Snapshot returns a copy of every domain blob touched this run, for the
// caller to persist.
func (s *Store) Snapshot() map[Domain]Blob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Domain]Blob, len(s.blobs))
	for d, b := range s.blobs {
		out[d] = *b
	}
	return out
}

// Get returns the rendered expertise blob for a domain as prompt-ready text.
// A domain with no recorded history returns an empty string rather than nil,
// so callers can unconditionally append it to a prompt.
func (s *Store) Get(domain Domain) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[domain]
	if !ok {
		return ""
	}
	return render(b)
}

// Observe folds one completed session's extracted learnings into its task's
// classified domain, then enforces the per-domain budget.
func (s *Store) Observe(taskDescription string, predictedFiles []string, log SessionLog) {
	domain := Classify(taskDescription, predictedFiles)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[domain]
	if !ok {
		b = &Blob{Domain: domain}
		s.blobs[domain] = b
	}

	now := time.Now()
	if log.Success {
		mergePattern(b, describeSuccess(log), now)
		if len(log.ToolSequence) > 0 {
			mergeTechnique(b, log.ToolSequence, now)
		}
	} else if log.FailureNote != "" {
		mergeFailure(b, log.FailureNote, now)
	}

	b.Version++
	b.UpdatedAt = now
	enforceBudget(b)
}

func describeSuccess(log SessionLog) string {
	if len(log.ModifiedFiles) == 0 {
		return fmt.Sprintf("task %d succeeded", log.TaskID)
	}
	return fmt.Sprintf("task %d succeeded touching %s", log.TaskID, strings.Join(log.ModifiedFiles, ", "))
}

func mergePattern(b *Blob, description string, now time.Time) {
	for i := range b.Patterns {
		if b.Patterns[i].Description == description {
			b.Patterns[i].Occurrences++
			return
		}
	}
	b.Patterns = append(b.Patterns, Pattern{Description: description, FirstSeen: now, Occurrences: 1})
}

func mergeTechnique(b *Blob, sequence []string, now time.Time) {
	key := strings.Join(sequence, "->")
	for _, t := range b.Techniques {
		if strings.Join(t.ToolSequence, "->") == key {
			return
		}
	}
	b.Techniques = append(b.Techniques, Technique{
		Description:  fmt.Sprintf("tool sequence: %s", key),
		ToolSequence: sequence,
		FirstSeen:    now,
	})
}

func mergeFailure(b *Blob, signature string, now time.Time) {
	for i := range b.Failures {
		if b.Failures[i].Signature == signature {
			b.Failures[i].Occurrences++
			b.Failures[i].LastSeen = now
			return
		}
	}
	b.Failures = append(b.Failures, FailureSignature{Signature: signature, LastSeen: now, Occurrences: 1})
}

// enforceBudget prunes oldest failures first, then trims patterns and
// techniques to their fixed caps, until the rendered blob fits the
// per-domain line budget.
func enforceBudget(b *Blob) {
	for len(render(b)) > 0 && lineCount(render(b)) > maxLinesPerDomain && len(b.Failures) > 0 {
		oldestIdx := 0
		for i := range b.Failures {
			if b.Failures[i].LastSeen.Before(b.Failures[oldestIdx].LastSeen) {
				oldestIdx = i
			}
		}
		b.Failures = append(b.Failures[:oldestIdx], b.Failures[oldestIdx+1:]...)
	}

	if len(b.Patterns) > maxPatterns {
		b.Patterns = b.Patterns[len(b.Patterns)-maxPatterns:]
	}
	if len(b.Techniques) > maxTechniques {
		b.Techniques = b.Techniques[len(b.Techniques)-maxTechniques:]
	}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// render flattens a blob into the text injected into an agent's prompt.
func render(b *Blob) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s expertise (v%d)\n", b.Domain, b.Version)
	if len(b.Patterns) > 0 {
		sb.WriteString("### Known-good patterns\n")
		for _, p := range b.Patterns {
			fmt.Fprintf(&sb, "- %s (seen %dx)\n", p.Description, p.Occurrences)
		}
	}
	if len(b.Techniques) > 0 {
		sb.WriteString("### Effective tool sequences\n")
		for _, t := range b.Techniques {
			fmt.Fprintf(&sb, "- %s\n", t.Description)
		}
	}
	if len(b.Failures) > 0 {
		sb.WriteString("### Known failure signatures to avoid\n")
		for _, f := range b.Failures {
			fmt.Fprintf(&sb, "- %s (seen %dx)\n", f.Signature, f.Occurrences)
		}
	}
	return sb.String()
}
