package expertise

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestObserveThenGetRendersPattern(t *testing.T) {
	s := New()
	s.Observe("add an index to the orders table", []string{"migrations/0002_index.sql"}, SessionLog{
		TaskID:        1,
		ModifiedFiles: []string{"migrations/0002_index.sql"},
		ToolSequence:  []string{"read", "edit", "test"},
		Success:       true,
	})

	blob := s.Get(DomainDatabase)
	if blob == "" {
		t.Fatal("expected a non-empty blob after a successful observation")
	}
	if !strings.Contains(blob, "Known-good patterns") {
		t.Errorf("expected rendered blob to contain a pattern section, got %q", blob)
	}
}

func TestObserveRecordsFailureSignature(t *testing.T) {
	s := New()
	s.Observe("fix the auth token refresh bug", nil, SessionLog{
		TaskID:      2,
		Success:     false,
		FailureNote: "token refresh races with logout",
	})

	blob := s.Get(DomainSecurity)
	if !strings.Contains(blob, "token refresh races with logout") {
		t.Errorf("expected failure signature in blob, got %q", blob)
	}
}

func TestObserveIsIdempotentOnRepeatedFailure(t *testing.T) {
	s := New()
	log := SessionLog{TaskID: 3, Success: false, FailureNote: "duplicate index migration"}
	s.Observe("add a database index", nil, log)
	s.Observe("add a database index", nil, log)

	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.blobs[DomainDatabase]
	if len(b.Failures) != 1 {
		t.Fatalf("expected a single merged failure signature, got %d", len(b.Failures))
	}
	if b.Failures[0].Occurrences != 2 {
		t.Errorf("expected occurrences=2, got %d", b.Failures[0].Occurrences)
	}
}

func TestGetOnUnseenDomainIsEmpty(t *testing.T) {
	s := New()
	if got := s.Get(DomainFrontend); got != "" {
		t.Errorf("expected empty blob for unseen domain, got %q", got)
	}
}

func TestEnforceBudgetCapsPatterns(t *testing.T) {
	b := &Blob{Domain: DomainAPI}
	now := time.Now()
	for i := 0; i < maxPatterns+5; i++ {
		mergePattern(b, fmt.Sprintf("pattern-%d", i), now)
	}
	enforceBudget(b)
	if len(b.Patterns) > maxPatterns {
		t.Errorf("expected patterns capped at %d, got %d", maxPatterns, len(b.Patterns))
	}
}

func TestVersionIncrementsOnEachObservation(t *testing.T) {
	s := New()
	s.Observe("add a database index", nil, SessionLog{TaskID: 1, Success: true})
	s.Observe("add another database index", nil, SessionLog{TaskID: 2, Success: true})

	s.mu.RLock()
	defer s.mu.RUnlock()
	if got := s.blobs[DomainDatabase].Version; got != 2 {
		t.Errorf("expected version 2 after two observations, got %d", got)
	}
}
