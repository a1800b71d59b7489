// Package expertise is the engine's per-project knowledge store: a
// thread-safe domain-tagged blob injected into agent prompts before a
// session, and updated from what each session's tool log reveals afterward.
package expertise

import "time"

// Domain is one of the closed set of expertise tags a task classifies into.
type Domain string

const (
	DomainDatabase   Domain = "database"
	DomainAPI        Domain = "api"
	DomainFrontend   Domain = "frontend"
	DomainTesting    Domain = "testing"
	DomainSecurity   Domain = "security"
	DomainDeployment Domain = "deployment"
	DomainGeneral    Domain = "general"
)

// AllDomains enumerates the classifier's closed tag set.
var AllDomains = []Domain{
	DomainDatabase, DomainAPI, DomainFrontend, DomainTesting,
	DomainSecurity, DomainDeployment, DomainGeneral,
}

// maxLinesPerDomain is the budget a domain's rendered blob is pruned to.
const maxLinesPerDomain = 1000

// maxPatterns and maxTechniques are the fixed caps patterns/techniques are
// trimmed to once a domain is over budget.
const (
	maxPatterns   = 20
	maxTechniques = 15
)

// Pattern is one recorded success pattern: a recurring approach that worked.
type Pattern struct {
	Description string
	FirstSeen   time.Time
	Occurrences int
}

// Technique is one recorded tool-use sequence associated with success.
type Technique struct {
	Description  string
	ToolSequence []string
	FirstSeen    time.Time
}

// FailureSignature records one recurring way a session failed in this domain.
type FailureSignature struct {
	Signature   string
	LastSeen    time.Time
	Occurrences int
}

// Blob is the rendered expertise for one domain, injected verbatim into an
// agent's prompt context.
type Blob struct {
	Domain     Domain
	Version    int
	UpdatedAt  time.Time
	Patterns   []Pattern
	Techniques []Technique
	Failures   []FailureSignature
}

// SessionLog is what the learner extracts from a completed session to fold
// back into the domain's blob.
type SessionLog struct {
	TaskID        int64
	ModifiedFiles []string
	ToolSequence  []string
	Success       bool
	FailureNote   string
}
