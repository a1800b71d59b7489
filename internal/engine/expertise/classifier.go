package expertise

import "strings"

// keywordWeights mirrors the weighted-keyword scoring idiom used for task
// complexity elsewhere in the engine, applied here to domain classification
// instead.
var keywordWeights = map[Domain][]string{
	DomainDatabase: {
		"database", "sql", "migration", "schema", "query", "table", "index",
		"postgres", "sqlite", "orm", "transaction",
	},
	DomainAPI: {
		"api", "endpoint", "handler", "route", "rest", "grpc", "request",
		"response", "middleware", "controller",
	},
	DomainFrontend: {
		"ui", "component", "react", "css", "html", "frontend", "render",
		"button", "page", "style",
	},
	DomainTesting: {
		"test", "spec", "mock", "fixture", "assert", "coverage", "unit test",
		"integration test", "e2e",
	},
	DomainSecurity: {
		"auth", "security", "token", "encrypt", "vulnerability", "permission",
		"credential", "oauth", "sanitize", "injection",
	},
	DomainDeployment: {
		"deploy", "ci", "cd", "docker", "kubernetes", "pipeline", "release",
		"build", "infra", "terraform",
	},
}

// pathHints gives a smaller path-prefix-based boost on top of the keyword
// score, since a task's predicted files are often a stronger signal than
// its prose description.
var pathHints = map[Domain][]string{
	DomainDatabase:   {"migrations/", "schema", "models/", "db/"},
	DomainAPI:        {"api/", "handlers/", "routes/", "controllers/"},
	DomainFrontend:   {"components/", "ui/", "static/", ".tsx", ".css"},
	DomainTesting:    {"_test.go", "test/", "spec/", "tests/"},
	DomainSecurity:   {"auth/", "security/"},
	DomainDeployment: {"deploy/", ".github/", "docker/", "k8s/"},
}

const (
	keywordWeight = 1.0
	pathWeight    = 1.5
)

// Classify scores description and predictedFiles against each domain's
// keyword and path-hint sets and returns the highest-scoring domain,
// defaulting to DomainGeneral when nothing matches.
func Classify(description string, predictedFiles []string) Domain {
	lowerDesc := strings.ToLower(description)
	var lowerFiles []string
	for _, f := range predictedFiles {
		lowerFiles = append(lowerFiles, strings.ToLower(f))
	}

	best := DomainGeneral
	bestScore := 0.0

	for _, d := range []Domain{DomainDatabase, DomainAPI, DomainFrontend, DomainTesting, DomainSecurity, DomainDeployment} {
		score := 0.0
		for _, kw := range keywordWeights[d] {
			if strings.Contains(lowerDesc, kw) {
				score += keywordWeight
			}
		}
		for _, hint := range pathHints[d] {
			for _, f := range lowerFiles {
				if strings.Contains(f, hint) {
					score += pathWeight
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best
}
