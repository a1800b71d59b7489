// Package modelselect recommends an agent tier for a task from its textual
// complexity, historical success rate, and the project's remaining budget.
package modelselect

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harrison/conductor/internal/engine/domain"
)

// Pricing is per-1M-token USD pricing for one tier.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// DefaultPricing mirrors the corpus's cross-checked Haiku/Sonnet/Opus tiers.
func DefaultPricing() map[domain.ModelTier]Pricing {
	return map[domain.ModelTier]Pricing{
		domain.TierCheap:   {InputPer1M: 0.25, OutputPer1M: 1.25},
		domain.TierMid:     {InputPer1M: 3.00, OutputPer1M: 15.00},
		domain.TierPremium: {InputPer1M: 15.00, OutputPer1M: 75.00},
	}
}

const (
	complexityHaikuMax  = 0.3
	complexitySonnetMax = 0.7

	performanceCacheTTL       = 5 * time.Minute
	performanceMinSamples     = 3
	performanceSuccessThresh  = 0.7
	performanceDowngradeThresh = 0.9
	performanceDowngradeFloor  = 0.85
)

var reasoningKeywords = []string{
	"algorithm", "architecture", "design", "optimize", "refactor", "implement logic",
	"state management", "workflow", "strategy", "pattern", "approach", "solve",
	"analyze", "calculate",
}
var reasoningMultiStepKeywords = []string{
	"multi-step", "sequence", "orchestrate", "coordinate", "pipeline", "flow", "process", "chain",
}
var domainKeywords = []string{
	"machine learning", "ml model", "cryptography", "crypto", "compiler", "graphics", "gpu", "distributed systems",
}
var contextKeywords = []string{
	"refactor", "integrate", "legacy", "migrate", "migration",
}

// Complexity is the per-dimension scoring breakdown for one task.
type Complexity struct {
	ReasoningDepth     float64
	CodeComplexity     float64
	DomainSpecificity  float64
	ContextRequirements float64
	Overall            float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func scoreReasoningDepth(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range reasoningKeywords {
		if strings.Contains(lower, kw) {
			score += 0.2
		}
	}
	for _, kw := range reasoningMultiStepKeywords {
		if strings.Contains(lower, kw) {
			score += 0.3
		}
	}
	for kw, bonus := range map[string]float64{
		"complex": 0.25, "advanced": 0.2, "sophisticated": 0.2, "distributed": 0.25,
	} {
		if strings.Contains(lower, kw) {
			score += bonus
		}
	}
	return clamp01(score)
}

func scoreCodeComplexity(text string, fileCount int) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	if fileCount > 3 {
		score += 0.3
	} else if fileCount > 1 {
		score += 0.15
	}
	for _, kw := range []string{"create", "new module", "new service", "api", "schema"} {
		if strings.Contains(lower, kw) {
			score += 0.15
		}
	}
	for _, kw := range []string{"simple", "trivial", "minor", "typo"} {
		if strings.Contains(lower, kw) {
			score -= 0.3
		}
	}
	return clamp01(score)
}

func scoreDomainSpecificity(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range domainKeywords {
		if strings.Contains(lower, kw) {
			score += 0.35
		}
	}
	return clamp01(score)
}

func scoreContextRequirements(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, kw := range contextKeywords {
		if strings.Contains(lower, kw) {
			score += 0.25
		}
	}
	return clamp01(score)
}

// AnalyzeComplexity scores a task along four dimensions and combines them
// with the corpus's weights: 0.35 / 0.30 / 0.20 / 0.15.
func AnalyzeComplexity(task domain.EngineTask) Complexity {
	text := task.Description + " " + task.Action
	c := Complexity{
		ReasoningDepth:      scoreReasoningDepth(text),
		CodeComplexity:      scoreCodeComplexity(text, len(task.PredictedFiles)),
		DomainSpecificity:   scoreDomainSpecificity(text),
		ContextRequirements: scoreContextRequirements(text),
	}
	c.Overall = clamp01(0.35*c.ReasoningDepth + 0.30*c.CodeComplexity + 0.20*c.DomainSpecificity + 0.15*c.ContextRequirements)
	return c
}

func tierForScore(score float64) domain.ModelTier {
	switch {
	case score < complexityHaikuMax:
		return domain.TierCheap
	case score <= complexitySonnetMax:
		return domain.TierMid
	default:
		return domain.TierPremium
	}
}

var tierOrder = []domain.ModelTier{domain.TierCheap, domain.TierMid, domain.TierPremium}

func tierIndex(t domain.ModelTier) int {
	for i, v := range tierOrder {
		if v == t {
			return i
		}
	}
	return 1
}

// successCell is one aggregated (taskType, tier) cache entry.
type successCell struct {
	successes int
	total     int
	cachedAt  time.Time
}

func (c successCell) rate() float64 {
	if c.total == 0 {
		return 0
	}
	return float64(c.successes) / float64(c.total)
}

// BudgetSource reports the project's configured limit and spend-to-date.
type BudgetSource interface {
	RemainingUSD(projectID string) (remaining, limit float64, ok bool)
}

// Recommendation is the selector's output for one task.
type Recommendation struct {
	Tier          domain.ModelTier
	Reasoning     string
	EstimatedCost float64
	Complexity    Complexity
}

// Selector recommends model tiers, tracking historical per-task-type
// success rates with a 5-minute TTL cache.
type Selector struct {
	Pricing map[domain.ModelTier]Pricing
	Budget  BudgetSource

	// PriorityOverrides maps an exact task priority to a forced tier,
	// e.g. {1: TierPremium}. Checked before complexity analysis.
	PriorityOverrides map[int]domain.ModelTier
	// TaskTypeOverrides maps a lowercase keyword matched against the
	// task description to a forced tier, e.g. {"hotfix": TierPremium}.
	// The first matching key (in map iteration, stabilized by sorting
	// keys) wins. Checked after PriorityOverrides, before complexity.
	TaskTypeOverrides map[string]domain.ModelTier

	mu    sync.Mutex
	cache map[string]successCell
}

// New constructs a Selector with default pricing and the corpus's default
// priority override (priority 1 escalates to premium).
func New(budget BudgetSource) *Selector {
	return &Selector{
		Pricing:           DefaultPricing(),
		Budget:            budget,
		PriorityOverrides: map[int]domain.ModelTier{1: domain.TierPremium},
		cache:             map[string]successCell{},
	}
}

func taskTypeOf(task domain.EngineTask) string {
	lower := strings.ToLower(task.Description)
	switch {
	case strings.Contains(lower, "test"):
		return "testing"
	case strings.Contains(lower, "api") || strings.Contains(lower, "endpoint"):
		return "api"
	case strings.Contains(lower, "ui") || strings.Contains(lower, "frontend") || strings.Contains(lower, "component"):
		return "frontend"
	case strings.Contains(lower, "database") || strings.Contains(lower, "schema") || strings.Contains(lower, "migration"):
		return "database"
	default:
		return "general"
	}
}

// matchTaskTypeOverride checks TaskTypeOverrides keywords against the task
// description, in sorted key order so the match is deterministic when more
// than one keyword is present.
func (s *Selector) matchTaskTypeOverride(task domain.EngineTask) (domain.ModelTier, string, bool) {
	if len(s.TaskTypeOverrides) == 0 {
		return "", "", false
	}
	lower := strings.ToLower(task.Description)
	keywords := make([]string, 0, len(s.TaskTypeOverrides))
	for kw := range s.TaskTypeOverrides {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return s.TaskTypeOverrides[kw], kw, true
		}
	}
	return "", "", false
}

func cacheKey(taskType string, tier domain.ModelTier) string {
	return taskType + "|" + string(tier)
}

// RecordOutcome feeds an agent run's outcome into the historical cache,
// invalidating any stale entries older than the TTL as it goes.
func (s *Selector) RecordOutcome(task domain.EngineTask, tier domain.ModelTier, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cacheKey(taskTypeOf(task), tier)
	cell := s.cache[key]
	if time.Since(cell.cachedAt) > performanceCacheTTL {
		cell = successCell{}
	}
	cell.total++
	if success {
		cell.successes++
	}
	cell.cachedAt = time.Now()
	s.cache[key] = cell
}

func (s *Selector) lookup(taskType string, tier domain.ModelTier) (successCell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cell, ok := s.cache[cacheKey(taskType, tier)]
	if !ok || time.Since(cell.cachedAt) > performanceCacheTTL || cell.total < performanceMinSamples {
		return successCell{}, false
	}
	return cell, true
}

// Recommend runs the full selection pipeline: override > priority > task-type
// > complexity analysis > historical adjustment > budget enforcement.
func (s *Selector) Recommend(task domain.EngineTask, projectID string) Recommendation {
	var reasons []string

	if task.ModelOverride != "" {
		tier := domain.ModelTier(task.ModelOverride)
		return Recommendation{Tier: tier, Reasoning: "explicit override", EstimatedCost: s.estimateCost(tier)}
	}

	if tier, ok := s.PriorityOverrides[task.Priority]; ok {
		reasons = append(reasons, fmt.Sprintf("priority %d overridden to %s", task.Priority, tier))
		return s.enforceBudget(tier, projectID, reasons)
	}

	if tier, kw, ok := s.matchTaskTypeOverride(task); ok {
		reasons = append(reasons, fmt.Sprintf("task-type override %q matched %q", kw, tier))
		return s.enforceBudget(tier, projectID, reasons)
	}

	complexity := AnalyzeComplexity(task)
	tier := tierForScore(complexity.Overall)
	reasons = append(reasons, "complexity score "+formatScore(complexity.Overall))

	taskType := taskTypeOf(task)
	if cell, ok := s.lookup(taskType, tier); ok {
		idx := tierIndex(tier)
		if cell.rate() < performanceSuccessThresh && idx < len(tierOrder)-1 {
			if upCell, upOK := s.lookup(taskType, tierOrder[idx+1]); upOK && upCell.rate() > cell.rate() {
				tier = tierOrder[idx+1]
				reasons = append(reasons, "upgraded after low historical success rate")
			}
		} else if cell.rate() >= performanceDowngradeThresh && idx > 0 {
			if downCell, downOK := s.lookup(taskType, tierOrder[idx-1]); downOK && downCell.rate() >= performanceDowngradeFloor {
				tier = tierOrder[idx-1]
				reasons = append(reasons, "downgraded for cost given strong historical success at cheaper tier")
			}
		}
	}

	return s.enforceBudget(tier, projectID, reasons)
}

func (s *Selector) enforceBudget(tier domain.ModelTier, projectID string, reasons []string) Recommendation {
	if s.Budget != nil {
		if remaining, limit, ok := s.Budget.RemainingUSD(projectID); ok && limit > 0 {
			switch {
			case remaining <= 0:
				tier = domain.TierCheap
				reasons = append(reasons, "budget exhausted, forced cheap")
			case remaining < 0.05*limit:
				tier = domain.TierCheap
				reasons = append(reasons, "budget nearly exhausted, forced cheap")
			case remaining < 0.2*limit && tier == domain.TierPremium:
				tier = domain.TierMid
				reasons = append(reasons, "budget low, downgraded from premium")
			}
		}
	}
	return Recommendation{
		Tier:          tier,
		Reasoning:     strings.Join(reasons, "; "),
		EstimatedCost: s.estimateCost(tier),
	}
}

func (s *Selector) estimateCost(tier domain.ModelTier) float64 {
	const avgInputTokens, avgOutputTokens = 4000.0, 1500.0
	p, ok := s.Pricing[tier]
	if !ok {
		return 0
	}
	return (avgInputTokens/1_000_000)*p.InputPer1M + (avgOutputTokens/1_000_000)*p.OutputPer1M
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
