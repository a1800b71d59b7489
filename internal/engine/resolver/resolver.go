// Package resolver computes dependency-respecting execution batches from a
// flat task list, detects cycles among hard dependencies, and answers
// diagnostic queries (critical path, Mermaid/ASCII rendering) against the
// last graph it built.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrison/conductor/internal/engine/domain"
)

// Graph is the resolved dependency structure for one task set.
type Graph struct {
	Batches         [][]int64
	Order           []int64
	Cycles          [][]int64
	MissingDeps     map[int64][]int64
	adjacency       map[int64][]int64 // task -> tasks that depend on it (hard edges only)
	inDegree        map[int64]int
	tasks           map[int64]domain.EngineTask
	batchOfTask     map[int64]int
}

// Resolver builds Graphs from task sets and keeps the most recent one for
// visualization and critical-path queries.
type Resolver struct {
	last *Graph
}

// New constructs an empty Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve performs a priority-ordered Kahn's topological sort restricted to
// hard dependency edges. Soft edges are recorded on the task but never
// contribute to in-degree. Tasks left with residual in-degree after the
// sort participate in a cycle, which is then enumerated by DFS.
func (r *Resolver) Resolve(tasks []domain.EngineTask) (*Graph, error) {
	g := &Graph{
		MissingDeps: make(map[int64][]int64),
		adjacency:   make(map[int64][]int64),
		inDegree:    make(map[int64]int),
		tasks:       make(map[int64]domain.EngineTask),
		batchOfTask: make(map[int64]int),
	}

	for _, t := range tasks {
		g.tasks[t.ID] = t
		g.inDegree[t.ID] = 0
	}

	for _, t := range tasks {
		seenDep := make(map[int64]bool, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			if seenDep[dep] {
				continue
			}
			seenDep[dep] = true
			if _, ok := g.tasks[dep]; !ok {
				g.MissingDeps[t.ID] = append(g.MissingDeps[t.ID], dep)
				continue
			}
			if t.DependencyType == domain.DependencySoft {
				continue
			}
			g.adjacency[dep] = append(g.adjacency[dep], t.ID)
			g.inDegree[t.ID]++
		}
	}

	remaining := make(map[int64]int, len(g.inDegree))
	for id, d := range g.inDegree {
		remaining[id] = d
	}

	var batches [][]int64
	for len(remaining) > 0 {
		var layer []int64
		for id, d := range remaining {
			if d == 0 {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			break // residual cycle; stop draining
		}
		sort.Slice(layer, func(i, j int) bool {
			pi, pj := priorityOf(g.tasks[layer[i]]), priorityOf(g.tasks[layer[j]])
			if pi != pj {
				return pi < pj
			}
			return layer[i] < layer[j]
		})
		for _, id := range layer {
			delete(remaining, id)
		}
		batchIdx := len(batches)
		for _, id := range layer {
			g.batchOfTask[id] = batchIdx
		}
		batches = append(batches, layer)
		for _, id := range layer {
			for _, dependent := range g.adjacency[id] {
				if _, ok := remaining[dependent]; ok {
					remaining[dependent]--
				}
			}
		}
	}

	g.Batches = batches
	for _, b := range batches {
		g.Order = append(g.Order, b...)
	}

	if len(remaining) > 0 {
		g.Cycles = detectCycles(remaining, g.adjacency)
	}

	r.last = g
	return g, nil
}

// priorityOf resolves a task's sort key. Only domain.PriorityUnset defaults
// to least-urgent; an explicit priority of 0 is the most urgent value a
// task can carry and must sort before everything else.
func priorityOf(t domain.EngineTask) int {
	if t.Priority == domain.PriorityUnset {
		return 999
	}
	return t.Priority
}

// detectCycles runs DFS from each residual node, reconstructing the path
// back to the first repeated node to produce a simple cycle. Duplicate
// cycles (by member set) are suppressed.
func detectCycles(residual map[int64]int, adjacency map[int64][]int64) [][]int64 {
	visited := make(map[int64]bool)
	var cycles [][]int64
	seen := make(map[string]bool)

	var dfs func(start int64, node int64, path []int64, onPath map[int64]int)
	dfs = func(start, node int64, path []int64, onPath map[int64]int) {
		if visited[node] {
			return
		}
		path = append(path, node)
		onPath[node] = len(path) - 1
		for _, next := range adjacency[node] {
			if _, inResidual := residual[next]; !inResidual {
				continue
			}
			if idx, onThisPath := onPath[next]; onThisPath {
				cycle := append([]int64{}, path[idx:]...)
				key := cycleKey(cycle)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			dfs(start, next, path, onPath)
		}
		delete(onPath, node)
		visited[node] = true
	}

	for id := range residual {
		if !visited[id] {
			dfs(id, id, nil, make(map[int64]int))
		}
	}
	return cycles
}

func cycleKey(cycle []int64) string {
	ids := append([]int64{}, cycle...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// CriticalPath returns one of the longest hard-dependency chains in the
// last resolved graph, via dynamic programming over the topological order.
func (r *Resolver) CriticalPath() []int64 {
	g := r.last
	if g == nil {
		return nil
	}
	type dp struct {
		length int
		prev   int64
		hasPrev bool
	}
	table := make(map[int64]dp)
	for i := len(g.Order) - 1; i >= 0; i-- {
		id := g.Order[i]
		best := dp{length: 1}
		for _, dependent := range g.adjacency[id] {
			if cell, ok := table[dependent]; ok && cell.length+1 > best.length {
				best = dp{length: cell.length + 1, prev: dependent, hasPrev: true}
			}
		}
		table[id] = best
	}

	var start int64
	bestLen := 0
	for id, cell := range table {
		if cell.length > bestLen {
			bestLen = cell.length
			start = id
		}
	}
	if bestLen == 0 {
		return nil
	}

	var path []int64
	cur := start
	for {
		path = append(path, cur)
		cell := table[cur]
		if !cell.hasPrev {
			break
		}
		cur = cell.prev
	}
	return path
}

// ToMermaid renders the last resolved graph as a Mermaid flowchart, with
// optional filtering by batch number (empty means no filter).
func (r *Resolver) ToMermaid(batchFilter *int) string {
	g := r.last
	if g == nil {
		return "flowchart TD\n"
	}
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	for id := range g.adjacency {
		if batchFilter != nil && g.batchOfTask[id] != *batchFilter {
			continue
		}
		for _, dependent := range g.adjacency[id] {
			fmt.Fprintf(&b, "    T%d --> T%d\n", id, dependent)
		}
	}
	return b.String()
}

// ToASCII renders the last resolved graph as a fixed-width batch listing,
// with optional filtering by batch number.
func (r *Resolver) ToASCII(batchFilter *int) string {
	g := r.last
	if g == nil {
		return ""
	}
	var b strings.Builder
	for i, batch := range g.Batches {
		if batchFilter != nil && i != *batchFilter {
			continue
		}
		fmt.Fprintf(&b, "Batch %d:\n", i)
		for _, id := range batch {
			fmt.Fprintf(&b, "  - task %d\n", id)
		}
	}
	return b.String()
}
