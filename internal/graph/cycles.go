package graph

import (
	"sort"
	"strings"
)

// Cycle is a closed path in visitation order. The closing edge runs from the
// last node back to the first.
type Cycle struct {
	Path []string `json:"path"`
}

// Edges returns the cycle's edges in order, closing edge last.
func (c Cycle) Edges() []Edge {
	n := len(c.Path)
	out := make([]Edge, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Edge{From: c.Path[i], To: c.Path[(i+1)%n]})
	}
	return out
}

// String renders the path with the first node repeated at the end:
// "A -> B -> A".
func (c Cycle) String() string {
	if len(c.Path) == 0 {
		return ""
	}
	return strings.Join(append(append([]string{}, c.Path...), c.Path[0]), " -> ")
}

// key identifies a cycle by its node set.
func (c Cycle) key() string {
	nodes := append([]string{}, c.Path...)
	sort.Strings(nodes)
	return strings.Join(nodes, "\x00")
}

type frame struct {
	node string
	next int
}

// DetectCycles runs an explicit-stack depth-first traversal over the whole
// graph, starting from nodes in insertion order. Cycles are deduplicated by
// node set.
func (g *Graph) DetectCycles() []Cycle {
	return g.detect(g.order)
}

// DetectCyclesFrom is DetectCycles with the traversal starting at start.
func (g *Graph) DetectCyclesFrom(start string) []Cycle {
	starts := make([]string, 0, len(g.order)+1)
	starts = append(starts, start)
	for _, id := range g.order {
		if id != start {
			starts = append(starts, id)
		}
	}
	return g.detect(starts)
}

func (g *Graph) detect(starts []string) []Cycle {
	visited := make(map[string]bool, len(g.order))
	onStack := make(map[string]bool)
	seen := make(map[string]bool)
	var cycles []Cycle

	for _, start := range starts {
		if _, ok := g.Nodes[start]; !ok || visited[start] {
			continue
		}
		visited[start] = true
		onStack[start] = true
		stack := []frame{{node: start}}
		path := []string{start}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succ := g.succ[top.node]
			if top.next < len(succ) {
				next := succ[top.next]
				top.next++
				if onStack[next] {
					c := Cycle{Path: append([]string{}, path[indexOf(path, next):]...)}
					if k := c.key(); !seen[k] {
						seen[k] = true
						cycles = append(cycles, c)
					}
					continue
				}
				if visited[next] {
					continue
				}
				visited[next] = true
				onStack[next] = true
				path = append(path, next)
				stack = append(stack, frame{node: next})
				continue
			}
			onStack[top.node] = false
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}

func indexOf(path []string, id string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == id {
			return i
		}
	}
	return 0
}

// SuggestBreak picks the cycle edge whose source has the fewest incoming
// edges in the whole graph. Ties go to the earliest edge in cycle order.
func (g *Graph) SuggestBreak(c Cycle) Edge {
	edges := c.Edges()
	if len(edges) == 0 {
		return Edge{}
	}
	best := 0
	for i := 1; i < len(edges); i++ {
		if g.InDegree(edges[i].From) < g.InDegree(edges[best].From) {
			best = i
		}
	}
	e := edges[best]
	if idx, ok := g.edgeSet[[2]string{e.From, e.To}]; ok {
		e.Kind = g.Edges[idx].Kind
	}
	return e
}
