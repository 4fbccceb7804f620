package graph

import (
	"fmt"
)

// Node represents a vertex in the dependency graph: a generated unit or an
// original type.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Label string   `json:"label,omitempty"`
}

// Edge represents a directed "references" relationship between two nodes.
type Edge struct {
	From string       `json:"from"`
	To   string       `json:"to"`
	Kind RelationKind `json:"kind"`
}

// Graph is a directed graph whose edges form a set: adding the same
// From/To pair twice keeps one edge.
type Graph struct {
	Nodes map[string]*Node
	Edges []Edge

	order   []string
	edgeSet map[[2]string]int
	succ    map[string][]string
	pred    map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:   make(map[string]*Node),
		Edges:   []Edge{},
		edgeSet: make(map[[2]string]int),
		succ:    make(map[string][]string),
		pred:    make(map[string][]string),
	}
}

// AddNode adds a node if it is not present yet. Insertion order is kept
// and drives traversal order.
func (g *Graph) AddNode(id string, kind NodeKind) *Node {
	if n, ok := g.Nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Kind: kind, Label: id}
	g.Nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddEdge adds from -> to, creating missing nodes with the kind of an
// existing endpoint. Self-loops are dropped. It reports whether a new edge
// was added.
func (g *Graph) AddEdge(from, to string, kind RelationKind) bool {
	if from == to {
		return false
	}
	if _, ok := g.Nodes[from]; !ok {
		g.AddNode(from, KindUnknown)
	}
	if _, ok := g.Nodes[to]; !ok {
		g.AddNode(to, KindUnknown)
	}
	key := [2]string{from, to}
	if _, dup := g.edgeSet[key]; dup {
		return false
	}
	g.edgeSet[key] = len(g.Edges)
	g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: kind})
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	return true
}

func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edgeSet[[2]string{from, to}]
	return ok
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// GetDependencies returns the ids the given node points at.
func (g *Graph) GetDependencies(id string) []string {
	return g.succ[id]
}

// GetDependents returns the ids that point at the given node.
func (g *Graph) GetDependents(id string) []string {
	return g.pred[id]
}

func (g *Graph) InDegree(id string) int {
	return len(g.pred[id])
}

func (g *Graph) OutDegree(id string) int {
	return len(g.succ[id])
}

// TopologicalOrder returns nodes so that every node precedes the nodes that
// depend on it (dependencies first). It fails when the graph has a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	// Kahn's algorithm over the reversed edges.
	remaining := make(map[string]int, len(g.order))
	queue := []string{}
	result := []string{}

	for _, id := range g.order {
		remaining[id] = len(g.succ[id])
		if remaining[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range g.pred[current] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, fmt.Errorf("dependency graph contains cycles")
	}
	return result, nil
}
