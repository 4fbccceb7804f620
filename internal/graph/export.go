package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Export is the node/edge list handed to visualization tools.
type Export struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (g *Graph) Export() Export {
	out := Export{Nodes: make([]Node, 0, len(g.order)), Edges: make([]Edge, len(g.Edges))}
	for _, id := range g.order {
		out.Nodes = append(out.Nodes, *g.Nodes[id])
	}
	copy(out.Edges, g.Edges)
	return out
}

// FromExport rebuilds a graph from a node/edge list.
func FromExport(e Export) *Graph {
	g := NewGraph()
	for _, n := range e.Nodes {
		node := g.AddNode(n.ID, n.Kind)
		if n.Label != "" {
			node.Label = n.Label
		}
	}
	for _, edge := range e.Edges {
		g.AddEdge(edge.From, edge.To, edge.Kind)
	}
	return g
}

// SaveJSON writes the node/edge list to a file.
func (g *Graph) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(g.Export()); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// DOT renders the graph in Graphviz format. Edges that belong to one of the
// highlighted cycles are drawn in red.
func (g *Graph) DOT(name string, highlight []Cycle) string {
	if name == "" {
		name = "Dependencies"
	}
	hot := make(map[[2]string]bool)
	for _, c := range highlight {
		for _, e := range c.Edges() {
			hot[[2]string{e.From, e.To}] = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", name)
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=box, style=rounded];\n\n")
	for _, id := range g.order {
		if g.InDegree(id) == 0 && g.OutDegree(id) == 0 {
			fmt.Fprintf(&b, "    %q;\n", id)
		}
	}
	for _, e := range g.Edges {
		if hot[[2]string{e.From, e.To}] {
			fmt.Fprintf(&b, "    %q -> %q [color=red];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&b, "    %q -> %q;\n", e.From, e.To)
	}
	b.WriteString("}\n")
	return b.String()
}
