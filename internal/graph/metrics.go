package graph

// Metrics summarizes graph shape for run reports.
type Metrics struct {
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	MaxFanIn  int    `json:"max_fan_in"`
	MaxFanOut int    `json:"max_fan_out"`
	Hub       string `json:"hub,omitempty"`
	Isolated  int    `json:"isolated"`
}

func (g *Graph) Metrics() Metrics {
	m := Metrics{}
	if g == nil {
		return m
	}
	m.Nodes = len(g.order)
	m.Edges = len(g.Edges)
	for _, id := range g.order {
		in, out := g.InDegree(id), g.OutDegree(id)
		if in > m.MaxFanIn {
			m.MaxFanIn = in
			m.Hub = id
		}
		if out > m.MaxFanOut {
			m.MaxFanOut = out
		}
		if in == 0 && out == 0 {
			m.Isolated++
		}
	}
	return m
}
