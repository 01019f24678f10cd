package graph

import (
	"context"

	dag "github.com/begmaroman/go-dag"
)

// InMemoryProvider is a concrete, constructible Provider: given a flat list
// of vertices (each naming its own upstreams), it computes weakly connected
// components and levels each one topologically, the way the teacher's DAG
// package levels a workflow's tasks — here levels come from the graph
// itself rather than from a separately-built dependency map.
type InMemoryProvider struct {
	components []*Component
}

// NewInMemoryProvider builds and levels the connected components of the
// given vertices. Vertex.Upstreams entries must all resolve to vertices
// present in the slice; a cycle or a dangling upstream reference is
// rejected here, at build time, never surfacing later in the partitioner.
func NewInMemoryProvider(vertices []*Vertex) (*InMemoryProvider, error) {
	components, err := buildComponents(vertices)
	if err != nil {
		return nil, err
	}
	return &InMemoryProvider{components: components}, nil
}

// Components implements Provider.
func (p *InMemoryProvider) Components(ctx context.Context) ([]*Component, error) {
	return p.components, nil
}

func buildComponents(vertices []*Vertex) ([]*Component, error) {
	byName := make(map[string]*Vertex, len(vertices))
	for _, v := range vertices {
		byName[v.Name] = v
	}

	d := dag.NewDAG[*Vertex]()
	for _, v := range vertices {
		if _, err := d.AddVertex(v); err != nil {
			return nil, err
		}
	}
	for _, v := range vertices {
		for _, up := range v.Upstreams {
			if _, ok := byName[up]; !ok {
				return nil, &UnknownUpstreamError{Vertex: v.Name, Upstream: up}
			}
			if err := d.AddEdge(up, v.Name); err != nil {
				return nil, &CycleError{From: up, To: v.Name}
			}
		}
	}

	groups := weaklyConnectedGroups(vertices)
	components := make([]*Component, 0, len(groups))
	for _, group := range groups {
		levels, err := levelGroup(group, byName)
		if err != nil {
			return nil, err
		}
		components = append(components, &Component{Levels: levels})
	}
	return components, nil
}

// weaklyConnectedGroups partitions vertices into maximal sets connected by
// an upstream edge in either direction, via a small union-find.
func weaklyConnectedGroups(vertices []*Vertex) [][]*Vertex {
	parent := make(map[string]string, len(vertices))
	for _, v := range vertices {
		parent[v.Name] = v.Name
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, v := range vertices {
		for _, up := range v.Upstreams {
			union(v.Name, up)
		}
	}

	byRoot := make(map[string][]*Vertex)
	for _, v := range vertices {
		root := find(v.Name)
		byRoot[root] = append(byRoot[root], v)
	}
	groups := make([][]*Vertex, 0, len(byRoot))
	for _, group := range byRoot {
		groups = append(groups, group)
	}
	return groups
}

// levelGroup runs Kahn's algorithm restricted to one connected component,
// peeling off indegree-zero vertices one layer at a time.
func levelGroup(group []*Vertex, byName map[string]*Vertex) ([][]*Vertex, error) {
	inComponent := make(map[string]bool, len(group))
	for _, v := range group {
		inComponent[v.Name] = true
	}

	indegree := make(map[string]int, len(group))
	downstream := make(map[string][]string, len(group))
	for _, v := range group {
		count := 0
		for _, up := range v.Upstreams {
			if inComponent[up] {
				count++
				downstream[up] = append(downstream[up], v.Name)
			}
		}
		indegree[v.Name] = count
	}

	var frontier []string
	for _, v := range group {
		if indegree[v.Name] == 0 {
			frontier = append(frontier, v.Name)
		}
	}

	var levels [][]*Vertex
	processed := 0
	for len(frontier) > 0 {
		level := make([]*Vertex, 0, len(frontier))
		var next []string
		for _, name := range frontier {
			level = append(level, byName[name])
			processed++
			for _, child := range downstream[name] {
				indegree[child]--
				if indegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		levels = append(levels, level)
		frontier = next
	}

	if processed != len(group) {
		// Every edge was already validated acyclic via go-dag above, so
		// this should be unreachable; kept as a defensive invariant check.
		return nil, &CycleError{From: group[0].Name, To: group[0].Name}
	}
	return levels, nil
}
