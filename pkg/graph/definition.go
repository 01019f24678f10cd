package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// vertexDefinition is the YAML-facing shape of one vertex in a graph
// definition file; kindNames translates its Kind string into an EvalKind.
type vertexDefinition struct {
	Name      string            `yaml:"name"`
	Tags      map[string]string `yaml:"tags"`
	Upstreams []string          `yaml:"upstreams"`
	Period    int               `yaml:"period"`
	Kind      string            `yaml:"kind"`
}

type definitionFile struct {
	Vertices []vertexDefinition `yaml:"vertices"`
}

var kindNames = map[string]EvalKind{
	"":           EvalKindComputed,
	"metric":     EvalKindMetric,
	"computed":   EvalKindComputed,
	"summarizer": EvalKindSummarizer,
}

// LoadDefinition reads a flat vertex list from a YAML graph definition file
// and returns a Provider built from it. Vertex.Period defaults to 1 when
// left unset, since the zero value would otherwise divide by zero at
// tick-cadence time.
func LoadDefinition(path string) (*InMemoryProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: read %s: %w", path, err)
	}

	var doc definitionFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("graph: parse %s: %w", path, err)
	}

	vertices := make([]*Vertex, 0, len(doc.Vertices))
	for _, vd := range doc.Vertices {
		kind, ok := kindNames[vd.Kind]
		if !ok {
			return nil, fmt.Errorf("graph: vertex %q: unknown kind %q", vd.Name, vd.Kind)
		}
		period := vd.Period
		if period <= 0 {
			period = 1
		}
		vertices = append(vertices, &Vertex{
			Name:      vd.Name,
			Tags:      vd.Tags,
			Upstreams: vd.Upstreams,
			Period:    period,
			Kind:      kind,
		})
	}

	return NewInMemoryProvider(vertices)
}
