// Package graph holds the static description of an RCA computation graph:
// vertices, their tags, and the connected components/levels a Provider
// exposes to the scheduler.
package graph

import "strings"

// EvalKind distinguishes how a Vertex produces its flow unit.
type EvalKind int

const (
	// EvalKindMetric vertices read directly from a MetricSource.
	EvalKindMetric EvalKind = iota
	// EvalKindComputed vertices derive their output from upstream flow units.
	EvalKindComputed
	// EvalKindSummarizer vertices roll multiple upstream outputs into a summary.
	EvalKindSummarizer
)

// TagLocus is the tag key holding a vertex's `|`-separated deployment loci.
const TagLocus = "locus"

// TagAggregateUpstream is the tag key naming the locus whose peer copies of
// an upstream's output a vertex wants in addition to the local copy.
const TagAggregateUpstream = "aggregate-upstream"

// LocusSeparator splits the locus tag value into individual locus names.
const LocusSeparator = "|"

// Vertex is the immutable, static description of one RCA graph node.
type Vertex struct {
	Name string
	Tags map[string]string
	// Upstreams lists predecessor vertex names in a fixed, stable order;
	// tasklet evaluators gather predecessor flow units in this order.
	Upstreams []string
	// Period is the tick cadence: the vertex evaluates once every Period
	// ticks. Must be positive.
	Period int
	Kind   EvalKind
}

// ID satisfies go-dag's Identifiable interface so a Vertex can be stored
// directly as a DAG node.
func (v *Vertex) ID() string {
	return v.Name
}

// Locus returns the set of loci this vertex is tagged with. A missing or
// empty locus tag yields the empty set, never an error.
func (v *Vertex) Locus() map[string]struct{} {
	return ParseLocus(v.Tags[TagLocus])
}

// AggregateUpstream returns the locus name this vertex wants aggregated
// peer copies of its local upstreams from, and whether the tag was set.
func (v *Vertex) AggregateUpstream() (string, bool) {
	val, ok := v.Tags[TagAggregateUpstream]
	return val, ok && val != ""
}

// ParseLocus splits a `|`-separated locus tag value into a set, tolerating
// an empty string (treated as the empty set).
func ParseLocus(tag string) map[string]struct{} {
	set := make(map[string]struct{})
	if tag == "" {
		return set
	}
	for _, locus := range strings.Split(tag, LocusSeparator) {
		locus = strings.TrimSpace(locus)
		if locus != "" {
			set[locus] = struct{}{}
		}
	}
	return set
}

// IntersectsAny reports whether the locus set contains any of the given loci.
func IntersectsAny(set map[string]struct{}, loci []string) bool {
	for _, locus := range loci {
		if _, ok := set[locus]; ok {
			return true
		}
	}
	return false
}
