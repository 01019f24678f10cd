package graph

import "fmt"

// CycleError is returned by NewInMemoryProvider when the supplied
// vertices contain an upstream cycle. A cycle is a programming error in the
// graph definition, not something the partitioner is expected to detect.
type CycleError struct {
	From, To string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph: cycle detected adding edge %s -> %s", e.From, e.To)
}

// UnknownUpstreamError is returned when a vertex names an upstream that was
// not supplied to NewInMemoryProvider.
type UnknownUpstreamError struct {
	Vertex, Upstream string
}

func (e *UnknownUpstreamError) Error() string {
	return fmt.Sprintf("graph: vertex %q references unknown upstream %q", e.Vertex, e.Upstream)
}
