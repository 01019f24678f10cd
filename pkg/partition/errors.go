package partition

import "fmt"

// ConfigurationError reports a local vertex whose evaluator requires
// parameters that the host configuration never supplied.
type ConfigurationError struct {
	Vertex string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("partition: vertex %q misconfigured: %s", e.Vertex, e.Reason)
}
