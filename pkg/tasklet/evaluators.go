package tasklet

import (
	"context"
	"sort"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
)

// LocalEvaluate is the default "compute-from-inputs-and-metrics" evaluator
// the Partitioner binds to every Local tasklet (design note: Evaluator is a
// tagged variant decided once at partition time, not a runtime dispatch).
// It gathers predecessor flow units in the tasklet's fixed upstream order,
// summing values by field name, then folds in a metric read for metric
// vertices. The concrete diagnostic logic a real RCA vertex applies is out
// of scope here (per the purpose statement it lives with the vertex
// definition, not the scheduling core) — this is the generic aggregation a
// vertex without custom wiring falls back to.
func LocalEvaluate(ctx context.Context, t *Tasklet) (flowunit.FlowUnit, error) {
	values := make(map[string]float64)
	for _, pred := range t.Predecessors {
		for k, v := range pred.LastFlowUnit().Values {
			values[k] += v
		}
	}

	if t.Vertex.Kind == graph.EvalKindMetric {
		ms := t.MetricSource()
		if ms != nil {
			batch, err := ms.ReadMetric(ctx, t.Vertex.Name, metricFields(t.Params))
			if err != nil {
				return flowunit.FlowUnit{}, &IOError{Op: "metricSource.ReadMetric", Err: err}
			}
			for k, v := range batch {
				values[k] = v
			}
		}
	}

	return flowunit.New(t.Vertex.Name, values), nil
}

// RemoteProxyEvaluate is the "read-from-wire" evaluator bound to every
// RemoteProxy tasklet: a non-blocking read of the network facade's
// latest-value cache for this vertex, per the distilled contract that
// fetchRemote never blocks on the wire.
func RemoteProxyEvaluate(ctx context.Context, t *Tasklet) (flowunit.FlowUnit, error) {
	fu, ok := t.Network.FetchRemote(t.Vertex.Name)
	if !ok {
		return flowunit.NewEmpty(t.Vertex.Name), nil
	}
	return fu, nil
}

// metricFields derives the metric field names a vertex's evaluator should
// request from its configured parameters — the parameter names themselves
// (e.g. "threshold"), sorted for deterministic reads across ticks.
func metricFields(params map[string]string) []string {
	if len(params) == 0 {
		return nil
	}
	fields := make([]string, 0, len(params))
	for k := range params {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}
