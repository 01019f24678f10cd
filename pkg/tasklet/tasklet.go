// Package tasklet holds the runtime unit the scheduler binds to each
// scheduled vertex: predecessor links, the tick counter, an evaluator
// closure chosen once at partition time, and the hooks that persist or
// forward a produced flow unit. Its execution contract is grounded in the
// teacher's PendingTask/Executor split — here the "pending task" and the
// executable unit are the same struct, since a tasklet is bound to exactly
// one vertex for the scheduler's whole lifetime.
package tasklet

import (
	"context"
	"log"
	"sync"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/hopper"
	"github.com/wrenlabs/rca-scheduler/pkg/intent"
	"github.com/wrenlabs/rca-scheduler/pkg/metricsource"
	"github.com/wrenlabs/rca-scheduler/pkg/store"
	"github.com/wrenlabs/rca-scheduler/pkg/workerpool"
)

// Kind is the tagged variant chosen once at partition time: a tasklet
// either computes locally or reads its value off the wire. No runtime tag
// inspection is needed after construction.
type Kind int

const (
	// Local tasklets compute their flow unit from predecessor outputs and,
	// for metric vertices, a metric source read; they persist their result.
	Local Kind = iota
	// RemoteProxy tasklets source their flow unit from the network facade
	// and never persist.
	RemoteProxy
)

func (k Kind) String() string {
	if k == RemoteProxy {
		return "remote-proxy"
	}
	return "local"
}

// Evaluator computes a tasklet's flow unit for the current tick. It never
// returns a non-nil error for a business-logic failure the caller should
// tolerate — see Tasklet.run, which converts both returned errors and
// panics into an empty flow unit and a logged EvaluationError.
type Evaluator func(ctx context.Context, t *Tasklet) (flowunit.FlowUnit, error)

// Tasklet is the per-tick runtime binding of a Vertex to an Evaluator and
// its predecessors, as scheduled by pkg/partition.
type Tasklet struct {
	Vertex       *graph.Vertex
	Kind         Kind
	Predecessors []*Tasklet
	Evaluate     Evaluator

	// Store is nil for RemoteProxy tasklets, which never persist.
	Store   store.Store
	Network hopper.NetworkFacade
	Routing *intent.OutboundRoutingMap
	Params  map[string]string
	Logger  *log.Logger

	mu           sync.Mutex
	tickCounter  int
	lastFlowUnit flowunit.FlowUnit
	metricSource metricsource.MetricSource
}

// MetricSource returns the tasklet's current metric source handle. Reads
// are guarded because the test-only swap hook may replace it between
// ticks from the driver goroutine while a worker goroutine is evaluating.
func (t *Tasklet) MetricSource() metricsource.MetricSource {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metricSource
}

// SetMetricSource installs a new metric source handle. The scheduler calls
// this only from the driver goroutine at tick entry, before any task for
// the new tick is submitted, which establishes the happens-before the
// design notes require; the handle is still written and read under the
// tasklet's mutex.
func (t *Tasklet) SetMetricSource(ms metricsource.MetricSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metricSource = ms
}

// LastFlowUnit returns the flow unit produced by this tasklet's most
// recent execution, or the zero FlowUnit before the first tick.
func (t *Tasklet) LastFlowUnit() flowunit.FlowUnit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFlowUnit
}

// TickCounter returns the tasklet's current cadence counter, mostly for
// tests asserting on wrap behavior.
func (t *Tasklet) TickCounter() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickCounter
}

// ResetTickCounter zeroes the cadence counter. The scheduler calls this on
// every tasklet when the global tick counter wraps.
func (t *Tasklet) ResetTickCounter() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickCounter = 0
}

// Execute builds a composite future that resolves only after every
// predecessor's future in futureMap has resolved (predecessors missing
// from the map — which level ordering should prevent — default to an
// already-resolved future), then schedules this tasklet's run on pool.
// futureMap is keyed by tasklet identity, not vertex name: the
// aggregate-upstream case gives a Local tasklet and a RemoteProxy tasklet
// for the same vertex distinct *Tasklet entries in the same map, and each
// needs its own future.
func (t *Tasklet) Execute(ctx context.Context, pool *workerpool.Pool, futureMap map[*Tasklet]*workerpool.Future) *workerpool.Future {
	preds := make([]*workerpool.Future, 0, len(t.Predecessors))
	for _, p := range t.Predecessors {
		if f, ok := futureMap[p]; ok {
			preds = append(preds, f)
		} else {
			preds = append(preds, workerpool.Resolved())
		}
	}
	barrier := workerpool.Join(preds...)
	return workerpool.Then(barrier, pool, func() error {
		t.run(ctx)
		return nil
	})
}

// run implements the per-tick body of the tasklet contract: cadence check,
// evaluation with failure containment, persistence for local tasklets, and
// forwarding to any peers waiting on this vertex's output. It never
// returns an error itself — worker-pool level failures are the only
// failure mode the caller (Then) can observe.
func (t *Tasklet) run(ctx context.Context) {
	t.mu.Lock()
	shouldEval := t.tickCounter%t.Vertex.Period == 0
	t.tickCounter++
	t.mu.Unlock()

	var fu flowunit.FlowUnit
	if !shouldEval {
		fu = flowunit.NewEmpty(t.Vertex.Name)
	} else {
		fu = t.safeEvaluate(ctx)
		if t.Kind == Local && t.Store != nil {
			if err := t.Store.Write(ctx, fu); err != nil {
				t.logger().Printf("tasklet %s: %v", t.Vertex.Name, &IOError{Op: "store.Write", Err: err})
			}
		}
	}

	t.mu.Lock()
	t.lastFlowUnit = fu
	t.mu.Unlock()

	if t.Kind == Local && t.Routing != nil && t.Routing.HasDestinations(t.Vertex.Name) {
		t.Network.Publish(t.Vertex.Name, fu, t.Routing.Destinations(t.Vertex.Name))
	}
}

// safeEvaluate runs the evaluator, converting a returned error or a panic
// into a logged, typed failure and an empty flow unit so a single bad
// evaluator never starves downstream tasklets.
func (t *Tasklet) safeEvaluate(ctx context.Context) (fu flowunit.FlowUnit) {
	defer func() {
		if r := recover(); r != nil {
			t.logger().Printf("tasklet %s: %v", t.Vertex.Name, &EvaluationError{Vertex: t.Vertex.Name, Err: fmtRecover(r)})
			fu = flowunit.NewEmpty(t.Vertex.Name)
		}
	}()

	if t.Evaluate == nil {
		return flowunit.NewEmpty(t.Vertex.Name)
	}

	result, err := t.Evaluate(ctx, t)
	if err != nil {
		t.logger().Printf("tasklet %s: %v", t.Vertex.Name, &EvaluationError{Vertex: t.Vertex.Name, Err: err})
		return flowunit.NewEmpty(t.Vertex.Name)
	}
	return result
}

func (t *Tasklet) logger() *log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.Default()
}
