package tasklet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/hopper"
	"github.com/wrenlabs/rca-scheduler/pkg/intent"
	"github.com/wrenlabs/rca-scheduler/pkg/metricsource"
	"github.com/wrenlabs/rca-scheduler/pkg/store"
	"github.com/wrenlabs/rca-scheduler/pkg/workerpool"
)

func newTestPool() *workerpool.Pool { return workerpool.New(4) }

// TestTasklet_TickCadence covers S5: a vertex with period=3 evaluates on
// ticks where its entry counter is 0 (ticks 1 and 4 of 6), and stays empty
// otherwise.
func TestTasklet_TickCadence(t *testing.T) {
	// A metric vertex with a seeded reading, so an evaluated tick yields a
	// non-empty flow unit (an input-less computed vertex would be muted).
	v := &graph.Vertex{Name: "V", Period: 3, Kind: graph.EvalKindMetric}
	ms := metricsource.NewStaticMetricSource()
	ms.Seed("V", map[string]float64{"v": 1})
	mem := store.NewMemoryStore()
	net := hopper.NewMemoryHopper()
	routing := intent.NewOutboundRoutingMap()

	tl := &Tasklet{
		Vertex:   v,
		Kind:     Local,
		Evaluate: LocalEvaluate,
		Store:    mem,
		Network:  net,
		Routing:  routing,
	}
	tl.SetMetricSource(ms)

	pool := newTestPool()
	var evaluated []bool
	for i := 0; i < 6; i++ {
		f := tl.Execute(context.Background(), pool, map[*Tasklet]*workerpool.Future{})
		require.NoError(t, f.Wait())
		evaluated = append(evaluated, !tl.LastFlowUnit().Empty)
	}

	assert.Equal(t, []bool{true, false, false, true, false, false}, evaluated)
	// 6 ticks with period 3: writes happen on ticks 1 and 4 only.
	assert.Len(t, mem.Writes, 2)
}

// TestTasklet_ContainsEvaluatorFailure covers S6: an evaluator panic or
// error is caught, logged, and converted to an empty flow unit without
// failing the returned future.
func TestTasklet_ContainsEvaluatorFailure(t *testing.T) {
	v := &graph.Vertex{Name: "V", Period: 1, Kind: graph.EvalKindComputed}
	failing := &Tasklet{
		Vertex: v,
		Kind:   Local,
		Evaluate: func(ctx context.Context, t *Tasklet) (flowunit.FlowUnit, error) {
			return flowunit.FlowUnit{}, errors.New("boom")
		},
	}

	pool := newTestPool()
	f := failing.Execute(context.Background(), pool, map[*Tasklet]*workerpool.Future{})
	require.NoError(t, f.Wait())
	assert.True(t, failing.LastFlowUnit().Empty)
}

func TestTasklet_PanicIsContained(t *testing.T) {
	v := &graph.Vertex{Name: "V", Period: 1, Kind: graph.EvalKindComputed}
	panicking := &Tasklet{
		Vertex: v,
		Kind:   Local,
		Evaluate: func(ctx context.Context, t *Tasklet) (flowunit.FlowUnit, error) {
			panic("evaluator exploded")
		},
	}

	pool := newTestPool()
	f := panicking.Execute(context.Background(), pool, map[*Tasklet]*workerpool.Future{})
	require.NoError(t, f.Wait())
	assert.True(t, panicking.LastFlowUnit().Empty)
}

// TestTasklet_WaitsForPredecessors ensures a tasklet only observes a
// predecessor's flow unit after that predecessor's future has resolved.
func TestTasklet_WaitsForPredecessors(t *testing.T) {
	a := &graph.Vertex{Name: "A", Period: 1, Kind: graph.EvalKindComputed}
	b := &graph.Vertex{Name: "B", Period: 1, Kind: graph.EvalKindComputed, Upstreams: []string{"A"}}

	tA := &Tasklet{
		Vertex: a,
		Kind:   Local,
		Evaluate: func(ctx context.Context, t *Tasklet) (flowunit.FlowUnit, error) {
			return flowunit.New("A", map[string]float64{"x": 1}), nil
		},
	}
	tB := &Tasklet{
		Vertex:       b,
		Kind:         Local,
		Predecessors: []*Tasklet{tA},
		Evaluate:     LocalEvaluate,
	}

	pool := newTestPool()
	futureMap := map[*Tasklet]*workerpool.Future{}
	futureMap[tA] = tA.Execute(context.Background(), pool, futureMap)
	fB := tB.Execute(context.Background(), pool, futureMap)
	require.NoError(t, fB.Wait())

	assert.Equal(t, float64(1), tB.LastFlowUnit().Values["x"])
}

// TestTasklet_RemoteProxyReadsFromWire covers the read-from-wire evaluator
// falling back to empty when nothing has been published yet.
func TestTasklet_RemoteProxyReadsFromWire(t *testing.T) {
	v := &graph.Vertex{Name: "U", Period: 1}
	net := hopper.NewMemoryHopper()
	proxy := &Tasklet{Vertex: v, Kind: RemoteProxy, Evaluate: RemoteProxyEvaluate, Network: net}

	pool := newTestPool()
	f := proxy.Execute(context.Background(), pool, map[*Tasklet]*workerpool.Future{})
	require.NoError(t, f.Wait())
	assert.True(t, proxy.LastFlowUnit().Empty)

	net.SeedRemote("U", flowunit.New("U", map[string]float64{"y": 2}))
	f = proxy.Execute(context.Background(), pool, map[*Tasklet]*workerpool.Future{})
	require.NoError(t, f.Wait())
	assert.Equal(t, float64(2), proxy.LastFlowUnit().Values["y"])
}
