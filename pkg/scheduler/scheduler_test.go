package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenlabs/rca-scheduler/pkg/config"
	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/hopper"
	"github.com/wrenlabs/rca-scheduler/pkg/metricsource"
	"github.com/wrenlabs/rca-scheduler/pkg/partition"
	"github.com/wrenlabs/rca-scheduler/pkg/store"
	"github.com/wrenlabs/rca-scheduler/pkg/tasklet"
	"github.com/wrenlabs/rca-scheduler/pkg/workerpool"
)

func hostConfig(maxTicks int, loci ...string) *config.HostConfig {
	cfg := &config.HostConfig{}
	cfg.Host.Loci = loci
	cfg.Host.MaxTicks = maxTicks
	cfg.ApplyDefaults()
	return cfg
}

// S1 — all-local linear chain, end to end through New and Run: A -> B -> C.
func TestScheduler_S1_EndToEndLinearChain(t *testing.T) {
	provider, err := graph.NewInMemoryProvider([]*graph.Vertex{
		{Name: "A", Tags: map[string]string{"locus": "data"}, Period: 1, Kind: graph.EvalKindMetric},
		{Name: "B", Tags: map[string]string{"locus": "data"}, Upstreams: []string{"A"}, Period: 1, Kind: graph.EvalKindComputed},
		{Name: "C", Tags: map[string]string{"locus": "data"}, Upstreams: []string{"B"}, Period: 1, Kind: graph.EvalKindComputed},
	})
	require.NoError(t, err)

	ms := metricsource.NewStaticMetricSource()
	ms.Seed("A", map[string]float64{"value": 5})

	st := store.NewMemoryStore()
	net := hopper.NewMemoryHopper()
	pool := workerpool.New(4)

	sched, err := New(context.Background(), hostConfig(3, "data"), pool, provider, ms, st, net)
	require.NoError(t, err)

	sched.Run(context.Background())

	var a, b, c *tasklet.Tasklet
	for _, tl := range sched.Tasklets() {
		switch tl.Vertex.Name {
		case "A":
			a = tl
		case "B":
			b = tl
		case "C":
			c = tl
		}
	}
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	assert.Equal(t, 5.0, a.LastFlowUnit().Values["value"])
	assert.Equal(t, a.LastFlowUnit().Values["value"], b.LastFlowUnit().Values["value"])
	assert.Equal(t, b.LastFlowUnit().Values["value"], c.LastFlowUnit().Values["value"])
	assert.Empty(t, net.Intents())
}

// S5 — tick cadence: one vertex, period=3, maxTicks=6. run() invoked six
// times; evaluator runs at ticks 1 and 4 (counter was 0 on entry);
// counters reset after tick 6.
func TestScheduler_S5_TickCadence(t *testing.T) {
	var evalCount int32
	vertex := &graph.Vertex{Name: "solo", Tags: map[string]string{"locus": "data"}, Period: 3}
	tl := &tasklet.Tasklet{
		Vertex: vertex,
		Kind:   tasklet.Local,
		Evaluate: func(ctx context.Context, t *tasklet.Tasklet) (flowunit.FlowUnit, error) {
			atomic.AddInt32(&evalCount, 1)
			return flowunit.New(t.Vertex.Name, map[string]float64{"n": 1}), nil
		},
		Store: store.NewMemoryStore(),
	}

	sched := &Scheduler{
		graph:    &partition.ScheduledGraph{Levels: [][]*tasklet.Tasklet{{tl}}},
		pool:     workerpool.New(2),
		maxTicks: 6,
		logger:   log.Default(),
		PreWait:  func() {},
	}

	for i := 0; i < 6; i++ {
		sched.Run(context.Background())
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&evalCount))
	assert.Equal(t, 0, tl.TickCounter())
	assert.Equal(t, 0, sched.Snapshot().CurrTick)
}

// S6 — evaluator failure containment: two sibling local tasklets at the
// same level; one panics. The other completes, the tick completes, the
// failing one emits empty, and a downstream tasklet sees an empty input
// rather than a stalled future.
func TestScheduler_S6_SiblingFailureContainment(t *testing.T) {
	good := &graph.Vertex{Name: "good", Tags: map[string]string{"locus": "data"}, Period: 1}
	bad := &graph.Vertex{Name: "bad", Tags: map[string]string{"locus": "data"}, Period: 1}
	downstream := &graph.Vertex{Name: "downstream", Tags: map[string]string{"locus": "data"}, Upstreams: []string{"good", "bad"}, Period: 1}

	goodT := &tasklet.Tasklet{
		Vertex: good,
		Kind:   tasklet.Local,
		Evaluate: func(ctx context.Context, t *tasklet.Tasklet) (flowunit.FlowUnit, error) {
			return flowunit.New("good", map[string]float64{"v": 1}), nil
		},
	}
	badT := &tasklet.Tasklet{
		Vertex: bad,
		Kind:   tasklet.Local,
		Evaluate: func(ctx context.Context, t *tasklet.Tasklet) (flowunit.FlowUnit, error) {
			panic("boom")
		},
	}
	downstreamT := &tasklet.Tasklet{
		Vertex:       downstream,
		Kind:         tasklet.Local,
		Predecessors: []*tasklet.Tasklet{goodT, badT},
		Evaluate:     tasklet.LocalEvaluate,
	}

	sched := &Scheduler{
		graph: &partition.ScheduledGraph{Levels: [][]*tasklet.Tasklet{
			{goodT, badT},
			{downstreamT},
		}},
		pool:     workerpool.New(4),
		maxTicks: 10,
		logger:   log.Default(),
		PreWait:  func() {},
	}

	sched.Run(context.Background())

	assert.False(t, goodT.LastFlowUnit().Empty)
	assert.True(t, badT.LastFlowUnit().Empty)
	assert.False(t, downstreamT.LastFlowUnit().Empty)
	assert.Equal(t, 1.0, downstreamT.LastFlowUnit().Values["v"])
}

// Testable property 6: tick-counter wrap after exactly maxTicks
// invocations of run().
func TestScheduler_TickCounterWrapsAtMaxTicks(t *testing.T) {
	vertex := &graph.Vertex{Name: "solo", Tags: map[string]string{"locus": "data"}, Period: 1}
	tl := &tasklet.Tasklet{Vertex: vertex, Kind: tasklet.Local, Evaluate: tasklet.LocalEvaluate}

	sched := &Scheduler{
		graph:    &partition.ScheduledGraph{Levels: [][]*tasklet.Tasklet{{tl}}},
		pool:     workerpool.New(1),
		maxTicks: 4,
		logger:   log.Default(),
		PreWait:  func() {},
	}

	for i := 0; i < 4; i++ {
		sched.Run(context.Background())
	}

	assert.Equal(t, 0, tl.TickCounter())
	assert.Equal(t, 0, sched.Snapshot().CurrTick)
}

// Testable property 7: no more tasklets execute concurrently than the
// worker pool's permit count.
func TestScheduler_ParallelismBound(t *testing.T) {
	const poolSize = 3
	const taskletCount = 12

	var current int32
	var maxSeen int32
	var mu sync.Mutex

	var level []*tasklet.Tasklet
	for i := 0; i < taskletCount; i++ {
		v := &graph.Vertex{Name: fmt.Sprintf("v%d", i), Period: 1}
		level = append(level, &tasklet.Tasklet{
			Vertex: v,
			Kind:   tasklet.Local,
			Evaluate: func(ctx context.Context, t *tasklet.Tasklet) (flowunit.FlowUnit, error) {
				n := atomic.AddInt32(&current, 1)
				mu.Lock()
				if n > maxSeen {
					maxSeen = n
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return flowunit.NewEmpty(t.Vertex.Name), nil
			},
		})
	}

	sched := &Scheduler{
		graph:    &partition.ScheduledGraph{Levels: [][]*tasklet.Tasklet{level}},
		pool:     workerpool.New(poolSize),
		maxTicks: 10,
		logger:   log.Default(),
		PreWait:  func() {},
	}

	sched.Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, int(maxSeen), poolSize)
}

func TestScheduler_ConstructionPropagatesConfigurationError(t *testing.T) {
	provider, err := graph.NewInMemoryProvider([]*graph.Vertex{
		{Name: "A", Tags: map[string]string{"locus": "data", "requires-params": "true"}, Period: 1},
	})
	require.NoError(t, err)

	_, err = New(context.Background(), hostConfig(3, "data"), workerpool.New(1), provider, metricsource.NewStaticMetricSource(), store.NewMemoryStore(), hopper.NewMemoryHopper())
	require.Error(t, err)
	var cfgErr *partition.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

// S4 — aggregate-upstream, end to end through New and Run: A is locally
// executable and B (locally executable) also aggregates a peer's copy of
// A. B's tasklet has two distinct predecessors sharing A's vertex name: a
// Local tasklet and a RemoteProxy tasklet. This must resolve against two
// distinct futures — a futureMap keyed by vertex name instead of tasklet
// identity would let the RemoteProxy's near-instant future stand in for
// the Local tasklet's in both of B's predecessor slots, letting B evaluate
// before the Local tasklet's own (here, artificially slow) evaluation has
// actually finished.
func TestScheduler_S4_AggregateUpstreamFutureIdentity(t *testing.T) {
	provider, err := graph.NewInMemoryProvider([]*graph.Vertex{
		{Name: "A", Tags: map[string]string{"locus": "data"}, Period: 1, Kind: graph.EvalKindMetric},
		{
			Name:      "B",
			Tags:      map[string]string{"locus": "data", "aggregate-upstream": "data"},
			Upstreams: []string{"A"},
			Period:    1,
			Kind:      graph.EvalKindComputed,
		},
	})
	require.NoError(t, err)

	ms := metricsource.NewStaticMetricSource()
	ms.Seed("A", map[string]float64{"value": 5})

	net := hopper.NewMemoryHopper()
	net.SeedRemote("A", flowunit.New("A", map[string]float64{"value": 2}))

	sched, err := New(context.Background(), hostConfig(3, "data"), workerpool.New(4), provider, ms, store.NewMemoryStore(), net)
	require.NoError(t, err)

	var localA, proxyA, b *tasklet.Tasklet
	for _, tl := range sched.Tasklets() {
		switch {
		case tl.Vertex.Name == "A" && tl.Kind == tasklet.Local:
			localA = tl
		case tl.Vertex.Name == "A" && tl.Kind == tasklet.RemoteProxy:
			proxyA = tl
		case tl.Vertex.Name == "B":
			b = tl
		}
	}
	require.NotNil(t, localA)
	require.NotNil(t, proxyA)
	require.NotNil(t, b)
	require.Len(t, b.Predecessors, 2)

	var localACompleted atomic.Bool
	localA.Evaluate = func(ctx context.Context, t *tasklet.Tasklet) (flowunit.FlowUnit, error) {
		time.Sleep(50 * time.Millisecond)
		fu, err := tasklet.LocalEvaluate(ctx, t)
		localACompleted.Store(true)
		return fu, err
	}

	sched.Run(context.Background())

	assert.True(t, localACompleted.Load(), "Run must not return before the aggregate-upstream Local tasklet's own evaluation has completed")
	assert.Equal(t, 5.0, localA.LastFlowUnit().Values["value"])
	assert.Equal(t, 7.0, b.LastFlowUnit().Values["value"], "B must sum the local and remote copies of A, not read the local copy before it resolved")
}

// A cron-driven tick and a manually triggered one (the HTTP surface's
// POST /tick) must never overlap: Run holds driverMu for its whole body,
// so concurrent callers serialize rather than double-incrementing the
// tick counter or interleaving a metric-source swap with an in-flight
// tick.
func TestScheduler_ConcurrentRunCallersSerialize(t *testing.T) {
	vertex := &graph.Vertex{Name: "solo", Tags: map[string]string{"locus": "data"}, Period: 1}
	tl := &tasklet.Tasklet{
		Vertex: vertex,
		Kind:   tasklet.Local,
		Evaluate: func(ctx context.Context, t *tasklet.Tasklet) (flowunit.FlowUnit, error) {
			time.Sleep(5 * time.Millisecond)
			return flowunit.New(t.Vertex.Name, map[string]float64{"n": 1}), nil
		},
	}

	sched := &Scheduler{
		graph:    &partition.ScheduledGraph{Levels: [][]*tasklet.Tasklet{{tl}}},
		pool:     workerpool.New(4),
		maxTicks: 1000,
		logger:   log.Default(),
		PreWait:  func() {},
	}

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			sched.Run(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, callers, sched.Snapshot().CurrTick)
}

func TestScheduler_DegradedTickIsLoggedNotFatal(t *testing.T) {
	vertex := &graph.Vertex{Name: "solo", Tags: map[string]string{"locus": "data"}, Period: 1}
	tl := &tasklet.Tasklet{Vertex: vertex, Kind: tasklet.Local, Evaluate: tasklet.LocalEvaluate}

	pool := workerpool.New(1)
	pool.Shutdown()

	sched := &Scheduler{
		graph:    &partition.ScheduledGraph{Levels: [][]*tasklet.Tasklet{{tl}}},
		pool:     pool,
		maxTicks: 5,
		logger:   log.Default(),
		PreWait:  func() {},
	}

	assert.NotPanics(t, func() { sched.Run(context.Background()) })
	assert.Equal(t, 1, sched.Snapshot().DegradedTicks)
}
