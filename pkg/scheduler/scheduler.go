// Package scheduler implements the Tick Executor: the driver that walks a
// once-built Scheduled Graph on every invocation of Run, submitting each
// level's tasklets to a shared worker pool behind a predecessor-future
// barrier and awaiting every submitted tasklet, per the teacher's single-driver
// tick loop generalized from task-graph execution to a fixed, reusable
// tasklet DAG.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wrenlabs/rca-scheduler/pkg/config"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/hopper"
	"github.com/wrenlabs/rca-scheduler/pkg/metricsource"
	"github.com/wrenlabs/rca-scheduler/pkg/partition"
	"github.com/wrenlabs/rca-scheduler/pkg/store"
	"github.com/wrenlabs/rca-scheduler/pkg/tasklet"
	"github.com/wrenlabs/rca-scheduler/pkg/workerpool"
)

// Metrics is a point-in-time snapshot of the scheduler's lifecycle
// counters, safe to copy and hand to a caller outside any lock.
type Metrics struct {
	NodeCount        int
	MutedNodes       int
	CurrTick         int
	LastTickDuration time.Duration
	DegradedTicks    int
}

// Scheduler is the Tick Executor bound to one immutable Scheduled Graph.
// Construction runs the Partitioner once; every call to Run reuses the
// resulting leveled tasklet list.
type Scheduler struct {
	graph    *partition.ScheduledGraph
	pool     *workerpool.Pool
	maxTicks int
	logger   *log.Logger

	// PreWait is an extension hook invoked after every level has been
	// submitted but before the final join. It has no documented use in the
	// original design; it defaults to a no-op and exists for callers that
	// want to observe or extend a tick between submission and completion.
	PreWait func()

	// driverMu serializes whole Run invocations. §5 requires tick N+1 to
	// begin only after tick N's driver returns; Run has two entrypoints
	// (the cron cadence and the manual /tick trigger) that can otherwise
	// overlap, double-incrementing currTick and racing a metric-source swap
	// against an in-flight tick.
	driverMu sync.Mutex

	mu       sync.Mutex
	currTick int
	metrics  Metrics

	pendingMu     sync.Mutex
	pendingSource metricsource.MetricSource
	pendingSet    bool
}

// New runs the Partitioner over the graph provider's components for a host
// configured by cfg, and returns a Scheduler ready to have Run invoked on
// it by an external cadence driver (a cron trigger, a ticker, a CLI loop).
// A ConfigurationError from the Partitioner is fatal and propagates here,
// per the error taxonomy's construction-time exception.
func New(
	ctx context.Context,
	cfg *config.HostConfig,
	pool *workerpool.Pool,
	provider graph.Provider,
	metricSource metricsource.MetricSource,
	st store.Store,
	network hopper.NetworkFacade,
) (*Scheduler, error) {
	components, err := provider.Components(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load components: %w", err)
	}

	sg, err := partition.Build(ctx, components, cfg.Host.Loci, cfg, network, metricSource, st)
	if err != nil {
		return nil, fmt.Errorf("scheduler: partition graph: %w", err)
	}

	nodeCount := 0
	for _, level := range sg.Levels {
		nodeCount += len(level)
	}

	return &Scheduler{
		graph:    sg,
		pool:     pool,
		maxTicks: cfg.Host.MaxTicks,
		logger:   log.Default(),
		PreWait:  func() {},
		metrics:  Metrics{NodeCount: nodeCount},
	}, nil
}

// SetMetricSource stages a new metric source to be installed on every
// tasklet at the start of the next tick. The swap happens on the driver
// thread before any task of that tick is submitted, which is the only
// synchronization the design notes require.
func (s *Scheduler) SetMetricSource(ms metricsource.MetricSource) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pendingSource = ms
	s.pendingSet = true
}

// SetLogger overrides the scheduler's logger, mostly for tests that want to
// capture tick-boundary diagnostics.
func (s *Scheduler) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Snapshot returns the scheduler's metrics as of the end of the last
// completed tick.
func (s *Scheduler) Snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Run executes exactly one tick: advance currTick, apply any pending
// metric-source swap, submit every level's tasklets behind a
// predecessor-future barrier, await every tasklet's future, and roll the
// tick counter over at maxTicks. Run never returns an error itself — every
// within-tick failure is contained per the error taxonomy; only a failed
// final join is logged as a degraded tick.
//
// Run holds driverMu for its whole body, so a cron-driven tick and a
// manually triggered one (the HTTP surface's POST /tick) can never overlap
// — the second caller simply blocks until the first tick's driver returns,
// preserving "tick N+1 begins only after tick N's driver returns" even
// though Run has two entrypoints.
func (s *Scheduler) Run(ctx context.Context) {
	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	start := time.Now()

	s.mu.Lock()
	s.currTick++
	tick := s.currTick
	s.mu.Unlock()

	s.applyPendingMetricSource()

	// Keyed by tasklet identity rather than vertex name: the aggregate-
	// upstream case places a Local tasklet and a RemoteProxy tasklet for
	// the same vertex in the same graph, and each needs its own future so
	// a consumer's local-upstream predecessor can never resolve early
	// against the proxy's future instead of the local tasklet's.
	futureMap := make(map[*tasklet.Tasklet]*workerpool.Future)
	// Every future is awaited, not just the last level's: a tasklet with no
	// dependent in the last level (e.g. one whose only consumer is remote,
	// or one from a shallower merged component) is otherwise never joined.
	var allFutures []*workerpool.Future

	for _, level := range s.graph.Levels {
		for _, t := range level {
			f := t.Execute(ctx, s.pool, futureMap)
			futureMap[t] = f
			allFutures = append(allFutures, f)
		}
	}

	if s.PreWait != nil {
		s.PreWait()
	}

	degraded := false
	if err := workerpool.Join(allFutures...).Wait(); err != nil {
		degraded = true
		s.logger.Printf("scheduler: tick %d degraded: %v", tick, err)
	}

	mutedNodes := 0
	for _, level := range s.graph.Levels {
		for _, t := range level {
			if t.LastFlowUnit().Empty {
				mutedNodes++
			}
		}
	}

	if tick == s.maxTicks {
		for _, level := range s.graph.Levels {
			for _, t := range level {
				t.ResetTickCounter()
			}
		}
		s.mu.Lock()
		s.currTick = 0
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.metrics.MutedNodes = mutedNodes
	s.metrics.CurrTick = s.currTick
	s.metrics.LastTickDuration = time.Since(start)
	if degraded {
		s.metrics.DegradedTicks++
	}
	s.mu.Unlock()
}

func (s *Scheduler) applyPendingMetricSource() {
	s.pendingMu.Lock()
	if !s.pendingSet {
		s.pendingMu.Unlock()
		return
	}
	ms := s.pendingSource
	s.pendingSet = false
	s.pendingMu.Unlock()

	for _, level := range s.graph.Levels {
		for _, t := range level {
			t.SetMetricSource(ms)
		}
	}
}

// Tasklets returns every tasklet in the scheduled graph, flattened across
// levels, mostly for tests and diagnostics that need to inspect
// per-tasklet state directly.
func (s *Scheduler) Tasklets() []*tasklet.Tasklet {
	var all []*tasklet.Tasklet
	for _, level := range s.graph.Levels {
		all = append(all, level...)
	}
	return all
}
