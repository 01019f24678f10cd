// Package partition implements the Partitioner and Intent Router: at
// construction time it walks each connected component level by level,
// classifies every vertex as local or remote-proxy for the host's
// configured loci, sends subscription intents for non-local upstreams, and
// builds the immutable leveled tasklet DAG the scheduler drives on every
// tick. The algorithm and its edge cases (aggregate-upstream duplication,
// level-merge across components) follow §4.1 of the scheduling
// specification directly.
package partition

import (
	"context"
	"log"

	"github.com/wrenlabs/rca-scheduler/pkg/config"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/hopper"
	"github.com/wrenlabs/rca-scheduler/pkg/intent"
	"github.com/wrenlabs/rca-scheduler/pkg/metricsource"
	"github.com/wrenlabs/rca-scheduler/pkg/store"
	"github.com/wrenlabs/rca-scheduler/pkg/tasklet"
)

// ScheduledGraph is the immutable, leveled tasklet DAG produced once by
// Build and reused for the scheduler's whole lifetime.
type ScheduledGraph struct {
	Levels  [][]*tasklet.Tasklet
	Routing *intent.OutboundRoutingMap
}

// Build partitions every connected component in components for a host
// configured with hostLoci, wiring outbound intents through network for
// every non-local upstream of a local vertex and recording, in the
// returned Routing map, which local vertices have remote consumers.
func Build(
	ctx context.Context,
	components []*graph.Component,
	hostLoci []string,
	hostConfig *config.HostConfig,
	network hopper.NetworkFacade,
	metricSource metricsource.MetricSource,
	st store.Store,
) (*ScheduledGraph, error) {
	routing := intent.NewOutboundRoutingMap()
	var merged [][]*tasklet.Tasklet

	for _, component := range components {
		levels, err := buildComponent(component, hostLoci, hostConfig, network, metricSource, st, routing)
		if err != nil {
			return nil, err
		}
		merged = mergeLevels(merged, levels)
	}

	return &ScheduledGraph{Levels: merged, Routing: routing}, nil
}

// levelBuilder accumulates tasklet levels for one connected component,
// letting a RemoteProxy tasklet be inserted before level 0 by physically
// prepending a new level — see proxyLevel.
type levelBuilder struct {
	levels [][]*tasklet.Tasklet
	offset int
}

func (b *levelBuilder) idx(originalLevel int) int {
	return originalLevel + b.offset
}

func (b *levelBuilder) appendAt(idx int, t *tasklet.Tasklet) {
	for len(b.levels) <= idx {
		b.levels = append(b.levels, nil)
	}
	b.levels[idx] = append(b.levels[idx], t)
}

// proxyLevel returns the output level index a newly created RemoteProxy
// predecessor of the tasklet at consumerIdx should occupy: the previous
// output level if one exists, otherwise a freshly prepended level 0 —
// prepending shifts every already-placed tasklet's physical slot along
// with the offset used to compute future indices, so earlier placements
// stay consistent.
func (b *levelBuilder) proxyLevel(consumerIdx int) int {
	prev := consumerIdx - 1
	if prev >= 0 {
		return prev
	}
	b.levels = append([][]*tasklet.Tasklet{{}}, b.levels...)
	b.offset++
	return 0
}

func buildComponent(
	component *graph.Component,
	hostLoci []string,
	hostConfig *config.HostConfig,
	network hopper.NetworkFacade,
	metricSource metricsource.MetricSource,
	st store.Store,
	routing *intent.OutboundRoutingMap,
) ([][]*tasklet.Tasklet, error) {
	byName := make(map[string]*graph.Vertex)
	for _, level := range component.Levels {
		for _, v := range level {
			byName[v.Name] = v
		}
	}

	lb := &levelBuilder{}
	locallyExecutable := make(map[string]bool)
	localTasklets := make(map[string]*tasklet.Tasklet)
	proxyCache := make(map[string]*tasklet.Tasklet)

	for levelIdx, level := range component.Levels {
		for _, v := range level {
			if !graph.IntersectsAny(v.Locus(), hostLoci) {
				recordOutboundConsumers(v, locallyExecutable, localTasklets, routing)
				continue
			}

			locallyExecutable[v.Name] = true
			params := hostConfig.VertexParams(v.Name)
			if len(params) == 0 && v.Tags["requires-params"] == "true" {
				return nil, &ConfigurationError{Vertex: v.Name, Reason: "no configured parameters for a vertex tagged requires-params"}
			}

			t := &tasklet.Tasklet{
				Vertex:   v,
				Kind:     tasklet.Local,
				Evaluate: tasklet.LocalEvaluate,
				Store:    st,
				Network:  network,
				Routing:  routing,
				Params:   params,
			}
			t.SetMetricSource(metricSource)
			localTasklets[v.Name] = t

			for _, upName := range v.Upstreams {
				up := byName[upName]

				if locallyExecutable[upName] {
					t.Predecessors = append(t.Predecessors, localTasklets[upName])

					if aggLocus, ok := v.AggregateUpstream(); ok && graph.IntersectsAny(up.Locus(), []string{aggLocus}) {
						proxy, isNew := proxyFor(proxyCache, up, network)
						t.Predecessors = append(t.Predecessors, proxy)
						if isNew {
							lb.appendAt(lb.proxyLevel(lb.idx(levelIdx)), proxy)
						}
					}
					continue
				}

				if err := network.SendIntent(intent.NewMsg(v.Name, upName, up.Tags)); err != nil {
					log.Printf("partition: send intent %s -> %s: %v", v.Name, upName, err)
				}
				proxy, isNew := proxyFor(proxyCache, up, network)
				t.Predecessors = append(t.Predecessors, proxy)
				if isNew {
					lb.appendAt(lb.proxyLevel(lb.idx(levelIdx)), proxy)
				}
			}

			lb.appendAt(lb.idx(levelIdx), t)
		}
	}

	return lb.levels, nil
}

// recordOutboundConsumers registers v (a non-local vertex) in the outbound
// routing map under each of its upstreams that this host executes locally
// — those upstreams' output must be forwarded to v's host.
func recordOutboundConsumers(v *graph.Vertex, locallyExecutable map[string]bool, localTasklets map[string]*tasklet.Tasklet, routing *intent.OutboundRoutingMap) {
	for _, upName := range v.Upstreams {
		if locallyExecutable[upName] {
			routing.Add(localTasklets[upName].Vertex, v)
		}
	}
}

// proxyFor returns the (possibly cached) RemoteProxy tasklet for up. A
// vertex's locality is fixed host-wide, so the same cache serves both a
// non-local upstream's proxy and a local upstream's aggregate-peer-copy
// proxy — the two cases can never target the same vertex name.
func proxyFor(cache map[string]*tasklet.Tasklet, up *graph.Vertex, network hopper.NetworkFacade) (*tasklet.Tasklet, bool) {
	if existing, ok := cache[up.Name]; ok {
		return existing, false
	}
	proxy := &tasklet.Tasklet{
		Vertex:   up,
		Kind:     tasklet.RemoteProxy,
		Evaluate: tasklet.RemoteProxyEvaluate,
		Network:  network,
	}
	cache[up.Name] = proxy
	return proxy, true
}

// mergeLevels merges two leveled tasklet lists index-wise: level k of the
// result holds every tasklet from level k of either input, so a shorter
// component's levels line up depth-for-depth with a longer one's.
func mergeLevels(a, b [][]*tasklet.Tasklet) [][]*tasklet.Tasklet {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	merged := make([][]*tasklet.Tasklet, n)
	for i := 0; i < n; i++ {
		var level []*tasklet.Tasklet
		if i < len(a) {
			level = append(level, a[i]...)
		}
		if i < len(b) {
			level = append(level, b[i]...)
		}
		merged[i] = level
	}
	return merged
}
