// Package hopper implements the network facade ("wire hopper") the
// scheduler uses to subscribe to peer data, read the latest cached value
// for a remote vertex, and forward locally produced flow units to peers
// that asked for them.
package hopper

import (
	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/intent"
)

// NetworkFacade is the external collaborator the scheduler uses to talk to
// peer hosts. SendIntent must be idempotent for repeated (consumer,
// producer) pairs. FetchRemote is a non-blocking read of the most recently
// cached value for vertexName — it never blocks on the wire. Publish is
// fire-and-forget; the scheduler does not wait on delivery.
type NetworkFacade interface {
	SendIntent(msg intent.Msg) error
	FetchRemote(vertexName string) (flowunit.FlowUnit, bool)
	Publish(vertexName string, fu flowunit.FlowUnit, destinations []*graph.Vertex)
}
