// Package intent carries the subscription messages a host sends its peers
// for upstream vertices it cannot evaluate locally, and the routing index
// tracking which local vertices have remote consumers.
package intent

import (
	"github.com/google/uuid"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
)

// Msg is a subscription request from a consumer host to a producer host,
// asking to be sent the producer vertex's flow units as they're produced.
type Msg struct {
	ID           string
	Consumer     string
	Producer     string
	ProducerTags map[string]string
}

// NewMsg builds an IntentMsg, generating a fresh ID for it. The ID has no
// semantic role in delivery (the facade keys on consumer/producer names);
// it exists for logging and tracing individual intent sends.
func NewMsg(consumer, producer string, producerTags map[string]string) Msg {
	return Msg{
		ID:           uuid.NewString(),
		Consumer:     consumer,
		Producer:     producer,
		ProducerTags: producerTags,
	}
}

// OutboundRoutingMap indexes a local producer vertex to the peer-side
// vertices that subscribed to its output. It is a lookup relation built
// once during partitioning and read-only afterward; vertices themselves
// remain owned by the graph, not by this map.
type OutboundRoutingMap struct {
	byProducer map[string][]*graph.Vertex
}

// NewOutboundRoutingMap returns an empty map.
func NewOutboundRoutingMap() *OutboundRoutingMap {
	return &OutboundRoutingMap{byProducer: make(map[string][]*graph.Vertex)}
}

// Add records that consumer (a non-local vertex) wants producer's output.
func (m *OutboundRoutingMap) Add(producer *graph.Vertex, consumer *graph.Vertex) {
	m.byProducer[producer.Name] = append(m.byProducer[producer.Name], consumer)
}

// Destinations returns the remote consumers of producer's output, or nil
// if no peer subscribed to it.
func (m *OutboundRoutingMap) Destinations(producerName string) []*graph.Vertex {
	return m.byProducer[producerName]
}

// HasDestinations reports whether any peer subscribed to producer's output.
func (m *OutboundRoutingMap) HasDestinations(producerName string) bool {
	return len(m.byProducer[producerName]) > 0
}
