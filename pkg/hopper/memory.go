package hopper

import (
	"sync"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/intent"
)

// PublishedMessage records one Publish call for test assertions.
type PublishedMessage struct {
	VertexName   string
	FlowUnit     flowunit.FlowUnit
	Destinations []*graph.Vertex
}

// MemoryHopper is a synchronous, introspectable NetworkFacade test double:
// SendIntent dedupes by (consumer, producer) exactly as the real facade
// must, FetchRemote reads a latest-value cache a test can seed directly,
// and Publish both updates that cache and records the call for assertions.
type MemoryHopper struct {
	mu          sync.Mutex
	seenIntents map[string]struct{}
	intents     []intent.Msg
	latest      map[string]flowunit.FlowUnit
	published   []PublishedMessage
}

// NewMemoryHopper returns an empty MemoryHopper.
func NewMemoryHopper() *MemoryHopper {
	return &MemoryHopper{
		seenIntents: make(map[string]struct{}),
		latest:      make(map[string]flowunit.FlowUnit),
	}
}

// SendIntent implements NetworkFacade, deduplicating repeated
// (consumer, producer) pairs so callers can safely reconstruct the graph
// without resending duplicate subscriptions.
func (h *MemoryHopper) SendIntent(msg intent.Msg) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := msg.Consumer + "->" + msg.Producer
	if _, seen := h.seenIntents[key]; seen {
		return nil
	}
	h.seenIntents[key] = struct{}{}
	h.intents = append(h.intents, msg)
	return nil
}

// FetchRemote implements NetworkFacade.
func (h *MemoryHopper) FetchRemote(vertexName string) (flowunit.FlowUnit, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fu, ok := h.latest[vertexName]
	return fu, ok
}

// Publish implements NetworkFacade.
func (h *MemoryHopper) Publish(vertexName string, fu flowunit.FlowUnit, destinations []*graph.Vertex) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[vertexName] = fu
	h.published = append(h.published, PublishedMessage{VertexName: vertexName, FlowUnit: fu, Destinations: destinations})
}

// SeedRemote primes the latest-value cache directly, standing in for a
// peer publish a test doesn't want to construct end to end.
func (h *MemoryHopper) SeedRemote(vertexName string, fu flowunit.FlowUnit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[vertexName] = fu
}

// Intents returns every distinct intent sent so far, in send order.
func (h *MemoryHopper) Intents() []intent.Msg {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]intent.Msg, len(h.intents))
	copy(out, h.intents)
	return out
}

// Published returns every Publish call recorded so far, in call order.
func (h *MemoryHopper) Published() []PublishedMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PublishedMessage, len(h.published))
	copy(out, h.published)
	return out
}
