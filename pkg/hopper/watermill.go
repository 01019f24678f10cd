package hopper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/wrenlabs/rca-scheduler/pkg/flowunit"
	"github.com/wrenlabs/rca-scheduler/pkg/graph"
	"github.com/wrenlabs/rca-scheduler/pkg/intent"
)

const (
	topicIntents    = "rca.intents"
	topicFlowUnits  = "rca.flow_units"
	handlerFlowUnit = "flow_unit_cache"
)

// WatermillHopper is a NetworkFacade backed by an in-process Watermill
// pub/sub bus, grounded in the teacher's gochannel.GoChannel + message.Router
// wiring. FetchRemote must never block on the wire, so the bus subscription
// exists only to keep a latest-value cache warm; reads are served from that
// cache directly, never from a bus round-trip.
type WatermillHopper struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	cancel context.CancelFunc

	mu          sync.RWMutex
	seenIntents map[string]struct{}
	latest      map[string]flowunit.FlowUnit
}

// NewWatermillHopper starts the pub/sub bus and its router, subscribing an
// internal handler that keeps the latest-value cache current as flow units
// are published.
func NewWatermillHopper() (*WatermillHopper, error) {
	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{Persistent: false, BlockPublishUntilSubscriberAck: false},
		logger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("hopper: create router: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &WatermillHopper{
		pubsub:      pubsub,
		router:      router,
		cancel:      cancel,
		seenIntents: make(map[string]struct{}),
		latest:      make(map[string]flowunit.FlowUnit),
	}

	router.AddNoPublisherHandler(handlerFlowUnit, topicFlowUnits, pubsub, h.cacheLatest)

	go func() {
		_ = router.Run(ctx)
	}()

	return h, nil
}

func (h *WatermillHopper) cacheLatest(msg *message.Message) error {
	var fu flowunit.FlowUnit
	if err := json.Unmarshal(msg.Payload, &fu); err != nil {
		return fmt.Errorf("hopper: decode flow unit: %w", err)
	}

	h.mu.Lock()
	h.latest[fu.VertexName] = fu
	h.mu.Unlock()

	msg.Ack()
	return nil
}

// SendIntent implements NetworkFacade, deduplicating by (consumer, producer)
// before publishing so a reconstructed graph never resends a stale
// subscription as a fresh one.
func (h *WatermillHopper) SendIntent(msg intent.Msg) error {
	h.mu.Lock()
	key := msg.Consumer + "->" + msg.Producer
	if _, seen := h.seenIntents[key]; seen {
		h.mu.Unlock()
		return nil
	}
	h.seenIntents[key] = struct{}{}
	h.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("hopper: marshal intent: %w", err)
	}
	return h.pubsub.Publish(topicIntents, message.NewMessage(watermill.NewUUID(), payload))
}

// FetchRemote implements NetworkFacade as a non-blocking cache read.
func (h *WatermillHopper) FetchRemote(vertexName string) (flowunit.FlowUnit, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fu, ok := h.latest[vertexName]
	return fu, ok
}

// Publish implements NetworkFacade: fire-and-forget delivery over the bus,
// plus an immediate local cache update so a same-host FetchRemote sees it
// even before the subscription round-trips. destinations addresses a
// single shared topic here since the bus is in-process; a networked hopper
// would fan this out per destination host instead.
func (h *WatermillHopper) Publish(vertexName string, fu flowunit.FlowUnit, destinations []*graph.Vertex) {
	h.mu.Lock()
	h.latest[vertexName] = fu
	h.mu.Unlock()

	payload, err := json.Marshal(fu)
	if err != nil {
		return
	}
	_ = h.pubsub.Publish(topicFlowUnits, message.NewMessage(watermill.NewUUID(), payload))
	_ = destinations
}

// Close stops the router and closes the underlying bus.
func (h *WatermillHopper) Close() error {
	h.cancel()
	if err := h.router.Close(); err != nil {
		return err
	}
	return h.pubsub.Close()
}
