package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/malinha/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu       sync.Mutex
	types    []string
	received []shared.DomainEvent
	fail     bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	if h.fail {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func newTestEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Shipment", uuid.New(), uuid.New())
	return &e
}

func TestInMemoryEventBus_PublishToSubscribedHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"ShipmentSent"}}
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("ShipmentSent"))
	assert.NoError(t, err)
	assert.Equal(t, 1, handler.count())

	// Events of other types are not delivered
	err = bus.Publish(context.Background(), newTestEvent("ShipmentCancelled"))
	assert.NoError(t, err)
	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(),
		newTestEvent("ShipmentSent"),
		newTestEvent("ShipmentCompleted"),
	)
	assert.NoError(t, err)
	assert.Equal(t, 2, handler.count())
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"ShipmentSent"}, fail: true}
	healthy := &recordingHandler{types: []string{"ShipmentSent"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("ShipmentSent"))
	assert.NoError(t, err)
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"ShipmentSent"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("ShipmentSent"))
	assert.NoError(t, err)
	assert.Equal(t, 0, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Stop(context.Background()))
}
