package shipment

import (
	"context"

	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shipment"
	"go.uber.org/zap"
)

// ShipmentAuditHandler writes an audit log entry for every shipment
// lifecycle event. It is the default subscriber on the event bus so status
// changes remain traceable even when no other integration is attached.
type ShipmentAuditHandler struct {
	logger *zap.Logger
}

// NewShipmentAuditHandler creates a new ShipmentAuditHandler
func NewShipmentAuditHandler(logger *zap.Logger) *ShipmentAuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentAuditHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ShipmentAuditHandler) EventTypes() []string {
	return []string{
		shipment.EventTypeShipmentCreated,
		shipment.EventTypeShipmentSent,
		shipment.EventTypeShipmentOverdue,
		shipment.EventTypeShipmentPartialReturn,
		shipment.EventTypeShipmentCompleted,
		shipment.EventTypeShipmentCancelled,
		shipment.EventTypeShipmentStatusOverridden,
	}
}

// Handle logs the event with its identifying fields
func (h *ShipmentAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("shipment_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
	}

	switch e := event.(type) {
	case *shipment.ShipmentCreatedEvent:
		fields = append(fields,
			zap.String("shipment_number", e.ShipmentNumber),
			zap.String("customer_id", e.CustomerID.String()),
		)
	case *shipment.ShipmentSentEvent:
		fields = append(fields,
			zap.String("shipment_number", e.ShipmentNumber),
			zap.String("carrier", e.Carrier),
			zap.Int("items", len(e.Items)),
		)
		if e.Deadline != nil {
			fields = append(fields, zap.Time("deadline", *e.Deadline))
		}
	case *shipment.ShipmentCompletedEvent:
		fields = append(fields,
			zap.String("shipment_number", e.ShipmentNumber),
			zap.Bool("sale_created", e.SaleCreated),
		)
	case *shipment.ShipmentCancelledEvent:
		fields = append(fields,
			zap.String("shipment_number", e.ShipmentNumber),
			zap.String("reason", e.Reason),
		)
	}

	h.logger.Info("Shipment lifecycle event", fields...)
	return nil
}

var _ shared.EventHandler = (*ShipmentAuditHandler)(nil)
