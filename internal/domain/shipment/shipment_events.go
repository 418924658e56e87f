package shipment

import (
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant for Shipment
const AggregateTypeShipment = "Shipment"

// Event type constants for Shipment
const (
	EventTypeShipmentCreated          = "ShipmentCreated"
	EventTypeShipmentSent             = "ShipmentSent"
	EventTypeShipmentOverdue          = "ShipmentOverdue"
	EventTypeShipmentPartialReturn    = "ShipmentPartialReturn"
	EventTypeShipmentCompleted        = "ShipmentCompleted"
	EventTypeShipmentCancelled        = "ShipmentCancelled"
	EventTypeShipmentStatusOverridden = "ShipmentStatusOverridden"
)

// ItemInfo represents item information for events
type ItemInfo struct {
	ItemID           uuid.UUID       `json:"item_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	QuantitySent     int             `json:"quantity_sent"`
	QuantityKept     int             `json:"quantity_kept"`
	QuantityReturned int             `json:"quantity_returned"`
	QuantityDamaged  int             `json:"quantity_damaged"`
	QuantityLost     int             `json:"quantity_lost"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

func itemInfos(s *Shipment) []ItemInfo {
	infos := make([]ItemInfo, len(s.Items))
	for i, item := range s.Items {
		infos[i] = ItemInfo{
			ItemID:           item.ID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			QuantitySent:     item.QuantitySent,
			QuantityKept:     item.QuantityKept,
			QuantityReturned: item.QuantityReturned,
			QuantityDamaged:  item.QuantityDamaged,
			QuantityLost:     item.QuantityLost,
			UnitPrice:        item.UnitPrice,
		}
	}
	return infos
}

// ShipmentCreatedEvent is raised when a new conditional shipment is assembled
type ShipmentCreatedEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID `json:"shipment_id"`
	ShipmentNumber string    `json:"shipment_number"`
	CustomerID     uuid.UUID `json:"customer_id"`
	CustomerName   string    `json:"customer_name"`
}

// NewShipmentCreatedEvent creates a new ShipmentCreatedEvent
func NewShipmentCreatedEvent(s *Shipment) *ShipmentCreatedEvent {
	return &ShipmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCreated, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		CustomerID:      s.CustomerID,
		CustomerName:    s.CustomerName,
	}
}

// EventType returns the event type name
func (e *ShipmentCreatedEvent) EventType() string {
	return EventTypeShipmentCreated
}

// ShipmentSentEvent is raised when a shipment leaves for the customer
type ShipmentSentEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID  `json:"shipment_id"`
	ShipmentNumber string     `json:"shipment_number"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	Carrier        string     `json:"carrier,omitempty"`
	TrackingCode   string     `json:"tracking_code,omitempty"`
	SentAt         *time.Time `json:"sent_at"`
	Deadline       *time.Time `json:"deadline"`
	Items          []ItemInfo `json:"items"`
}

// NewShipmentSentEvent creates a new ShipmentSentEvent
func NewShipmentSentEvent(s *Shipment) *ShipmentSentEvent {
	return &ShipmentSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentSent, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		CustomerID:      s.CustomerID,
		Carrier:         s.Carrier,
		TrackingCode:    s.TrackingCode,
		SentAt:          s.SentAt,
		Deadline:        s.Deadline,
		Items:           itemInfos(s),
	}
}

// EventType returns the event type name
func (e *ShipmentSentEvent) EventType() string {
	return EventTypeShipmentSent
}

// ShipmentOverdueEvent is raised when the reconciliation deadline passes
type ShipmentOverdueEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID  `json:"shipment_id"`
	ShipmentNumber string     `json:"shipment_number"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	Deadline       *time.Time `json:"deadline"`
}

// NewShipmentOverdueEvent creates a new ShipmentOverdueEvent
func NewShipmentOverdueEvent(s *Shipment) *ShipmentOverdueEvent {
	return &ShipmentOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentOverdue, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		CustomerID:      s.CustomerID,
		Deadline:        s.Deadline,
	}
}

// EventType returns the event type name
func (e *ShipmentOverdueEvent) EventType() string {
	return EventTypeShipmentOverdue
}

// ShipmentPartialReturnEvent is raised when reconciliation progress is saved
type ShipmentPartialReturnEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID  `json:"shipment_id"`
	ShipmentNumber string     `json:"shipment_number"`
	Items          []ItemInfo `json:"items"`
}

// NewShipmentPartialReturnEvent creates a new ShipmentPartialReturnEvent
func NewShipmentPartialReturnEvent(s *Shipment) *ShipmentPartialReturnEvent {
	return &ShipmentPartialReturnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentPartialReturn, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		Items:           itemInfos(s),
	}
}

// EventType returns the event type name
func (e *ShipmentPartialReturnEvent) EventType() string {
	return EventTypeShipmentPartialReturn
}

// ShipmentCompletedEvent is raised when reconciliation is finalized
type ShipmentCompletedEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID  `json:"shipment_id"`
	ShipmentNumber string     `json:"shipment_number"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	SaleCreated    bool       `json:"sale_created"`
	SaleID         *uuid.UUID `json:"sale_id,omitempty"`
	Items          []ItemInfo `json:"items"`
}

// NewShipmentCompletedEvent creates a new ShipmentCompletedEvent
func NewShipmentCompletedEvent(s *Shipment) *ShipmentCompletedEvent {
	return &ShipmentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCompleted, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		CustomerID:      s.CustomerID,
		SaleCreated:     s.SaleCreated,
		SaleID:          s.SaleID,
		Items:           itemInfos(s),
	}
}

// EventType returns the event type name
func (e *ShipmentCompletedEvent) EventType() string {
	return EventTypeShipmentCompleted
}

// ShipmentCancelledEvent is raised when a shipment is cancelled
type ShipmentCancelledEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID  `json:"shipment_id"`
	ShipmentNumber string     `json:"shipment_number"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	Reason         string     `json:"reason"`
	Items          []ItemInfo `json:"items"`
}

// NewShipmentCancelledEvent creates a new ShipmentCancelledEvent
func NewShipmentCancelledEvent(s *Shipment) *ShipmentCancelledEvent {
	return &ShipmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCancelled, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		CustomerID:      s.CustomerID,
		Reason:          s.CancelReason,
		Items:           itemInfos(s),
	}
}

// EventType returns the event type name
func (e *ShipmentCancelledEvent) EventType() string {
	return EventTypeShipmentCancelled
}

// ShipmentStatusOverriddenEvent is raised by the administrative status
// override; it is the audit trail for bypassed transitions.
type ShipmentStatusOverriddenEvent struct {
	shared.BaseDomainEvent
	ShipmentID     uuid.UUID `json:"shipment_id"`
	ShipmentNumber string    `json:"shipment_number"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
}

// NewShipmentStatusOverriddenEvent creates a new ShipmentStatusOverriddenEvent
func NewShipmentStatusOverriddenEvent(s *Shipment, previous Status) *ShipmentStatusOverriddenEvent {
	return &ShipmentStatusOverriddenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentStatusOverridden, AggregateTypeShipment, s.ID, s.TenantID),
		ShipmentID:      s.ID,
		ShipmentNumber:  s.ShipmentNumber,
		PreviousStatus:  previous,
		NewStatus:       s.Status,
	}
}

// EventType returns the event type name
func (e *ShipmentStatusOverriddenEvent) EventType() string {
	return EventTypeShipmentStatusOverridden
}
