package shipment

import (
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultDeadlineDays is the reconciliation window applied when the caller
// does not supply one at send time.
const DefaultDeadlineDays = 7

// Status represents the status of a conditional shipment
type Status string

const (
	StatusPending       Status = "PENDING"        // Assembled, not yet sent to the customer
	StatusSent          Status = "SENT"           // With the customer, waiting for reconciliation
	StatusOverdue       Status = "OVERDUE"        // Deadline passed; advisory only, behaves as SENT
	StatusPartialReturn Status = "PARTIAL_RETURN" // Some quantities recorded, reconciliation open
	StatusCompleted     Status = "COMPLETED"      // Reconciled, side effects applied
	StatusCancelled     Status = "CANCELLED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusOverdue, StatusPartialReturn, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for states that permit no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsReconcilable returns true if quantities may still be recorded.
// OVERDUE is advisory: it keeps the SENT reconciliation semantics.
func (s Status) IsReconcilable() bool {
	return s == StatusSent || s == StatusOverdue || s == StatusPartialReturn
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusSent || target == StatusCancelled
	case StatusSent:
		return target == StatusOverdue || target == StatusPartialReturn ||
			target == StatusCompleted || target == StatusCancelled
	case StatusOverdue:
		return target == StatusPartialReturn || target == StatusCompleted || target == StatusCancelled
	case StatusPartialReturn:
		return target == StatusCompleted || target == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false // Terminal states
	}
	return false
}

// newInvalidTransition builds the error for a rejected state change,
// naming both the current and the requested status.
func newInvalidTransition(from, to Status) *shared.DomainError {
	return shared.NewDomainErrorf("INVALID_TRANSITION",
		"Cannot transition shipment from %s to %s", from, to)
}

// Item represents a product line in a conditional shipment.
// The line itself is fixed when the shipment is assembled; only the
// disposition quantities mutate during reconciliation.
type Item struct {
	ID               uuid.UUID
	ShipmentID       uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	ProductCode      string
	QuantitySent     int             // Fixed at assembly, > 0
	QuantityKept     int             // Units the customer bought
	QuantityReturned int             // Units back in sellable stock
	QuantityDamaged  int             // Written off, never restocked
	QuantityLost     int             // Written off, never restocked
	UnitPrice        decimal.Decimal // Price charged per kept unit
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewItem creates a new shipment item
func NewItem(
	shipmentID, productID uuid.UUID,
	productName, productCode string,
	quantitySent int,
	unitPrice valueobject.Money,
) (*Item, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantitySent <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Sent quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	return &Item{
		ID:           uuid.New(),
		ShipmentID:   shipmentID,
		ProductID:    productID,
		ProductName:  productName,
		ProductCode:  productCode,
		QuantitySent: quantitySent,
		UnitPrice:    unitPrice.Amount(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// QuantityProcessed returns the number of units with a recorded disposition
func (i *Item) QuantityProcessed() int {
	return i.QuantityKept + i.QuantityReturned + i.QuantityDamaged + i.QuantityLost
}

// QuantityPending returns the number of units still awaiting a disposition
func (i *Item) QuantityPending() int {
	return i.QuantitySent - i.QuantityProcessed()
}

// IsFullyProcessed returns true once every sent unit has a disposition
func (i *Item) IsFullyProcessed() bool {
	return i.QuantityPending() == 0
}

// SetQuantities replaces the disposition quantities for this item.
// The four buckets may never sum past the sent quantity.
func (i *Item) SetQuantities(kept, returned, damaged, lost int) error {
	if kept < 0 || returned < 0 || damaged < 0 || lost < 0 {
		return shared.NewDomainErrorf("INVALID_QUANTITY",
			"Quantities for item %s cannot be negative", i.ID)
	}
	if kept+returned+damaged+lost > i.QuantitySent {
		return shared.NewDomainErrorf("QUANTITY_EXCEEDS_SENT",
			"Item %s: kept %d + returned %d + damaged %d + lost %d exceeds sent quantity %d",
			i.ID, kept, returned, damaged, lost, i.QuantitySent)
	}

	i.QuantityKept = kept
	i.QuantityReturned = returned
	i.QuantityDamaged = damaged
	i.QuantityLost = lost
	i.UpdatedAt = time.Now()

	return nil
}

// SetNotes sets the free-text note for the item
func (i *Item) SetNotes(notes string) {
	i.Notes = notes
	i.UpdatedAt = time.Now()
}

// LineTotalSent returns quantitySent x unitPrice
func (i *Item) LineTotalSent() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.QuantitySent)))
}

// LineTotalKept returns quantityKept x unitPrice
func (i *Item) LineTotalKept() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.QuantityKept)))
}

// LineTotalReturned returns quantityReturned x unitPrice
func (i *Item) LineTotalReturned() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.QuantityReturned)))
}

// GetUnitPriceMoney returns the unit price as Money value object
func (i *Item) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(i.UnitPrice)
}

// TableName overrides the gorm table name
func (Item) TableName() string {
	return "shipment_items"
}

// Shipment is the conditional-shipment aggregate root.
// A merchant assembles a batch of items, sends it to a customer on
// approval, and later reconciles what was kept, returned, damaged or lost.
type Shipment struct {
	shared.TenantAggregateRoot
	ShipmentNumber  string
	CustomerID      uuid.UUID
	CustomerName    string
	ShippingAddress string
	Carrier         string
	TrackingCode    string
	Notes           string
	Status          Status
	SentAt          *time.Time
	Deadline        *time.Time
	CompletedAt     *time.Time
	CancelReason    string
	// SaleCreated guards the sale side effect: CreateSale runs at most once
	// per shipment no matter how often finalization is retried.
	SaleCreated bool
	SaleID      *uuid.UUID
	Items       []Item `gorm:"foreignKey:ShipmentID"`
}

// NewShipment creates a new conditional shipment in PENDING status
func NewShipment(
	tenantID uuid.UUID,
	shipmentNumber string,
	customerID uuid.UUID,
	customerName, shippingAddress string,
) (*Shipment, error) {
	if shipmentNumber == "" {
		return nil, shared.NewDomainError("INVALID_SHIPMENT_NUMBER", "Shipment number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if shippingAddress == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Shipping address cannot be empty")
	}

	s := &Shipment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ShipmentNumber:      shipmentNumber,
		CustomerID:          customerID,
		CustomerName:        customerName,
		ShippingAddress:     shippingAddress,
		Status:              StatusPending,
		Items:               make([]Item, 0),
	}

	s.AddDomainEvent(NewShipmentCreatedEvent(s))

	return s, nil
}

// AddItem adds a product line while the shipment is being assembled.
// The item set is fixed once the shipment leaves PENDING.
func (s *Shipment) AddItem(
	productID uuid.UUID,
	productName, productCode string,
	quantitySent int,
	unitPrice valueobject.Money,
) (*Item, error) {
	if s.Status != StatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Items can only be added while the shipment is pending")
	}

	for _, item := range s.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("DUPLICATE_ITEM", "Product already present in shipment")
		}
	}

	item, err := NewItem(s.ID, productID, productName, productCode, quantitySent, unitPrice)
	if err != nil {
		return nil, err
	}

	s.Items = append(s.Items, *item)
	s.Touch()

	return item, nil
}

// SetNotes sets the free-text note for the shipment
func (s *Shipment) SetNotes(notes string) {
	s.Notes = notes
	s.Touch()
}

// MarkAsSent transitions the shipment from PENDING to SENT.
// deadlineDays <= 0 falls back to DefaultDeadlineDays.
func (s *Shipment) MarkAsSent(carrier, trackingCode string, deadlineDays int) error {
	if !s.Status.CanTransitionTo(StatusSent) {
		return newInvalidTransition(s.Status, StatusSent)
	}
	if len(s.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot send a shipment without items")
	}
	if deadlineDays <= 0 {
		deadlineDays = DefaultDeadlineDays
	}

	now := time.Now()
	deadline := now.AddDate(0, 0, deadlineDays)
	s.Status = StatusSent
	s.SentAt = &now
	s.Deadline = &deadline
	s.Carrier = carrier
	s.TrackingCode = trackingCode
	s.UpdatedAt = now

	s.AddDomainEvent(NewShipmentSentEvent(s))

	return nil
}

// MarkOverdueIfExpired flips a SENT shipment to OVERDUE once the deadline
// has passed. Purely observational: no quantities change and reconciliation
// stays open. Returns true when the status actually changed.
func (s *Shipment) MarkOverdueIfExpired(now time.Time) bool {
	if s.Status != StatusSent || s.Deadline == nil {
		return false
	}
	if !now.After(*s.Deadline) {
		return false
	}

	s.Status = StatusOverdue
	s.UpdatedAt = now

	s.AddDomainEvent(NewShipmentOverdueEvent(s))

	return true
}

// QuantityInput is a full replacement disposition set for one item
type QuantityInput struct {
	ItemID           uuid.UUID
	QuantityKept     int
	QuantityReturned int
	QuantityDamaged  int
	QuantityLost     int
	Notes            string
}

// ApplyQuantities validates and persists a full replacement set of
// disposition quantities. All inputs are validated before any item is
// mutated, so a rejected request leaves the aggregate untouched.
func (s *Shipment) ApplyQuantities(inputs []QuantityInput) error {
	if !s.Status.IsReconcilable() {
		return shared.NewDomainErrorf("INVALID_TRANSITION",
			"Cannot record quantities while shipment is %s", s.Status)
	}

	staged := make(map[uuid.UUID]QuantityInput, len(inputs))
	for _, in := range inputs {
		item := s.GetItem(in.ItemID)
		if item == nil {
			return shared.NewDomainErrorf("ITEM_NOT_FOUND",
				"Shipment item not found: %s", in.ItemID)
		}
		if in.QuantityKept < 0 || in.QuantityReturned < 0 || in.QuantityDamaged < 0 || in.QuantityLost < 0 {
			return shared.NewDomainErrorf("INVALID_QUANTITY",
				"Quantities for item %s cannot be negative", in.ItemID)
		}
		if in.QuantityKept+in.QuantityReturned+in.QuantityDamaged+in.QuantityLost > item.QuantitySent {
			return shared.NewDomainErrorf("QUANTITY_EXCEEDS_SENT",
				"Item %s: kept %d + returned %d + damaged %d + lost %d exceeds sent quantity %d",
				in.ItemID, in.QuantityKept, in.QuantityReturned, in.QuantityDamaged, in.QuantityLost, item.QuantitySent)
		}
		staged[in.ItemID] = in
	}

	for id, in := range staged {
		item := s.GetItem(id)
		if err := item.SetQuantities(in.QuantityKept, in.QuantityReturned, in.QuantityDamaged, in.QuantityLost); err != nil {
			return err
		}
		if in.Notes != "" {
			item.SetNotes(in.Notes)
		}
	}
	s.Touch()

	return nil
}

// BeginPartialReturn records that reconciliation has started without being
// final. SENT and OVERDUE move to PARTIAL_RETURN; an already partial
// shipment stays where it is.
func (s *Shipment) BeginPartialReturn() error {
	if s.Status == StatusPartialReturn {
		return nil
	}
	if !s.Status.CanTransitionTo(StatusPartialReturn) {
		return newInvalidTransition(s.Status, StatusPartialReturn)
	}

	s.Status = StatusPartialReturn
	s.Touch()

	s.AddDomainEvent(NewShipmentPartialReturnEvent(s))

	return nil
}

// EnsureReconciled reports whether the shipment could be completed right
// now: every item needs a full disposition.
func (s *Shipment) EnsureReconciled() error {
	for idx := range s.Items {
		if !s.Items[idx].IsFullyProcessed() {
			return shared.NewDomainErrorf("INCOMPLETE_RECONCILIATION",
				"Item %s still has %d pending units",
				s.Items[idx].ID, s.Items[idx].QuantityPending())
		}
	}
	return nil
}

// Complete finalizes the reconciliation. Every item must be fully
// processed; finalization is all-or-nothing across items.
func (s *Shipment) Complete() error {
	if !s.Status.CanTransitionTo(StatusCompleted) {
		return newInvalidTransition(s.Status, StatusCompleted)
	}
	if err := s.EnsureReconciled(); err != nil {
		return err
	}

	now := time.Now()
	s.Status = StatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewShipmentCompletedEvent(s))

	return nil
}

// MarkSaleCreated records that the sale side effect has run.
// Subsequent finalization retries must skip sale creation.
func (s *Shipment) MarkSaleCreated(saleID uuid.UUID) error {
	if s.SaleCreated {
		return shared.NewDomainError("SALE_ALREADY_CREATED", "Sale was already created for this shipment")
	}
	s.SaleCreated = true
	s.SaleID = &saleID
	s.Touch()
	return nil
}

// Cancel cancels the shipment. Allowed from PENDING, SENT, OVERDUE and
// PARTIAL_RETURN; the caller is responsible for restoring the full sent
// quantity of every item to the inventory ledger.
func (s *Shipment) Cancel(reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if !s.Status.CanTransitionTo(StatusCancelled) {
		return newInvalidTransition(s.Status, StatusCancelled)
	}

	now := time.Now()
	s.Status = StatusCancelled
	s.CancelReason = reason
	s.CompletedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewShipmentCancelledEvent(s))

	return nil
}

// OverrideStatus is the administrative escape hatch: it sets the status
// directly, bypassing the guarded transitions. Terminal shipments are
// immutable even for operators. Side effects are never reversed here.
func (s *Shipment) OverrideStatus(newStatus Status) (Status, error) {
	if !newStatus.IsValid() {
		return s.Status, shared.NewDomainErrorf("INVALID_INPUT",
			"Unknown shipment status: %s", newStatus)
	}
	if s.Status.IsTerminal() {
		return s.Status, newInvalidTransition(s.Status, newStatus)
	}

	previous := s.Status
	s.Status = newStatus
	s.Touch()

	s.AddDomainEvent(NewShipmentStatusOverriddenEvent(s, previous))

	return previous, nil
}

// GetItem returns an item by its ID
func (s *Shipment) GetItem(itemID uuid.UUID) *Item {
	for idx := range s.Items {
		if s.Items[idx].ID == itemID {
			return &s.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns an item by its product ID
func (s *Shipment) GetItemByProduct(productID uuid.UUID) *Item {
	for idx := range s.Items {
		if s.Items[idx].ProductID == productID {
			return &s.Items[idx]
		}
	}
	return nil
}

// ItemCount returns the number of product lines in the shipment
func (s *Shipment) ItemCount() int {
	return len(s.Items)
}

// AllItemsProcessed returns true once every item has a full disposition
func (s *Shipment) AllItemsProcessed() bool {
	for idx := range s.Items {
		if !s.Items[idx].IsFullyProcessed() {
			return false
		}
	}
	return true
}

// MatchesRecordedQuantities reports whether every input matches the
// disposition already recorded on the corresponding item. Unknown item
// IDs never match.
func (s *Shipment) MatchesRecordedQuantities(inputs []QuantityInput) bool {
	for _, in := range inputs {
		item := s.GetItem(in.ItemID)
		if item == nil {
			return false
		}
		if item.QuantityKept != in.QuantityKept ||
			item.QuantityReturned != in.QuantityReturned ||
			item.QuantityDamaged != in.QuantityDamaged ||
			item.QuantityLost != in.QuantityLost {
			return false
		}
	}
	return true
}

// HasRecordedQuantities returns true if any disposition has been recorded
func (s *Shipment) HasRecordedQuantities() bool {
	for idx := range s.Items {
		if s.Items[idx].QuantityProcessed() > 0 {
			return true
		}
	}
	return false
}

// KeptLines returns the sale lines for all kept units
func (s *Shipment) KeptLines() []SaleLine {
	lines := make([]SaleLine, 0, len(s.Items))
	for idx := range s.Items {
		if s.Items[idx].QuantityKept > 0 {
			lines = append(lines, SaleLine{
				ProductID: s.Items[idx].ProductID,
				Quantity:  s.Items[idx].QuantityKept,
				UnitPrice: s.Items[idx].UnitPrice,
			})
		}
	}
	return lines
}

// IsPending returns true if the shipment has not been sent yet
func (s *Shipment) IsPending() bool {
	return s.Status == StatusPending
}

// IsSent returns true if the shipment is with the customer
func (s *Shipment) IsSent() bool {
	return s.Status == StatusSent
}

// IsOverdue returns true if the reconciliation deadline has passed
func (s *Shipment) IsOverdue() bool {
	return s.Status == StatusOverdue
}

// IsCompleted returns true if the shipment has been fully reconciled
func (s *Shipment) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// IsCancelled returns true if the shipment was cancelled
func (s *Shipment) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// IsTerminal returns true if the shipment is in a terminal state
func (s *Shipment) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// TableName overrides the gorm table name
func (Shipment) TableName() string {
	return "shipments"
}
