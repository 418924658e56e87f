package shipment

import (
	"context"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shared/valueobject"
	"github.com/malinha/backend/internal/domain/shipment"
	"go.uber.org/zap"
)

// ReconciliationService handles conditional-shipment business operations:
// assembly, dispatch, quantity reconciliation and the sale and inventory
// side effects of finalization.
type ReconciliationService struct {
	repo           shipment.Repository
	ledger         shipment.InventoryLedger
	sales          shipment.SaleCreator
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	repo shipment.Repository,
	ledger shipment.InventoryLedger,
	sales shipment.SaleCreator,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		repo:   repo,
		ledger: ledger,
		sales:  sales,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *ReconciliationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create assembles a new conditional shipment with its items
func (s *ReconciliationService) Create(ctx context.Context, tenantID uuid.UUID, req CreateShipmentRequest) (*ShipmentResponse, error) {
	// Generate shipment number
	number, err := s.repo.GenerateShipmentNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	sh, err := shipment.NewShipment(tenantID, number, req.CustomerID, req.CustomerName, req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	if req.Notes != "" {
		sh.SetNotes(req.Notes)
	}

	// Add items
	for _, in := range req.Items {
		item, err := sh.AddItem(in.ProductID, in.ProductName, in.ProductCode, in.QuantitySent,
			valueobject.NewMoneyBRL(in.UnitPrice))
		if err != nil {
			return nil, err
		}
		if in.Notes != "" {
			item.SetNotes(in.Notes)
		}
	}

	if err := s.repo.Save(ctx, sh); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, sh)

	response := ToShipmentResponse(sh)
	return &response, nil
}

// GetByID retrieves a shipment by ID
func (s *ReconciliationService) GetByID(ctx context.Context, tenantID, shipmentID uuid.UUID) (*ShipmentResponse, error) {
	sh, err := s.repo.FindByIDForTenant(ctx, tenantID, shipmentID)
	if err != nil {
		return nil, err
	}
	response := ToShipmentResponse(sh)
	return &response, nil
}

// GetByShipmentNumber retrieves a shipment by its number
func (s *ReconciliationService) GetByShipmentNumber(ctx context.Context, tenantID uuid.UUID, number string) (*ShipmentResponse, error) {
	sh, err := s.repo.FindByShipmentNumber(ctx, tenantID, number)
	if err != nil {
		return nil, err
	}
	response := ToShipmentResponse(sh)
	return &response, nil
}

// GetSummary retrieves the financial summary of a shipment
func (s *ReconciliationService) GetSummary(ctx context.Context, tenantID, shipmentID uuid.UUID) (*ShipmentSummaryResponse, error) {
	sh, err := s.repo.FindByIDForTenant(ctx, tenantID, shipmentID)
	if err != nil {
		return nil, err
	}
	response := ToShipmentSummaryResponse(sh)
	return &response, nil
}

// List retrieves a list of shipments with filtering and pagination
func (s *ReconciliationService) List(ctx context.Context, tenantID uuid.UUID, filter ShipmentListFilter) ([]ShipmentListItemResponse, int64, error) {
	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	// Build domain filter
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}

	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = string(*filter.Status)
	}
	if len(filter.Statuses) > 0 {
		domainFilter.Filters["statuses"] = filter.Statuses
	}
	if filter.StartDate != nil {
		domainFilter.Filters["start_date"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		domainFilter.Filters["end_date"] = *filter.EndDate
	}

	shipments, err := s.repo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToShipmentListItemResponses(shipments), total, nil
}

// MarkAsSent dispatches a PENDING shipment to the customer
func (s *ReconciliationService) MarkAsSent(ctx context.Context, tenantID, shipmentID uuid.UUID, req SendShipmentRequest) (*ShipmentResponse, error) {
	sh, err := s.repo.FindByIDForTenant(ctx, tenantID, shipmentID)
	if err != nil {
		return nil, err
	}

	if err := sh.MarkAsSent(req.Carrier, req.TrackingCode, req.DeadlineDays); err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithLock(ctx, sh); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, sh)

	response := ToShipmentResponse(sh)
	return &response, nil
}

// ProcessReturn records reconciliation quantities and, when finalizing,
// runs the sale and inventory side effects and completes the shipment.
//
// The whole operation runs in the repository's exclusive scope so two
// concurrent calls on the same shipment serialize. Validation failures
// roll the transaction back and leave the aggregate untouched. External
// failures after validation commit the progress made so far (quantities,
// the sale flag once the sale call succeeded) and surface as
// EXTERNAL_DEPENDENCY_FAILURE, so a retry of the same request converges
// without creating a second sale.
func (s *ReconciliationService) ProcessReturn(ctx context.Context, tenantID, shipmentID uuid.UUID, req ProcessReturnRequest) (*ProcessReturnResponse, error) {
	inputs := make([]shipment.QuantityInput, len(req.Items))
	for i, in := range req.Items {
		inputs[i] = shipment.QuantityInput{
			ItemID:           in.ItemID,
			QuantityKept:     in.QuantityKept,
			QuantityReturned: in.QuantityReturned,
			QuantityDamaged:  in.QuantityDamaged,
			QuantityLost:     in.QuantityLost,
			Notes:            in.Notes,
		}
	}

	var extErr error

	updated, err := s.repo.UpdateInExclusiveScope(ctx, tenantID, shipmentID, func(sh *shipment.Shipment) error {
		// A finalize that already completed with these exact quantities
		// is a retry of a successful call. Return the settled state as is.
		if req.Finalize && sh.Status == shipment.StatusCompleted && sh.MatchesRecordedQuantities(inputs) {
			return nil
		}

		if err := sh.ApplyQuantities(inputs); err != nil {
			return err
		}

		if !req.Finalize {
			if sh.HasRecordedQuantities() {
				return sh.BeginPartialReturn()
			}
			return nil
		}

		// Finalize preconditions fail the whole request before any
		// mutation is committed or any external call is made.
		if err := sh.EnsureReconciled(); err != nil {
			return err
		}
		keptLines := sh.KeptLines()
		if len(keptLines) > 0 && req.PaymentMethod == "" {
			return shared.NewDomainError("MISSING_PAYMENT_METHOD",
				"Payment method is required when finalizing with kept units")
		}

		if len(keptLines) > 0 && !sh.SaleCreated {
			saleID, err := s.sales.CreateSale(ctx, tenantID, keptLines, req.PaymentMethod)
			if err != nil {
				extErr = externalFailure("sale creation", err)
				// Commit the recorded quantities so the retry only
				// repeats the sale call.
				_ = sh.BeginPartialReturn()
				return nil
			}
			if err := sh.MarkSaleCreated(saleID); err != nil {
				return err
			}
		}

		// Returned units go back to sellable stock. Damaged and lost
		// units are written off and never restored.
		for idx := range sh.Items {
			item := &sh.Items[idx]
			if item.QuantityReturned == 0 {
				continue
			}
			if err := s.ledger.Restore(ctx, tenantID, item.ProductID, item.QuantityReturned); err != nil {
				extErr = externalFailure("inventory restore", err)
				// Keep the sale flag: the sale already exists and a
				// retry must not create it again.
				_ = sh.BeginPartialReturn()
				return nil
			}
		}

		return sh.Complete()
	})
	if err != nil {
		return nil, err
	}
	if extErr != nil {
		s.logger.Warn("shipment finalization interrupted by external dependency",
			zap.String("shipment_id", shipmentID.String()),
			zap.Error(extErr))
		return nil, extErr
	}

	s.publishEvents(ctx, updated)

	return &ProcessReturnResponse{
		Shipment: ToShipmentResponse(updated),
		Summary:  ToShipmentSummaryResponse(updated),
	}, nil
}

// Cancel cancels a shipment and restores the full sent quantity of every
// item to the inventory ledger, reversing the reservation made at
// assembly time.
func (s *ReconciliationService) Cancel(ctx context.Context, tenantID, shipmentID uuid.UUID, req CancelShipmentRequest) (*ShipmentResponse, error) {
	var extErr error

	updated, err := s.repo.UpdateInExclusiveScope(ctx, tenantID, shipmentID, func(sh *shipment.Shipment) error {
		if err := sh.Cancel(req.Reason); err != nil {
			return err
		}

		// The ledger reserved the full sent quantity when the shipment
		// was assembled, so cancellation hands it all back, even from
		// PENDING and regardless of partial bookkeeping.
		for idx := range sh.Items {
			item := &sh.Items[idx]
			if err := s.ledger.Restore(ctx, tenantID, item.ProductID, item.QuantitySent); err != nil {
				extErr = externalFailure("inventory restore", err)
				return err
			}
		}
		return nil
	})
	if extErr != nil {
		return nil, extErr
	}
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, updated)

	response := ToShipmentResponse(updated)
	return &response, nil
}

// ChangeStatus is the administrative status override. It bypasses the
// guarded transitions, is refused for terminal shipments and never
// reverses side effects. Every use is logged and audited.
func (s *ReconciliationService) ChangeStatus(ctx context.Context, tenantID, shipmentID uuid.UUID, req ChangeStatusRequest) (*ChangeStatusResponse, error) {
	target := shipment.Status(req.Status)

	var previous shipment.Status
	updated, err := s.repo.UpdateInExclusiveScope(ctx, tenantID, shipmentID, func(sh *shipment.Shipment) error {
		prev, err := sh.OverrideStatus(target)
		if err != nil {
			return err
		}
		previous = prev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("shipment status overridden",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Status)),
		zap.String("reason", req.Reason))

	s.publishEvents(ctx, updated)

	return &ChangeStatusResponse{
		ID:             updated.ID,
		PreviousStatus: string(previous),
		Status:         string(updated.Status),
	}, nil
}

// StatusSummary counts shipments per status for a tenant
type StatusSummary struct {
	Pending       int64 `json:"pending"`
	Sent          int64 `json:"sent"`
	Overdue       int64 `json:"overdue"`
	PartialReturn int64 `json:"partial_return"`
	Completed     int64 `json:"completed"`
	Cancelled     int64 `json:"cancelled"`
	Total         int64 `json:"total"`
}

// GetStatusSummary returns shipment counts per status
func (s *ReconciliationService) GetStatusSummary(ctx context.Context, tenantID uuid.UUID) (*StatusSummary, error) {
	summary := &StatusSummary{}
	counts := []struct {
		status shipment.Status
		target *int64
	}{
		{shipment.StatusPending, &summary.Pending},
		{shipment.StatusSent, &summary.Sent},
		{shipment.StatusOverdue, &summary.Overdue},
		{shipment.StatusPartialReturn, &summary.PartialReturn},
		{shipment.StatusCompleted, &summary.Completed},
		{shipment.StatusCancelled, &summary.Cancelled},
	}
	for _, c := range counts {
		n, err := s.repo.CountByStatus(ctx, tenantID, c.status)
		if err != nil {
			return nil, err
		}
		*c.target = n
		summary.Total += n
	}
	return summary, nil
}

// publishEvents flushes the aggregate's pending domain events
func (s *ReconciliationService) publishEvents(ctx context.Context, sh *shipment.Shipment) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range sh.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	sh.ClearDomainEvents()
}

// externalFailure wraps an outbound dependency error in the domain error
// the HTTP layer maps to 502.
func externalFailure(operation string, err error) *shared.DomainError {
	return shared.NewDomainError("EXTERNAL_DEPENDENCY_FAILURE",
		operation+" failed: "+err.Error())
}
