package shipment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
)

// Repository defines the interface for shipment persistence
type Repository interface {
	// FindByID finds a shipment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)

	// FindByIDForTenant finds a shipment by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Shipment, error)

	// FindByShipmentNumber finds a shipment by its number for a tenant
	FindByShipmentNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Shipment, error)

	// FindAllForTenant finds all shipments for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Shipment, error)

	// FindExpiredSent finds SENT shipments whose deadline lies before the
	// given instant, across all tenants. Used by the overdue scanner.
	FindExpiredSent(ctx context.Context, before time.Time, limit int) ([]Shipment, error)

	// Save creates or updates a shipment with its items
	Save(ctx context.Context, s *Shipment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, s *Shipment) error

	// UpdateInExclusiveScope loads the shipment under a per-row exclusive
	// lock, runs fn against it and persists the result, all inside one
	// transaction. This is the mutual-exclusion scope for reconciliation
	// and cancellation: two concurrent calls on the same shipment
	// serialize, calls on different shipments run in parallel.
	UpdateInExclusiveScope(ctx context.Context, tenantID, id uuid.UUID, fn func(s *Shipment) error) (*Shipment, error)

	// CountForTenant counts shipments for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// CountByStatus counts shipments by status for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID, status Status) (int64, error)

	// ExistsByShipmentNumber checks if a shipment number exists for a tenant
	ExistsByShipmentNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)

	// GenerateShipmentNumber generates a unique shipment number for a tenant
	GenerateShipmentNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
