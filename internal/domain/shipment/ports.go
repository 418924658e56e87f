package shipment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLine is one product line of a sale created from kept units
type SaleLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// InventoryLedger is the engine's view of the stock system. The ledger is
// the source of truth for stock levels; the engine only ever asks it to
// reserve or restore quantities.
type InventoryLedger interface {
	// Reserve removes qty units of a product from sellable stock.
	// Stock for a shipment is reserved while the shipment is assembled,
	// before it enters the reconciliation flow; the engine itself only
	// ever restores.
	Reserve(ctx context.Context, tenantID, productID uuid.UUID, qty int) error

	// Restore puts qty units of a product back into sellable stock.
	// Called for returned units on finalization and for the full sent
	// quantity on cancellation; never for damaged or lost units.
	Restore(ctx context.Context, tenantID, productID uuid.UUID, qty int) error
}

// SaleCreator creates the sale for the kept units of a completed shipment.
// Idempotency is the engine's responsibility: the creator may be called
// at most once per shipment.
type SaleCreator interface {
	CreateSale(ctx context.Context, tenantID uuid.UUID, lines []SaleLine, paymentMethod string) (uuid.UUID, error)
}
