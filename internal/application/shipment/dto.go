package shipment

import (
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shipment"
	"github.com/shopspring/decimal"
)

// ==================== Shipment DTOs ====================

// CreateShipmentRequest represents a request to create a conditional shipment
type CreateShipmentRequest struct {
	CustomerID      uuid.UUID                 `json:"customer_id" binding:"required"`
	CustomerName    string                    `json:"customer_name" binding:"required,min=1,max=200"`
	ShippingAddress string                    `json:"shipping_address" binding:"required,min=1,max=500"`
	Items           []CreateShipmentItemInput `json:"items" binding:"required,min=1"`
	Notes           string                    `json:"notes"`
}

// CreateShipmentItemInput represents an item in the create shipment request
type CreateShipmentItemInput struct {
	ProductID    uuid.UUID       `json:"product_id" binding:"required"`
	ProductName  string          `json:"product_name" binding:"required,min=1,max=200"`
	ProductCode  string          `json:"product_code" binding:"max=50"`
	QuantitySent int             `json:"quantity_sent" binding:"required,min=1"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	Notes        string          `json:"notes"`
}

// SendShipmentRequest represents a request to dispatch a shipment
type SendShipmentRequest struct {
	Carrier      string `json:"carrier" binding:"max=100"`
	TrackingCode string `json:"tracking_code" binding:"max=100"`
	DeadlineDays int    `json:"deadline_days" binding:"omitempty,min=1,max=365"`
}

// ReturnQuantityInput is the full replacement disposition set for one item
type ReturnQuantityInput struct {
	ItemID           uuid.UUID `json:"item_id" binding:"required"`
	QuantityKept     int       `json:"quantity_kept" binding:"min=0"`
	QuantityReturned int       `json:"quantity_returned" binding:"min=0"`
	QuantityDamaged  int       `json:"quantity_damaged" binding:"min=0"`
	QuantityLost     int       `json:"quantity_lost" binding:"min=0"`
	Notes            string    `json:"notes"`
}

// ProcessReturnRequest records reconciliation quantities. When Finalize is
// true the shipment is completed and the sale and inventory side effects run.
type ProcessReturnRequest struct {
	Items         []ReturnQuantityInput `json:"items" binding:"required,min=1"`
	Finalize      bool                  `json:"finalize"`
	PaymentMethod string                `json:"payment_method" binding:"max=50"`
}

// CancelShipmentRequest represents a request to cancel a shipment
type CancelShipmentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ChangeStatusRequest is the administrative status override
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,shipmentstatus"`
	Reason string `json:"reason" binding:"max=500"`
}

// ShipmentListFilter represents filter options for the shipment list
type ShipmentListFilter struct {
	Search     string           `form:"search"`
	CustomerID *uuid.UUID       `form:"customer_id"`
	Status     *shipment.Status `form:"status"`
	Statuses   []string         `form:"statuses"`
	StartDate  *time.Time       `form:"start_date"`
	EndDate    *time.Time       `form:"end_date"`
	Page       int              `form:"page" binding:"min=0"`
	PageSize   int              `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string           `form:"order_by"`
	OrderDir   string           `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ShipmentResponse represents a conditional shipment in API responses
type ShipmentResponse struct {
	ID              uuid.UUID              `json:"id"`
	TenantID        uuid.UUID              `json:"tenant_id"`
	ShipmentNumber  string                 `json:"shipment_number"`
	CustomerID      uuid.UUID              `json:"customer_id"`
	CustomerName    string                 `json:"customer_name"`
	ShippingAddress string                 `json:"shipping_address"`
	Carrier         string                 `json:"carrier,omitempty"`
	TrackingCode    string                 `json:"tracking_code,omitempty"`
	Items           []ShipmentItemResponse `json:"items"`
	ItemCount       int                    `json:"item_count"`
	Status          string                 `json:"status"`
	Notes           string                 `json:"notes,omitempty"`
	SentAt          *time.Time             `json:"sent_at,omitempty"`
	Deadline        *time.Time             `json:"deadline,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	CancelReason    string                 `json:"cancel_reason,omitempty"`
	SaleCreated     bool                   `json:"sale_created"`
	SaleID          *uuid.UUID             `json:"sale_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Version         int                    `json:"version"`
}

// ShipmentListItemResponse represents a shipment in list responses (less detail)
type ShipmentListItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	ShipmentNumber string          `json:"shipment_number"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	ItemCount      int             `json:"item_count"`
	TotalSent      decimal.Decimal `json:"total_sent"`
	Status         string          `json:"status"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ShipmentItemResponse represents a shipment item in API responses
type ShipmentItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	ProductCode      string          `json:"product_code,omitempty"`
	QuantitySent     int             `json:"quantity_sent"`
	QuantityKept     int             `json:"quantity_kept"`
	QuantityReturned int             `json:"quantity_returned"`
	QuantityDamaged  int             `json:"quantity_damaged"`
	QuantityLost     int             `json:"quantity_lost"`
	QuantityPending  int             `json:"quantity_pending"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotalSent    decimal.Decimal `json:"line_total_sent"`
	LineTotalKept    decimal.Decimal `json:"line_total_kept"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ShipmentSummaryResponse is the financial summary of a shipment
type ShipmentSummaryResponse struct {
	ShipmentID    uuid.UUID       `json:"shipment_id"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	TotalSent     decimal.Decimal `json:"total_sent"`
	TotalKept     decimal.Decimal `json:"total_kept"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	SentCount     int             `json:"sent_count"`
	KeptCount     int             `json:"kept_count"`
	ReturnedCount int             `json:"returned_count"`
	DamagedCount  int             `json:"damaged_count"`
	LostCount     int             `json:"lost_count"`
	PendingCount  int             `json:"pending_count"`
	SaleCreated   bool            `json:"sale_created"`
	SaleID        *uuid.UUID      `json:"sale_id,omitempty"`
}

// ProcessReturnResponse carries the updated shipment and its recomputed
// financial summary after a reconciliation request
type ProcessReturnResponse struct {
	Shipment ShipmentResponse        `json:"shipment"`
	Summary  ShipmentSummaryResponse `json:"summary"`
}

// ChangeStatusResponse reports the result of an administrative override
type ChangeStatusResponse struct {
	ID             uuid.UUID `json:"id"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
}

// ToShipmentResponse converts a domain Shipment to a response DTO
func ToShipmentResponse(s *shipment.Shipment) ShipmentResponse {
	items := make([]ShipmentItemResponse, len(s.Items))
	for i := range s.Items {
		items[i] = ToShipmentItemResponse(&s.Items[i])
	}

	return ShipmentResponse{
		ID:              s.ID,
		TenantID:        s.TenantID,
		ShipmentNumber:  s.ShipmentNumber,
		CustomerID:      s.CustomerID,
		CustomerName:    s.CustomerName,
		ShippingAddress: s.ShippingAddress,
		Carrier:         s.Carrier,
		TrackingCode:    s.TrackingCode,
		Items:           items,
		ItemCount:       s.ItemCount(),
		Status:          string(s.Status),
		Notes:           s.Notes,
		SentAt:          s.SentAt,
		Deadline:        s.Deadline,
		CompletedAt:     s.CompletedAt,
		CancelReason:    s.CancelReason,
		SaleCreated:     s.SaleCreated,
		SaleID:          s.SaleID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		Version:         s.Version,
	}
}

// ToShipmentListItemResponse converts a domain Shipment to a list response DTO
func ToShipmentListItemResponse(s *shipment.Shipment) ShipmentListItemResponse {
	summary := s.Summarize()
	return ShipmentListItemResponse{
		ID:             s.ID,
		ShipmentNumber: s.ShipmentNumber,
		CustomerID:     s.CustomerID,
		CustomerName:   s.CustomerName,
		ItemCount:      s.ItemCount(),
		TotalSent:      summary.TotalSent,
		Status:         string(s.Status),
		SentAt:         s.SentAt,
		Deadline:       s.Deadline,
		CompletedAt:    s.CompletedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ToShipmentListItemResponses converts a slice of domain shipments to list responses
func ToShipmentListItemResponses(shipments []shipment.Shipment) []ShipmentListItemResponse {
	responses := make([]ShipmentListItemResponse, len(shipments))
	for i := range shipments {
		responses[i] = ToShipmentListItemResponse(&shipments[i])
	}
	return responses
}

// ToShipmentItemResponse converts a domain Item to a response DTO
func ToShipmentItemResponse(item *shipment.Item) ShipmentItemResponse {
	return ShipmentItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		ProductCode:      item.ProductCode,
		QuantitySent:     item.QuantitySent,
		QuantityKept:     item.QuantityKept,
		QuantityReturned: item.QuantityReturned,
		QuantityDamaged:  item.QuantityDamaged,
		QuantityLost:     item.QuantityLost,
		QuantityPending:  item.QuantityPending(),
		UnitPrice:        item.UnitPrice,
		LineTotalSent:    item.LineTotalSent(),
		LineTotalKept:    item.LineTotalKept(),
		Notes:            item.Notes,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

// ToShipmentSummaryResponse builds the financial summary DTO
func ToShipmentSummaryResponse(s *shipment.Shipment) ShipmentSummaryResponse {
	summary := s.Summarize()
	return ShipmentSummaryResponse{
		ShipmentID:    s.ID,
		Status:        string(s.Status),
		Currency:      "BRL",
		TotalSent:     summary.TotalSent,
		TotalKept:     summary.TotalKept,
		TotalReturned: summary.TotalReturned,
		SentCount:     summary.SentCount,
		KeptCount:     summary.KeptCount,
		ReturnedCount: summary.ReturnedCount,
		DamagedCount:  summary.DamagedCount,
		LostCount:     summary.LostCount,
		PendingCount:  summary.PendingCount(),
		SaleCreated:   s.SaleCreated,
		SaleID:        s.SaleID,
	}
}
