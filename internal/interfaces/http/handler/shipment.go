package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	shipmentapp "github.com/malinha/backend/internal/application/shipment"
)

// ShipmentHandler handles conditional shipment API endpoints
type ShipmentHandler struct {
	BaseHandler
	service        *shipmentapp.ReconciliationService
	overdueService *shipmentapp.OverdueService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(service *shipmentapp.ReconciliationService, overdueService *shipmentapp.OverdueService) *ShipmentHandler {
	return &ShipmentHandler{
		service:        service,
		overdueService: overdueService,
	}
}

// Create creates a new conditional shipment in PENDING status
func (h *ShipmentHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req shipmentapp.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	sh, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, sh)
}

// GetByID retrieves a shipment by ID
func (h *ShipmentHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID format")
		return
	}

	sh, err := h.service.GetByID(c.Request.Context(), tenantID, shipmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sh)
}

// GetByNumber retrieves a shipment by its shipment number
func (h *ShipmentHandler) GetByNumber(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Shipment number is required")
		return
	}

	sh, err := h.service.GetByShipmentNumber(c.Request.Context(), tenantID, number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sh)
}

// GetSummary returns the financial summary for a shipment
func (h *ShipmentHandler) GetSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID format")
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), tenantID, shipmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// List retrieves a paginated list of shipments with optional filtering
func (h *ShipmentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter shipmentapp.ShipmentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	shipments, total, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, shipments, total, filter.Page, filter.PageSize)
}

// Send dispatches a shipment to the customer (PENDING to SENT)
func (h *ShipmentHandler) Send(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID format")
		return
	}

	var req shipmentapp.SendShipmentRequest
	// Allow empty body
	_ = c.ShouldBindJSON(&req)

	sh, err := h.service.MarkAsSent(c.Request.Context(), tenantID, shipmentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sh)
}

// ProcessReturn records reconciliation quantities and optionally finalizes
// the shipment, creating the sale and restoring returned stock
func (h *ShipmentHandler) ProcessReturn(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID format")
		return
	}

	var req shipmentapp.ProcessReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ProcessReturn(c.Request.Context(), tenantID, shipmentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel cancels a shipment and restores reserved stock if it was dispatched
func (h *ShipmentHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID format")
		return
	}

	var req shipmentapp.CancelShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	sh, err := h.service.Cancel(c.Request.Context(), tenantID, shipmentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sh)
}

// ChangeStatus performs an administrative status override
func (h *ShipmentHandler) ChangeStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID format")
		return
	}

	var req shipmentapp.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ChangeStatus(c.Request.Context(), tenantID, shipmentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetStatusSummary returns shipment counts per status for dashboards
func (h *ShipmentHandler) GetStatusSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	summary, err := h.service.GetStatusSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// RunOverdueScan triggers an immediate overdue scan
func (h *ShipmentHandler) RunOverdueScan(c *gin.Context) {
	stats, err := h.overdueService.MarkExpired(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}
