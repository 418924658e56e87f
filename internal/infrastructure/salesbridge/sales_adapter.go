package salesbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shipment"
	"github.com/malinha/backend/internal/infrastructure/config"
)

// SalesAdapter implements shipment.SaleCreator against the sales
// service's HTTP API. Calling it at most once per shipment is the
// caller's responsibility.
type SalesAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSalesAdapter creates a sales adapter from configuration
func NewSalesAdapter(cfg config.SalesBridgeConfig) (*SalesAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("salesbridge: sales base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SalesAdapter{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type createSaleRequest struct {
	TenantID      uuid.UUID      `json:"tenant_id"`
	PaymentMethod string         `json:"payment_method"`
	Lines         []saleLineBody `json:"lines"`
}

type saleLineBody struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
}

type createSaleResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		SaleID uuid.UUID `json:"sale_id"`
	} `json:"data,omitempty"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CreateSale creates a sale for the given lines and returns the sale ID
func (a *SalesAdapter) CreateSale(ctx context.Context, tenantID uuid.UUID, lines []shipment.SaleLine, paymentMethod string) (uuid.UUID, error) {
	body := createSaleRequest{
		TenantID:      tenantID,
		PaymentMethod: paymentMethod,
		Lines:         make([]saleLineBody, 0, len(lines)),
	}
	for _, line := range lines {
		body.Lines = append(body.Lines, saleLineBody{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("salesbridge: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/sales", bytes.NewReader(payload))
	if err != nil {
		return uuid.Nil, fmt.Errorf("salesbridge: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return uuid.Nil, fmt.Errorf("salesbridge: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return uuid.Nil, fmt.Errorf("%w: HTTP %d", ErrBridgeRequestFailed, resp.StatusCode)
	}

	var parsed createSaleResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrBridgeInvalidResponse, err)
	}
	if !parsed.Success {
		if parsed.Error != nil {
			return uuid.Nil, fmt.Errorf("%w: %s - %s", ErrBridgeRequestFailed, parsed.Error.Code, parsed.Error.Message)
		}
		return uuid.Nil, ErrBridgeRequestFailed
	}
	if parsed.Data == nil || parsed.Data.SaleID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: missing sale id", ErrBridgeInvalidResponse)
	}

	return parsed.Data.SaleID, nil
}

// Ensure SalesAdapter implements the sale creator port
var _ shipment.SaleCreator = (*SalesAdapter)(nil)
