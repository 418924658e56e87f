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

// maxResponseSize caps how much of a downstream response we read (1MB)
const maxResponseSize = 1 * 1024 * 1024

// InventoryAdapter implements shipment.InventoryLedger against the
// inventory service's HTTP API. The ledger remains the source of truth
// for stock; this adapter only posts reserve and restore movements.
type InventoryAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewInventoryAdapter creates an inventory adapter from configuration
func NewInventoryAdapter(cfg config.InventoryBridgeConfig) (*InventoryAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("salesbridge: inventory base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &InventoryAdapter{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type stockMovementRequest struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type bridgeResponse struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Reserve removes qty units of a product from sellable stock
func (a *InventoryAdapter) Reserve(ctx context.Context, tenantID, productID uuid.UUID, qty int) error {
	return a.postMovement(ctx, "/api/v1/stock/reserve", tenantID, productID, qty)
}

// Restore puts qty units of a product back into sellable stock
func (a *InventoryAdapter) Restore(ctx context.Context, tenantID, productID uuid.UUID, qty int) error {
	return a.postMovement(ctx, "/api/v1/stock/restore", tenantID, productID, qty)
}

func (a *InventoryAdapter) postMovement(ctx context.Context, path string, tenantID, productID uuid.UUID, qty int) error {
	payload, err := json.Marshal(stockMovementRequest{
		TenantID:  tenantID,
		ProductID: productID,
		Quantity:  qty,
	})
	if err != nil {
		return fmt.Errorf("salesbridge: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("salesbridge: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("salesbridge: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", ErrBridgeRequestFailed, resp.StatusCode)
	}

	var parsed bridgeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrBridgeInvalidResponse, err)
	}
	if !parsed.Success {
		if parsed.Error != nil {
			return fmt.Errorf("%w: %s - %s", ErrBridgeRequestFailed, parsed.Error.Code, parsed.Error.Message)
		}
		return ErrBridgeRequestFailed
	}

	return nil
}

// Ensure InventoryAdapter implements the ledger port
var _ shipment.InventoryLedger = (*InventoryAdapter)(nil)
