package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shipment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShipmentRepository implements shipment.Repository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByID finds a shipment by its ID
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&sh, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sh, nil
}

// FindByIDForTenant finds a shipment by ID within a tenant
func (r *GormShipmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sh, nil
}

// FindByShipmentNumber finds a shipment by its number for a tenant
func (r *GormShipmentRepository) FindByShipmentNumber(ctx context.Context, tenantID uuid.UUID, number string) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND shipment_number = ?", tenantID, number).
		First(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sh, nil
}

// FindAllForTenant finds all shipments for a tenant with filtering
func (r *GormShipmentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]shipment.Shipment, error) {
	var shipments []shipment.Shipment
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&shipment.Shipment{}).
			Preload("Items").
			Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

// FindExpiredSent finds SENT shipments whose deadline lies before the given
// instant, across all tenants
func (r *GormShipmentRepository) FindExpiredSent(ctx context.Context, before time.Time, limit int) ([]shipment.Shipment, error) {
	var shipments []shipment.Shipment
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", shipment.StatusSent, before).
		Order("deadline ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

// Save creates or updates a shipment with its items
func (r *GormShipmentRepository) Save(ctx context.Context, sh *shipment.Shipment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveInTx(tx, sh)
	})
}

func (r *GormShipmentRepository) saveInTx(tx *gorm.DB, sh *shipment.Shipment) error {
	// Save the shipment without auto-saving associations
	if err := tx.Omit("Items").Save(sh).Error; err != nil {
		return err
	}

	// Sync items: delete removed lines, save the rest
	currentItemIDs := make([]uuid.UUID, len(sh.Items))
	for i, item := range sh.Items {
		currentItemIDs[i] = item.ID
	}

	if len(currentItemIDs) > 0 {
		if err := tx.Where("shipment_id = ? AND id NOT IN ?", sh.ID, currentItemIDs).
			Delete(&shipment.Item{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("shipment_id = ?", sh.ID).
			Delete(&shipment.Item{}).Error; err != nil {
			return err
		}
	}

	for i := range sh.Items {
		sh.Items[i].ShipmentID = sh.ID
		if err := tx.Save(&sh.Items[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormShipmentRepository) SaveWithLock(ctx context.Context, sh *shipment.Shipment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveWithLockInTx(tx, sh)
	})
}

func (r *GormShipmentRepository) saveWithLockInTx(tx *gorm.DB, sh *shipment.Shipment) error {
	// Scan reports zero rows through RowsAffected, not ErrRecordNotFound.
	var currentVersion int
	res := tx.Model(&shipment.Shipment{}).
		Where("id = ?", sh.ID).
		Select("version").
		Scan(&currentVersion)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}

	if currentVersion != sh.Version {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The shipment has been modified by another user")
	}

	sh.Version++
	sh.UpdatedAt = time.Now()

	result := tx.Model(&shipment.Shipment{}).
		Where("id = ? AND version = ?", sh.ID, currentVersion).
		Updates(map[string]any{
			"shipment_number":  sh.ShipmentNumber,
			"customer_id":      sh.CustomerID,
			"customer_name":    sh.CustomerName,
			"shipping_address": sh.ShippingAddress,
			"carrier":          sh.Carrier,
			"tracking_code":    sh.TrackingCode,
			"notes":            sh.Notes,
			"status":           sh.Status,
			"sent_at":          sh.SentAt,
			"deadline":         sh.Deadline,
			"completed_at":     sh.CompletedAt,
			"cancel_reason":    sh.CancelReason,
			"sale_created":     sh.SaleCreated,
			"sale_id":          sh.SaleID,
			"version":          sh.Version,
			"updated_at":       sh.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The shipment has been modified by another user")
	}

	for i := range sh.Items {
		sh.Items[i].ShipmentID = sh.ID
		if err := tx.Save(&sh.Items[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

// UpdateInExclusiveScope loads the shipment under a row lock, runs fn and
// persists the result inside one transaction. Two concurrent calls on the
// same shipment serialize; an error from fn rolls everything back.
func (r *GormShipmentRepository) UpdateInExclusiveScope(ctx context.Context, tenantID, id uuid.UUID, fn func(s *shipment.Shipment) error) (*shipment.Shipment, error) {
	var sh shipment.Shipment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Items").Where("tenant_id = ? AND id = ?", tenantID, id)
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&sh).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if err := fn(&sh); err != nil {
			return err
		}

		return r.saveWithLockInTx(tx, &sh)
	})
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// CountForTenant counts shipments for a tenant with optional filters
func (r *GormShipmentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&shipment.Shipment{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts shipments by status for a tenant
func (r *GormShipmentRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status shipment.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&shipment.Shipment{}).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByShipmentNumber checks if a shipment number exists for a tenant
func (r *GormShipmentRepository) ExistsByShipmentNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&shipment.Shipment{}).
		Where("tenant_id = ? AND shipment_number = ?", tenantID, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateShipmentNumber generates a unique shipment number for a tenant
// Format: CS-YYYY-NNNNN (e.g., CS-2026-00001)
func (r *GormShipmentRepository) GenerateShipmentNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("CS-%d-", year)

	var last shipment.Shipment
	err := r.db.WithContext(ctx).
		Model(&shipment.Shipment{}).
		Where("tenant_id = ? AND shipment_number LIKE ?", tenantID, prefix+"%").
		Order("shipment_number DESC").
		First(&last).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && last.ShipmentNumber != "" {
		parts := strings.Split(last.ShipmentNumber, "-")
		if len(parts) == 3 {
			var num int64
			_, parseErr := fmt.Sscanf(parts[2], "%d", &num)
			if parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	number := fmt.Sprintf("%s%05d", prefix, nextNum)

	exists, err := r.ExistsByShipmentNumber(ctx, tenantID, number)
	if err != nil {
		return "", err
	}
	if exists {
		for i := 0; i < 100; i++ {
			nextNum++
			number = fmt.Sprintf("%s%05d", prefix, nextNum)
			exists, err = r.ExistsByShipmentNumber(ctx, tenantID, number)
			if err != nil {
				return "", err
			}
			if !exists {
				break
			}
		}
	}

	return number, nil
}

// applyFilter applies filter options to the query
func (r *GormShipmentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormShipmentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("shipment_number LIKE ? OR customer_name LIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormShipmentRepository implements shipment.Repository
var _ shipment.Repository = (*GormShipmentRepository)(nil)
