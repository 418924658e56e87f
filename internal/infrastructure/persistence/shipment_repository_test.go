package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shared/valueobject"
	"github.com/malinha/backend/internal/domain/shipment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupShipmentTestDB creates an in-memory SQLite database for testing
func setupShipmentTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE shipments (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			tenant_id TEXT NOT NULL,
			shipment_number TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			customer_name TEXT,
			shipping_address TEXT,
			carrier TEXT,
			tracking_code TEXT,
			notes TEXT,
			status TEXT NOT NULL,
			sent_at DATETIME,
			deadline DATETIME,
			completed_at DATETIME,
			cancel_reason TEXT,
			sale_created INTEGER NOT NULL DEFAULT 0,
			sale_id TEXT,
			UNIQUE(tenant_id, shipment_number)
		)
	`).Error
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE shipment_items (
			id TEXT PRIMARY KEY,
			shipment_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			product_code TEXT,
			quantity_sent INTEGER NOT NULL,
			quantity_kept INTEGER NOT NULL DEFAULT 0,
			quantity_returned INTEGER NOT NULL DEFAULT 0,
			quantity_damaged INTEGER NOT NULL DEFAULT 0,
			quantity_lost INTEGER NOT NULL DEFAULT 0,
			unit_price TEXT NOT NULL,
			notes TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error
	require.NoError(t, err)

	return db
}

func createPersistedShipment(t *testing.T, repo *GormShipmentRepository, tenantID uuid.UUID, number string) *shipment.Shipment {
	t.Helper()
	sh, err := shipment.NewShipment(tenantID, number, uuid.New(), "Maria Souza", "Rua das Flores 123")
	require.NoError(t, err)
	_, err = sh.AddItem(uuid.New(), "Vestido Floral", "VF-01", 10, valueobject.NewMoneyBRLFromFloat(20.00))
	require.NoError(t, err)
	_, err = sh.AddItem(uuid.New(), "Calça Jeans", "CJ-02", 4, valueobject.NewMoneyBRLFromFloat(80.00))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), sh))
	return sh
}

func TestGormShipmentRepository_SaveAndFind(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	sh := createPersistedShipment(t, repo, tenantID, "CS-2026-00001")

	t.Run("finds by id with items", func(t *testing.T) {
		found, err := repo.FindByID(ctx, sh.ID)
		require.NoError(t, err)
		assert.Equal(t, sh.ShipmentNumber, found.ShipmentNumber)
		assert.Equal(t, shipment.StatusPending, found.Status)
		require.Len(t, found.Items, 2)
		assert.Equal(t, 14, found.Items[0].QuantitySent+found.Items[1].QuantitySent)
	})

	t.Run("finds by id for tenant", func(t *testing.T) {
		found, err := repo.FindByIDForTenant(ctx, tenantID, sh.ID)
		require.NoError(t, err)
		assert.Equal(t, sh.ID, found.ID)
	})

	t.Run("wrong tenant sees nothing", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), sh.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds by shipment number", func(t *testing.T) {
		found, err := repo.FindByShipmentNumber(ctx, tenantID, "CS-2026-00001")
		require.NoError(t, err)
		assert.Equal(t, sh.ID, found.ID)
	})

	t.Run("missing id returns not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormShipmentRepository_SaveUpdatesQuantities(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	sh := createPersistedShipment(t, repo, tenantID, "CS-2026-00001")
	require.NoError(t, sh.MarkAsSent("Correios", "BR1", 0))
	require.NoError(t, sh.ApplyQuantities([]shipment.QuantityInput{
		{ItemID: sh.Items[0].ID, QuantityKept: 7, QuantityReturned: 3},
	}))
	require.NoError(t, repo.Save(ctx, sh))

	found, err := repo.FindByID(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusSent, found.Status)
	require.NotNil(t, found.Deadline)

	item := found.GetItem(sh.Items[0].ID)
	require.NotNil(t, item)
	assert.Equal(t, 7, item.QuantityKept)
	assert.Equal(t, 3, item.QuantityReturned)
}

func TestGormShipmentRepository_SaveWithLock(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("increments the version", func(t *testing.T) {
		sh := createPersistedShipment(t, repo, tenantID, "CS-2026-00001")
		require.NoError(t, sh.MarkAsSent("Correios", "", 0))

		require.NoError(t, repo.SaveWithLock(ctx, sh))
		assert.Equal(t, 2, sh.Version)

		found, err := repo.FindByID(ctx, sh.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Version)
		assert.Equal(t, shipment.StatusSent, found.Status)
	})

	t.Run("rejects stale versions", func(t *testing.T) {
		sh := createPersistedShipment(t, repo, tenantID, "CS-2026-00002")

		stale, err := repo.FindByID(ctx, sh.ID)
		require.NoError(t, err)

		require.NoError(t, sh.MarkAsSent("Correios", "", 0))
		require.NoError(t, repo.SaveWithLock(ctx, sh))

		require.NoError(t, stale.Cancel("late"))
		err = repo.SaveWithLock(ctx, stale)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "modified by another user")
	})

	t.Run("reports not found for an unpersisted shipment", func(t *testing.T) {
		sh, err := shipment.NewShipment(tenantID, "CS-2026-00099", uuid.New(), "Maria Souza", "Rua das Flores 123")
		require.NoError(t, err)
		_, err = sh.AddItem(uuid.New(), "Vestido Floral", "VF-01", 10, valueobject.NewMoneyBRLFromFloat(20.00))
		require.NoError(t, err)

		err = repo.SaveWithLock(ctx, sh)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormShipmentRepository_UpdateInExclusiveScope(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("persists the mutation", func(t *testing.T) {
		sh := createPersistedShipment(t, repo, tenantID, "CS-2026-00001")
		require.NoError(t, sh.MarkAsSent("Correios", "", 0))
		require.NoError(t, repo.SaveWithLock(ctx, sh))

		updated, err := repo.UpdateInExclusiveScope(ctx, tenantID, sh.ID, func(s *shipment.Shipment) error {
			return s.ApplyQuantities([]shipment.QuantityInput{
				{ItemID: sh.Items[0].ID, QuantityKept: 5},
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 5, updated.GetItem(sh.Items[0].ID).QuantityKept)

		found, err := repo.FindByID(ctx, sh.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, found.GetItem(sh.Items[0].ID).QuantityKept)
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		sh := createPersistedShipment(t, repo, tenantID, "CS-2026-00002")
		require.NoError(t, sh.MarkAsSent("Correios", "", 0))
		require.NoError(t, repo.SaveWithLock(ctx, sh))

		_, err := repo.UpdateInExclusiveScope(ctx, tenantID, sh.ID, func(s *shipment.Shipment) error {
			require.NoError(t, s.ApplyQuantities([]shipment.QuantityInput{
				{ItemID: sh.Items[0].ID, QuantityKept: 5},
			}))
			return shared.NewDomainError("BOOM", "forced failure")
		})
		require.Error(t, err)

		found, err := repo.FindByID(ctx, sh.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, found.GetItem(sh.Items[0].ID).QuantityKept)
	})

	t.Run("unknown shipment returns not found", func(t *testing.T) {
		_, err := repo.UpdateInExclusiveScope(ctx, tenantID, uuid.New(), func(s *shipment.Shipment) error {
			return nil
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormShipmentRepository_FindExpiredSent(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	// One expired, one still inside the window, one pending
	expired := createPersistedShipment(t, repo, tenantID, "CS-2026-00001")
	require.NoError(t, expired.MarkAsSent("Correios", "", 0))
	past := time.Now().Add(-time.Hour)
	expired.Deadline = &past
	require.NoError(t, repo.Save(ctx, expired))

	fresh := createPersistedShipment(t, repo, tenantID, "CS-2026-00002")
	require.NoError(t, fresh.MarkAsSent("Correios", "", 0))
	require.NoError(t, repo.Save(ctx, fresh))

	createPersistedShipment(t, repo, tenantID, "CS-2026-00003")

	found, err := repo.FindExpiredSent(ctx, time.Now(), 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, expired.ID, found[0].ID)
	assert.Len(t, found[0].Items, 2)
}

func TestGormShipmentRepository_ListAndCount(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	first := createPersistedShipment(t, repo, tenantID, "CS-2026-00001")
	second := createPersistedShipment(t, repo, tenantID, "CS-2026-00002")
	require.NoError(t, second.MarkAsSent("Correios", "", 0))
	require.NoError(t, repo.Save(ctx, second))

	// A shipment for another tenant never shows up
	createPersistedShipment(t, repo, uuid.New(), "CS-2026-00001")

	t.Run("lists all for tenant", func(t *testing.T) {
		all, err := repo.FindAllForTenant(ctx, tenantID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("filters by status", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["status"] = string(shipment.StatusPending)

		pending, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)
	})

	t.Run("counts by status", func(t *testing.T) {
		n, err := repo.CountByStatus(ctx, tenantID, shipment.StatusSent)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("counts with filter", func(t *testing.T) {
		n, err := repo.CountForTenant(ctx, tenantID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 1

		page, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})
}

func TestGormShipmentRepository_GenerateShipmentNumber(t *testing.T) {
	db := setupShipmentTestDB(t)
	repo := NewGormShipmentRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := repo.GenerateShipmentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("CS-%d-00001", time.Now().Year()), first)

	sh, err := shipment.NewShipment(tenantID, first, uuid.New(), "Maria", "Rua A")
	require.NoError(t, err)
	_, err = sh.AddItem(uuid.New(), "Vestido", "V-1", 1, valueobject.NewMoneyBRLFromFloat(10))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sh))

	second, err := repo.GenerateShipmentNumber(ctx, tenantID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Contains(t, second, "00002")

	// Numbers are scoped per tenant
	other, err := repo.GenerateShipmentNumber(ctx, uuid.New())
	require.NoError(t, err)
	assert.Contains(t, other, "00001")

	exists, err := repo.ExistsByShipmentNumber(ctx, tenantID, first)
	require.NoError(t, err)
	assert.True(t, exists)
}
