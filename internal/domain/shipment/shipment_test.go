package shipment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to assemble a shipment with a single 10-unit item at 20.00
func createTestShipment(t *testing.T) *Shipment {
	t.Helper()
	s, err := NewShipment(uuid.New(), "CS-2026-00001", uuid.New(), "Maria Souza", "Rua das Flores 123, Fortaleza")
	require.NoError(t, err)

	_, err = s.AddItem(uuid.New(), "Vestido Floral", "VF-01", 10, valueobject.NewMoneyBRLFromFloat(20.00))
	require.NoError(t, err)

	return s
}

func createSentShipment(t *testing.T) *Shipment {
	t.Helper()
	s := createTestShipment(t)
	require.NoError(t, s.MarkAsSent("Correios", "BR123456789", 0))
	return s
}

func TestNewShipment(t *testing.T) {
	t.Run("creates shipment in pending status", func(t *testing.T) {
		s, err := NewShipment(uuid.New(), "CS-2026-00001", uuid.New(), "Maria Souza", "Rua das Flores 123")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, s.Status)
		assert.Nil(t, s.SentAt)
		assert.Nil(t, s.Deadline)
		assert.Nil(t, s.CompletedAt)
		assert.False(t, s.SaleCreated)
		assert.Len(t, s.GetDomainEvents(), 1)
	})

	t.Run("fails with empty shipment number", func(t *testing.T) {
		_, err := NewShipment(uuid.New(), "", uuid.New(), "Maria", "Rua A")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Shipment number cannot be empty")
	})

	t.Run("fails with empty shipping address", func(t *testing.T) {
		_, err := NewShipment(uuid.New(), "CS-001", uuid.New(), "Maria", "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Shipping address cannot be empty")
	})

	t.Run("fails with nil customer", func(t *testing.T) {
		_, err := NewShipment(uuid.New(), "CS-001", uuid.Nil, "Maria", "Rua A")
		assert.Error(t, err)
	})
}

func TestShipment_AddItem(t *testing.T) {
	t.Run("adds item while pending", func(t *testing.T) {
		s := createTestShipment(t)
		item, err := s.AddItem(uuid.New(), "Calça Jeans", "CJ-02", 4, valueobject.NewMoneyBRLFromFloat(80.00))
		require.NoError(t, err)
		assert.Equal(t, 4, item.QuantitySent)
		assert.Equal(t, 4, item.QuantityPending())
		assert.Equal(t, 2, s.ItemCount())
	})

	t.Run("rejects duplicate product", func(t *testing.T) {
		s := createTestShipment(t)
		productID := s.Items[0].ProductID
		_, err := s.AddItem(productID, "Vestido Floral", "VF-01", 2, valueobject.NewMoneyBRLFromFloat(20.00))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already present")
	})

	t.Run("rejects zero sent quantity", func(t *testing.T) {
		s := createTestShipment(t)
		_, err := s.AddItem(uuid.New(), "Blusa", "BL-03", 0, valueobject.NewMoneyBRLFromFloat(30.00))
		assert.Error(t, err)
	})

	t.Run("rejects items after send", func(t *testing.T) {
		s := createSentShipment(t)
		_, err := s.AddItem(uuid.New(), "Blusa", "BL-03", 1, valueobject.NewMoneyBRLFromFloat(30.00))
		assert.Error(t, err)
	})
}

func TestShipment_MarkAsSent(t *testing.T) {
	t.Run("sets sent_at and default deadline of 7 days", func(t *testing.T) {
		s := createTestShipment(t)
		require.NoError(t, s.MarkAsSent("Correios", "BR1", 0))

		assert.Equal(t, StatusSent, s.Status)
		require.NotNil(t, s.SentAt)
		require.NotNil(t, s.Deadline)
		assert.Equal(t, s.SentAt.AddDate(0, 0, DefaultDeadlineDays), *s.Deadline)
		assert.Equal(t, "Correios", s.Carrier)
		assert.Equal(t, "BR1", s.TrackingCode)
	})

	t.Run("honors explicit deadline days", func(t *testing.T) {
		s := createTestShipment(t)
		require.NoError(t, s.MarkAsSent("", "", 14))
		assert.Equal(t, s.SentAt.AddDate(0, 0, 14), *s.Deadline)
	})

	t.Run("rejects sending without items", func(t *testing.T) {
		s, err := NewShipment(uuid.New(), "CS-001", uuid.New(), "Maria", "Rua A")
		require.NoError(t, err)
		assert.Error(t, s.MarkAsSent("", "", 0))
	})

	t.Run("rejects double send", func(t *testing.T) {
		s := createSentShipment(t)
		err := s.MarkAsSent("", "", 0)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
		assert.Contains(t, domainErr.Message, string(StatusSent))
	})
}

func TestShipment_MarkOverdueIfExpired(t *testing.T) {
	t.Run("flips sent shipment past deadline", func(t *testing.T) {
		s := createSentShipment(t)
		changed := s.MarkOverdueIfExpired(s.Deadline.Add(time.Hour))
		assert.True(t, changed)
		assert.Equal(t, StatusOverdue, s.Status)
	})

	t.Run("no-op before deadline", func(t *testing.T) {
		s := createSentShipment(t)
		changed := s.MarkOverdueIfExpired(s.Deadline.Add(-time.Hour))
		assert.False(t, changed)
		assert.Equal(t, StatusSent, s.Status)
	})

	t.Run("no-op on pending shipment", func(t *testing.T) {
		s := createTestShipment(t)
		assert.False(t, s.MarkOverdueIfExpired(time.Now().AddDate(0, 0, 30)))
		assert.Equal(t, StatusPending, s.Status)
	})

	t.Run("overdue shipment stays reconcilable", func(t *testing.T) {
		s := createSentShipment(t)
		s.MarkOverdueIfExpired(s.Deadline.Add(time.Hour))
		assert.True(t, s.Status.IsReconcilable())

		err := s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 10},
		})
		require.NoError(t, err)
		require.NoError(t, s.Complete())
		assert.Equal(t, StatusCompleted, s.Status)
	})
}

func TestShipment_ApplyQuantities(t *testing.T) {
	t.Run("records a full replacement set", func(t *testing.T) {
		s := createSentShipment(t)
		err := s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 7, QuantityReturned: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, 7, s.Items[0].QuantityKept)
		assert.Equal(t, 3, s.Items[0].QuantityReturned)
		assert.Equal(t, 0, s.Items[0].QuantityPending())
		assert.True(t, s.AllItemsProcessed())
	})

	t.Run("resubmission with identical values is a no-op", func(t *testing.T) {
		s := createSentShipment(t)
		inputs := []QuantityInput{{ItemID: s.Items[0].ID, QuantityKept: 5, QuantityReturned: 2}}
		require.NoError(t, s.ApplyQuantities(inputs))
		require.NoError(t, s.ApplyQuantities(inputs))
		assert.Equal(t, 5, s.Items[0].QuantityKept)
		assert.Equal(t, 2, s.Items[0].QuantityReturned)
		assert.Equal(t, 3, s.Items[0].QuantityPending())
	})

	t.Run("rejects over-allocation naming the item", func(t *testing.T) {
		s := createSentShipment(t)
		err := s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 7, QuantityReturned: 3, QuantityDamaged: 1},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "QUANTITY_EXCEEDS_SENT", domainErr.Code)
		assert.Contains(t, domainErr.Message, s.Items[0].ID.String())
	})

	t.Run("rejects unknown item", func(t *testing.T) {
		s := createSentShipment(t)
		err := s.ApplyQuantities([]QuantityInput{{ItemID: uuid.New(), QuantityKept: 1}})
		assert.Error(t, err)
	})

	t.Run("rejects negative quantities", func(t *testing.T) {
		s := createSentShipment(t)
		err := s.ApplyQuantities([]QuantityInput{{ItemID: s.Items[0].ID, QuantityKept: -1}})
		assert.Error(t, err)
	})

	t.Run("leaves all items untouched when any input is invalid", func(t *testing.T) {
		s := createTestShipment(t)
		_, err := s.AddItem(uuid.New(), "Calça Jeans", "CJ-02", 4, valueobject.NewMoneyBRLFromFloat(80.00))
		require.NoError(t, err)
		require.NoError(t, s.MarkAsSent("", "", 0))

		err = s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 5},
			{ItemID: s.Items[1].ID, QuantityKept: 99},
		})
		require.Error(t, err)
		assert.Equal(t, 0, s.Items[0].QuantityKept)
		assert.Equal(t, 0, s.Items[1].QuantityKept)
	})

	t.Run("rejects quantities on pending shipment", func(t *testing.T) {
		s := createTestShipment(t)
		err := s.ApplyQuantities([]QuantityInput{{ItemID: s.Items[0].ID, QuantityKept: 1}})
		assert.Error(t, err)
	})
}

func TestShipment_Complete(t *testing.T) {
	t.Run("completes when everything is processed", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 7, QuantityReturned: 2, QuantityDamaged: 1},
		}))

		require.NoError(t, s.Complete())
		assert.Equal(t, StatusCompleted, s.Status)
		assert.NotNil(t, s.CompletedAt)
	})

	t.Run("rejects completion with pending units", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 7, QuantityReturned: 2},
		}))

		err := s.Complete()
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INCOMPLETE_RECONCILIATION", domainErr.Code)
		assert.Contains(t, domainErr.Message, "1 pending")
		assert.NotEqual(t, StatusCompleted, s.Status)
		assert.Nil(t, s.CompletedAt)
	})

	t.Run("terminal shipment rejects further transitions", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.ApplyQuantities([]QuantityInput{{ItemID: s.Items[0].ID, QuantityKept: 10}}))
		require.NoError(t, s.Complete())

		assert.Error(t, s.Complete())
		assert.Error(t, s.Cancel("late"))
	})
}

func TestShipment_MarkSaleCreated(t *testing.T) {
	s := createSentShipment(t)
	saleID := uuid.New()
	require.NoError(t, s.MarkSaleCreated(saleID))
	assert.True(t, s.SaleCreated)
	require.NotNil(t, s.SaleID)
	assert.Equal(t, saleID, *s.SaleID)

	assert.Error(t, s.MarkSaleCreated(uuid.New()))
	assert.Equal(t, saleID, *s.SaleID)
}

func TestShipment_Cancel(t *testing.T) {
	t.Run("cancels from pending", func(t *testing.T) {
		s := createTestShipment(t)
		require.NoError(t, s.Cancel("customer declined"))
		assert.Equal(t, StatusCancelled, s.Status)
		assert.Equal(t, "customer declined", s.CancelReason)
		assert.NotNil(t, s.CompletedAt)
	})

	t.Run("cancels from sent", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.Cancel("lost in transit"))
		assert.Equal(t, StatusCancelled, s.Status)
	})

	t.Run("cancels from partial return", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.ApplyQuantities([]QuantityInput{{ItemID: s.Items[0].ID, QuantityKept: 2}}))
		require.NoError(t, s.BeginPartialReturn())
		require.NoError(t, s.Cancel("changed her mind"))
		assert.Equal(t, StatusCancelled, s.Status)
	})

	t.Run("requires a reason", func(t *testing.T) {
		s := createTestShipment(t)
		err := s.Cancel("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reason")
		assert.Equal(t, StatusPending, s.Status)
	})

	t.Run("rejects cancelling a completed shipment", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.ApplyQuantities([]QuantityInput{{ItemID: s.Items[0].ID, QuantityReturned: 10}}))
		require.NoError(t, s.Complete())
		assert.Error(t, s.Cancel("too late"))
	})
}

func TestShipment_OverrideStatus(t *testing.T) {
	t.Run("bypasses guarded transitions", func(t *testing.T) {
		s := createSentShipment(t)
		previous, err := s.OverrideStatus(StatusPending)
		require.NoError(t, err)
		assert.Equal(t, StatusSent, previous)
		assert.Equal(t, StatusPending, s.Status)
	})

	t.Run("refuses terminal shipments", func(t *testing.T) {
		s := createTestShipment(t)
		require.NoError(t, s.Cancel("done"))
		_, err := s.OverrideStatus(StatusSent)
		assert.Error(t, err)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		s := createTestShipment(t)
		_, err := s.OverrideStatus(Status("BANANA"))
		assert.Error(t, err)
	})

	t.Run("does not touch the sale guard", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.MarkSaleCreated(uuid.New()))
		_, err := s.OverrideStatus(StatusPending)
		require.NoError(t, err)
		assert.True(t, s.SaleCreated)
	})
}

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusSent, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusSent, StatusOverdue, true},
		{StatusSent, StatusPartialReturn, true},
		{StatusSent, StatusCompleted, true},
		{StatusSent, StatusCancelled, true},
		{StatusSent, StatusPending, false},
		{StatusOverdue, StatusPartialReturn, true},
		{StatusOverdue, StatusCompleted, true},
		{StatusOverdue, StatusCancelled, true},
		{StatusPartialReturn, StatusCompleted, true},
		{StatusPartialReturn, StatusCancelled, true},
		{StatusPartialReturn, StatusSent, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestItem_Invariant(t *testing.T) {
	item, err := NewItem(uuid.New(), uuid.New(), "Vestido", "V-1", 10, valueobject.NewMoneyBRLFromFloat(20))
	require.NoError(t, err)

	require.NoError(t, item.SetQuantities(4, 3, 2, 1))
	assert.True(t, item.IsFullyProcessed())

	assert.Error(t, item.SetQuantities(4, 3, 2, 2))
	// Rejected write leaves the previous values in place
	assert.Equal(t, 4, item.QuantityKept)
	assert.Equal(t, 1, item.QuantityLost)
}

func TestShipment_Summarize(t *testing.T) {
	t.Run("single item scenario", func(t *testing.T) {
		s := createSentShipment(t)
		require.NoError(t, s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 7, QuantityReturned: 3},
		}))

		summary := s.Summarize()
		assert.True(t, summary.TotalSent.Equal(decimal.NewFromInt(200)), "total sent %s", summary.TotalSent)
		assert.True(t, summary.TotalKept.Equal(decimal.NewFromInt(140)), "total kept %s", summary.TotalKept)
		assert.True(t, summary.TotalReturned.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, 10, summary.SentCount)
		assert.Equal(t, 7, summary.KeptCount)
		assert.Equal(t, 3, summary.ReturnedCount)
		assert.Equal(t, 0, summary.DamagedCount)
		assert.Equal(t, 0, summary.LostCount)
		assert.Equal(t, 0, summary.PendingCount())
	})

	t.Run("multi item with write-offs", func(t *testing.T) {
		s := createTestShipment(t)
		_, err := s.AddItem(uuid.New(), "Calça Jeans", "CJ-02", 4, valueobject.NewMoneyBRLFromFloat(80.00))
		require.NoError(t, err)
		require.NoError(t, s.MarkAsSent("", "", 0))

		require.NoError(t, s.ApplyQuantities([]QuantityInput{
			{ItemID: s.Items[0].ID, QuantityKept: 6, QuantityDamaged: 2},
			{ItemID: s.Items[1].ID, QuantityReturned: 1, QuantityLost: 1},
		}))

		summary := s.Summarize()
		assert.True(t, summary.TotalSent.Equal(decimal.NewFromInt(520))) // 10*20 + 4*80
		assert.True(t, summary.TotalKept.Equal(decimal.NewFromInt(120)))
		assert.True(t, summary.TotalReturned.Equal(decimal.NewFromInt(80)))
		assert.Equal(t, 14, summary.SentCount)
		assert.Equal(t, 2, summary.DamagedCount)
		assert.Equal(t, 1, summary.LostCount)
		assert.Equal(t, 4, summary.PendingCount())
	})
}

func TestShipment_KeptLines(t *testing.T) {
	s := createTestShipment(t)
	_, err := s.AddItem(uuid.New(), "Calça Jeans", "CJ-02", 4, valueobject.NewMoneyBRLFromFloat(80.00))
	require.NoError(t, err)
	require.NoError(t, s.MarkAsSent("", "", 0))

	require.NoError(t, s.ApplyQuantities([]QuantityInput{
		{ItemID: s.Items[0].ID, QuantityKept: 7, QuantityReturned: 3},
		{ItemID: s.Items[1].ID, QuantityReturned: 4},
	}))

	lines := s.KeptLines()
	require.Len(t, lines, 1)
	assert.Equal(t, s.Items[0].ProductID, lines[0].ProductID)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(20)))
}
