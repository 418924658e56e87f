package shipment

import (
	"github.com/shopspring/decimal"
)

// FinancialSummary is the money/unit breakdown of a shipment, recomputed
// from the item lines on demand. It is never stored.
type FinancialSummary struct {
	TotalSent     decimal.Decimal `json:"total_sent"`
	TotalKept     decimal.Decimal `json:"total_kept"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	SentCount     int             `json:"sent_count"`
	KeptCount     int             `json:"kept_count"`
	ReturnedCount int             `json:"returned_count"`
	DamagedCount  int             `json:"damaged_count"`
	LostCount     int             `json:"lost_count"`
}

// PendingCount returns the number of units still awaiting a disposition
func (f FinancialSummary) PendingCount() int {
	return f.SentCount - f.KeptCount - f.ReturnedCount - f.DamagedCount - f.LostCount
}

// Summarize recomputes the financial summary across all item lines
func (s *Shipment) Summarize() FinancialSummary {
	summary := FinancialSummary{
		TotalSent:     decimal.Zero,
		TotalKept:     decimal.Zero,
		TotalReturned: decimal.Zero,
	}
	for idx := range s.Items {
		item := &s.Items[idx]
		summary.TotalSent = summary.TotalSent.Add(item.LineTotalSent())
		summary.TotalKept = summary.TotalKept.Add(item.LineTotalKept())
		summary.TotalReturned = summary.TotalReturned.Add(item.LineTotalReturned())
		summary.SentCount += item.QuantitySent
		summary.KeptCount += item.QuantityKept
		summary.ReturnedCount += item.QuantityReturned
		summary.DamagedCount += item.QuantityDamaged
		summary.LostCount += item.QuantityLost
	}
	return summary
}
