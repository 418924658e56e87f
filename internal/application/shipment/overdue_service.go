package shipment

import (
	"context"
	"time"

	"github.com/malinha/backend/internal/domain/shared"
	"github.com/malinha/backend/internal/domain/shipment"
	"go.uber.org/zap"
)

// defaultScanBatchSize caps how many shipments one scan pass loads
const defaultScanBatchSize = 500

// OverdueService flags SENT shipments whose reconciliation deadline has
// passed. The flag is advisory: an overdue shipment still reconciles and
// cancels exactly like a sent one.
type OverdueService struct {
	repo           shipment.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	batchSize      int
}

// NewOverdueService creates a new OverdueService
func NewOverdueService(repo shipment.Repository, logger *zap.Logger) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueService{
		repo:      repo,
		logger:    logger,
		batchSize: defaultScanBatchSize,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OverdueService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetScanBatchSize overrides how many shipments one scan pass loads
func (s *OverdueService) SetScanBatchSize(size int) {
	if size > 0 {
		s.batchSize = size
	}
}

// OverdueScanStats contains statistics about one overdue scan pass
type OverdueScanStats struct {
	TotalExpired int       `json:"total_expired"`
	Marked       int       `json:"marked"`
	Failed       int       `json:"failed"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// MarkExpired finds SENT shipments past their deadline and flips them to
// OVERDUE. A failure on one shipment does not stop the scan.
func (s *OverdueService) MarkExpired(ctx context.Context) (*OverdueScanStats, error) {
	stats := &OverdueScanStats{
		ProcessedAt: time.Now(),
	}

	expired, err := s.repo.FindExpiredSent(ctx, stats.ProcessedAt, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to find expired shipments", zap.Error(err))
		return nil, err
	}

	stats.TotalExpired = len(expired)
	if stats.TotalExpired == 0 {
		s.logger.Debug("No expired shipments found")
		return stats, nil
	}

	s.logger.Info("Found shipments past their reconciliation deadline",
		zap.Int("count", stats.TotalExpired),
	)

	for i := range expired {
		if err := s.markOverdue(ctx, &expired[i], stats.ProcessedAt); err != nil {
			s.logger.Error("Failed to mark shipment overdue",
				zap.String("shipment_id", expired[i].ID.String()),
				zap.String("shipment_number", expired[i].ShipmentNumber),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		stats.Marked++
	}

	s.logger.Info("Completed overdue scan",
		zap.Int("total", stats.TotalExpired),
		zap.Int("marked", stats.Marked),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

// markOverdue flips a single shipment and publishes its event
func (s *OverdueService) markOverdue(ctx context.Context, sh *shipment.Shipment, now time.Time) error {
	if !sh.MarkOverdueIfExpired(now) {
		// Reconciled or cancelled between the scan query and now
		return nil
	}

	if err := s.repo.SaveWithLock(ctx, sh); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		for _, event := range sh.GetDomainEvents() {
			if err := s.eventPublisher.Publish(ctx, event); err != nil {
				s.logger.Warn("Failed to publish overdue event",
					zap.String("shipment_id", sh.ID.String()),
					zap.Error(err),
				)
			}
		}
		sh.ClearDomainEvents()
	}

	s.logger.Debug("Marked shipment overdue",
		zap.String("shipment_id", sh.ID.String()),
		zap.String("shipment_number", sh.ShipmentNumber),
		zap.Timep("deadline", sh.Deadline),
	)

	return nil
}
