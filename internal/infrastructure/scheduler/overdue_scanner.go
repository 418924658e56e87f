package scheduler

import (
	"context"
	"sync"
	"time"

	appshipment "github.com/malinha/backend/internal/application/shipment"
	"go.uber.org/zap"
)

// OverdueScanner periodically runs the overdue scan so that sent
// shipments past their deadline get flagged without waiting for a
// read to notice. The scan itself is advisory; marking a shipment
// overdue never blocks reconciliation.
type OverdueScanner struct {
	service   *appshipment.OverdueService
	logger    *zap.Logger
	config    OverdueScannerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// OverdueScannerConfig holds configuration for the overdue scanner
type OverdueScannerConfig struct {
	// Enabled determines if the scanner is active
	Enabled bool

	// ScanInterval is how often the scan runs
	ScanInterval time.Duration

	// ScanTimeout is the maximum time for a single scan run
	ScanTimeout time.Duration
}

// DefaultOverdueScannerConfig returns default configuration
func DefaultOverdueScannerConfig() OverdueScannerConfig {
	return OverdueScannerConfig{
		Enabled:      true,
		ScanInterval: 15 * time.Minute,
		ScanTimeout:  5 * time.Minute,
	}
}

// NewOverdueScanner creates a new overdue scanner
func NewOverdueScanner(
	service *appshipment.OverdueService,
	logger *zap.Logger,
	config OverdueScannerConfig,
) *OverdueScanner {
	if config.ScanInterval <= 0 {
		config.ScanInterval = 15 * time.Minute
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 5 * time.Minute
	}
	return &OverdueScanner{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the scan loop
func (s *OverdueScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Overdue scanner is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Overdue scanner started",
		zap.Duration("scan_interval", s.config.ScanInterval),
	)

	return nil
}

// Stop gracefully stops the scanner
func (s *OverdueScanner) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue scanner stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue scanner stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueScanner) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	// Run once at startup so a restart does not delay overdue marking
	s.executeScan(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Overdue scan loop stopping")
			return
		case <-ticker.C:
			s.executeScan(ctx)
		}
	}
}

func (s *OverdueScanner) executeScan(ctx context.Context) {
	scanCtx, cancel := context.WithTimeout(ctx, s.config.ScanTimeout)
	defer cancel()

	startTime := time.Now()
	stats, err := s.service.MarkExpired(scanCtx)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Overdue scan failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	if stats.TotalExpired == 0 {
		s.logger.Debug("Overdue scan found no expired shipments",
			zap.Duration("duration", duration),
		)
		return
	}

	s.logger.Info("Overdue scan completed",
		zap.Duration("duration", duration),
		zap.Int("total_expired", stats.TotalExpired),
		zap.Int("marked", stats.Marked),
		zap.Int("failed", stats.Failed),
	)
}

// TriggerImmediateScan triggers a scan run outside the regular interval
func (s *OverdueScanner) TriggerImmediateScan(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate overdue scan")

	go func() {
		defer s.wg.Done()
		s.executeScan(ctx)
	}()

	return nil
}

// IsRunning returns whether the scanner is running
func (s *OverdueScanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
