package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	shipmentapp "github.com/malinha/backend/internal/application/shipment"
	"github.com/malinha/backend/internal/infrastructure/cache"
	"github.com/malinha/backend/internal/infrastructure/config"
	"github.com/malinha/backend/internal/infrastructure/event"
	"github.com/malinha/backend/internal/infrastructure/logger"
	"github.com/malinha/backend/internal/infrastructure/persistence"
	"github.com/malinha/backend/internal/infrastructure/salesbridge"
	"github.com/malinha/backend/internal/infrastructure/scheduler"
	"github.com/malinha/backend/internal/interfaces/http/handler"
	"github.com/malinha/backend/internal/interfaces/http/middleware"
	"github.com/malinha/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Malinha Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	shipmentRepo := persistence.NewGormShipmentRepository(db.DB)

	// Outbound bridges to the sales and inventory services
	inventoryLedger, err := salesbridge.NewInventoryAdapter(cfg.Inventory)
	if err != nil {
		log.Fatal("Failed to initialize inventory bridge", zap.Error(err))
	}
	saleCreator, err := salesbridge.NewSalesAdapter(cfg.Sales)
	if err != nil {
		log.Fatal("Failed to initialize sales bridge", zap.Error(err))
	}

	// Idempotency store: Redis when reachable, in-memory otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// Initialize application services
	reconciliationService := shipmentapp.NewReconciliationService(shipmentRepo, inventoryLedger, saleCreator, log)
	overdueService := shipmentapp.NewOverdueService(shipmentRepo, log)
	overdueService.SetScanBatchSize(cfg.Scheduler.ScanBatchSize)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := shipmentapp.NewShipmentAuditHandler(log)
	eventBus.Subscribe(auditHandler)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	reconciliationService.SetEventPublisher(eventBus)
	overdueService.SetEventPublisher(eventBus)

	// Initialize overdue scanner (if enabled)
	overdueScanner := scheduler.NewOverdueScanner(overdueService, log, scheduler.OverdueScannerConfig{
		Enabled:      cfg.Scheduler.Enabled,
		ScanInterval: cfg.Scheduler.ScanInterval,
	})
	if err := overdueScanner.Start(context.Background()); err != nil {
		log.Fatal("Failed to start overdue scanner", zap.Error(err))
	}
	defer func() {
		if err := overdueScanner.Stop(context.Background()); err != nil {
			log.Error("Error stopping overdue scanner", zap.Error(err))
		}
	}()
	if cfg.Scheduler.Enabled {
		log.Info("Overdue scanner started",
			zap.Duration("scan_interval", cfg.Scheduler.ScanInterval),
		)
	}

	// Initialize HTTP handlers
	shipmentHandler := handler.NewShipmentHandler(reconciliationService, overdueService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Shipment domain routes
	idempotency := middleware.Idempotency(idempotencyStore, 0, log)
	shipmentRoutes := router.NewDomainGroup("shipment", "/shipments")
	shipmentRoutes.POST("", idempotency, shipmentHandler.Create)
	shipmentRoutes.GET("", shipmentHandler.List)
	shipmentRoutes.GET("/stats/summary", shipmentHandler.GetStatusSummary)
	shipmentRoutes.GET("/number/:number", shipmentHandler.GetByNumber)
	shipmentRoutes.GET("/:id", shipmentHandler.GetByID)
	shipmentRoutes.GET("/:id/summary", shipmentHandler.GetSummary)
	shipmentRoutes.POST("/:id/send", shipmentHandler.Send)
	shipmentRoutes.PUT("/:id/return", idempotency, shipmentHandler.ProcessReturn)
	shipmentRoutes.DELETE("/:id", shipmentHandler.Cancel)
	shipmentRoutes.PATCH("/:id/status", shipmentHandler.ChangeStatus)

	// Maintenance routes (manual overdue scan trigger)
	maintenanceRoutes := router.NewDomainGroup("maintenance", "/maintenance")
	maintenanceRoutes.POST("/overdue-scan", shipmentHandler.RunOverdueScan)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(shipmentRoutes).
		Register(maintenanceRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
