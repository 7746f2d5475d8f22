package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	activityapp "github.com/fleetrent/backend/internal/application/activity"
	billingapp "github.com/fleetrent/backend/internal/application/billing"
	expenseapp "github.com/fleetrent/backend/internal/application/expense"
	fleetapp "github.com/fleetrent/backend/internal/application/fleet"
	identityapp "github.com/fleetrent/backend/internal/application/identity"
	"github.com/fleetrent/backend/internal/domain/activity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/domain/shared/valueobject"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/infrastructure/cache"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"github.com/fleetrent/backend/internal/infrastructure/logger"
	"github.com/fleetrent/backend/internal/infrastructure/payment"
	"github.com/fleetrent/backend/internal/infrastructure/persistence"
	"github.com/fleetrent/backend/internal/infrastructure/scheduler"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
	"github.com/fleetrent/backend/internal/interfaces/http/handler"
	"github.com/fleetrent/backend/internal/interfaces/http/middleware"
	"github.com/fleetrent/backend/internal/interfaces/http/router"
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

	// When telemetry is on, logs are also shipped to the collector through
	// the OTEL bridge
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled {
		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		}, logsProvider, cfg.Telemetry.ServiceName)
		if err != nil {
			log.Fatal("Failed to initialize bridged logger", zap.Error(err))
		}
		log = bridged
	}

	log.Info("Starting Fleet Rental Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize telemetry providers
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiling.Enabled,
		ServerAddress:       cfg.Profiling.ServerAddress,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Link CPU profiles to individual spans. The profiler must be running
	// before the wrap, hence the ordering.
	if cfg.Profiling.Enabled {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Attach database observability plugins
	if cfg.Telemetry.Enabled {
		meter := meterProvider.Meter("fleetrent/db")
		dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize database metrics", zap.Error(err))
		} else {
			if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
				log.Warn("Failed to attach database metrics plugin", zap.Error(err))
			}
			if sqlDB, err := db.DB.DB(); err == nil {
				dbMetrics.SetSQLDB(sqlDB)
				dbMetrics.StartPoolStatsCollection(context.Background())
				defer dbMetrics.Stop()
			}
		}
		if cfg.Telemetry.DBTraceEnabled {
			tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:         true,
				SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			}, log)
			if err := db.DB.Use(tracingPlugin); err != nil {
				log.Warn("Failed to attach database tracing plugin", zap.Error(err))
			}
		}
	}

	// Redis backs the token blacklist and webhook idempotency; fall back to
	// in-process stores when it is unreachable so a cache outage does not
	// take the API down.
	var tokenBlacklist auth.TokenBlacklist
	var idempotencyStore shared.IdempotencyStore
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory stores", zap.Error(err))
		tokenBlacklist = auth.NewMemoryTokenBlacklist()
		memStore := cache.NewInMemoryIdempotencyStore()
		defer func() { _ = memStore.Close() }()
		idempotencyStore = memStore
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		tokenBlacklist = auth.NewRedisTokenBlacklist(redisClient)
		idempotencyStore = cache.NewRedisIdempotencyStore(redisClient, "fleetrent")
		log.Info("Redis connected successfully")
	}

	// Initialize repositories
	debtRepo := persistence.NewGormDebtRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	requestRepo := persistence.NewGormSettlementRequestRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	vehicleRepo := persistence.NewGormVehicleRepository(db.DB)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)
	activityRepo := persistence.NewGormActivityRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Activity recording fans out to the persisted audit trail and, when
	// telemetry is on, to the billing metrics counters.
	activityService := activityapp.NewService(activityRepo, log)
	var recorder activity.Recorder = activityService
	if cfg.Telemetry.Enabled {
		billingMetrics, err := telemetry.NewBillingMetrics(meterProvider.Meter("fleetrent/billing"), log)
		if err != nil {
			log.Warn("Failed to initialize billing metrics", zap.Error(err))
		} else {
			recorder = activity.NewFanoutRecorder(activityService, billingMetrics)
		}
	}

	// Payment gateway adapter
	gateway := payment.NewWompiAdapter(cfg.Gateway, log)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, tokenBlacklist, recorder, log)
	userService := identityapp.NewUserService(userRepo, vehicleRepo, log)
	vehicleService := fleetapp.NewVehicleService(vehicleRepo, log)
	expenseService := expenseapp.NewService(expenseRepo, recorder, log)

	defaultRate := valueobject.NewMoneyCOPFromInt(cfg.Billing.DefaultDailyRate)
	debtService := billingapp.NewDebtService(debtRepo, paymentRepo, requestRepo, gateway, recorder, uow, cfg.Gateway.RedirectURL, log)
	paymentService := billingapp.NewPaymentService(paymentRepo, recorder, log)
	requestService := billingapp.NewSettlementRequestService(requestRepo, paymentRepo, recorder, uow, log)
	generationService := billingapp.NewDebtGenerationService(debtRepo, paymentRepo, userRepo, vehicleRepo, recorder, defaultRate, log)
	callbackService := billingapp.NewGatewayCallbackService(debtRepo, paymentRepo, gateway, idempotencyStore, recorder, uow, log)

	// In-process daily generation trigger (external cron can also hit the
	// internal endpoint; both paths are idempotent)
	if cfg.Scheduler.Enabled {
		triggerConfig, err := scheduler.NewGenerationTriggerConfig(cfg.Scheduler)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		trigger := scheduler.NewGenerationTrigger(triggerConfig, generationService, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start generation trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping generation trigger", zap.Error(err))
			}
		}()
		log.Info("Daily generation trigger started",
			zap.Int("hour", cfg.Scheduler.GenerationHour),
			zap.String("timezone", cfg.Scheduler.Timezone),
		)
	}

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	debtHandler := handler.NewDebtHandler(debtService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	requestHandler := handler.NewSettlementRequestHandler(requestService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	activityHandler := handler.NewActivityHandler(activityService)
	gatewayHandler := handler.NewGatewayHandler(callbackService)
	generationHandler := handler.NewGenerationHandler(generationService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so everything downstream can tag
	// logs, spans and metrics with it.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(1 << 20))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
		engine.Use(middleware.Profiling())
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Gateway webhook: called by the payment provider, authenticated by the
	// event checksum rather than JWT
	engine.POST("/api/v1/gateway/callback", gatewayHandler.Callback)

	// Internal endpoints for external cron callers, guarded by a shared
	// secret header
	internalGroup := engine.Group("/api/v1/internal")
	internalGroup.Use(middleware.CronSecret(cfg.Scheduler.CronSecret))
	internalGroup.POST("/generate-debts", generationHandler.Trigger)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = tokenBlacklist
	jwtConfig.Logger = log
	jwtConfig.SkipPaths = append(jwtConfig.SkipPaths,
		"/api/v1/system/ping",
		"/api/v1/system/info",
	)
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Auth routes (login and refresh are JWT skip paths); credential
	// endpoints are rate limited to slow brute forcing
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	authRoutes := router.NewDomainGroup("auth", "/auth")
	authRoutes.Use(middleware.RateLimit(loginLimiter))
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/logout", authHandler.Logout)

	// Driver-facing routes: a driver only ever sees their own debts,
	// payments and requests
	meRoutes := router.NewDomainGroup("me", "/me")
	meRoutes.Use(middleware.RequireDriver())
	meRoutes.GET("/vehicle", userHandler.MyVehicle)
	meRoutes.GET("/debts", debtHandler.ListMine)
	meRoutes.GET("/debts/rejected", debtHandler.ListMineRejected)
	meRoutes.POST("/debts/:id/receipt", debtHandler.SubmitReceipt)
	meRoutes.POST("/debts/:id/pay-online", debtHandler.PayOnline)
	meRoutes.GET("/payments", paymentHandler.ListMine)
	meRoutes.GET("/settlement-requests", requestHandler.ListMine)
	meRoutes.POST("/settlement-requests", requestHandler.Submit)

	// Admin billing routes
	debtRoutes := router.NewDomainGroup("billing", "/debts")
	debtRoutes.Use(middleware.RequireAdmin())
	debtRoutes.GET("", debtHandler.List)
	debtRoutes.GET("/pending", debtHandler.ListPending)
	debtRoutes.GET("/rejected", debtHandler.ListRejected)
	debtRoutes.GET("/:id", debtHandler.Get)
	debtRoutes.PUT("/:id/amount", debtHandler.UpdateAmount)
	debtRoutes.POST("/:id/approve", debtHandler.Approve)
	debtRoutes.POST("/:id/reject", debtHandler.Reject)
	debtRoutes.DELETE("/:id", debtHandler.Delete)

	paymentRoutes := router.NewDomainGroup("payments", "/payments")
	paymentRoutes.Use(middleware.RequireAdmin())
	paymentRoutes.POST("", paymentHandler.Record)
	paymentRoutes.GET("", paymentHandler.List)
	paymentRoutes.GET("/:id", paymentHandler.Get)

	requestRoutes := router.NewDomainGroup("settlement-requests", "/settlement-requests")
	requestRoutes.Use(middleware.RequireAdmin())
	requestRoutes.GET("/pending", requestHandler.ListPending)
	requestRoutes.GET("/:id", requestHandler.Get)
	requestRoutes.POST("/:id/approve", requestHandler.Approve)
	requestRoutes.POST("/:id/reject", requestHandler.Reject)

	// Fleet routes
	vehicleRoutes := router.NewDomainGroup("fleet", "/vehicles")
	vehicleRoutes.Use(middleware.RequireAdmin())
	vehicleRoutes.POST("", vehicleHandler.Create)
	vehicleRoutes.GET("", vehicleHandler.List)
	vehicleRoutes.GET("/:id", vehicleHandler.Get)
	vehicleRoutes.PUT("/:id", vehicleHandler.Update)
	vehicleRoutes.DELETE("/:id", vehicleHandler.Retire)

	// Identity routes
	userRoutes := router.NewDomainGroup("identity", "/users")
	userRoutes.Use(middleware.RequireAdmin())
	userRoutes.POST("", userHandler.Create)
	userRoutes.GET("", userHandler.List)
	userRoutes.GET("/:id", userHandler.Get)
	userRoutes.PUT("/:id", userHandler.Update)
	userRoutes.POST("/:id/vehicle", userHandler.AssignVehicle)
	userRoutes.DELETE("/:id/vehicle", userHandler.UnassignVehicle)
	userRoutes.DELETE("/:id", userHandler.Deactivate)

	// Expense routes
	expenseRoutes := router.NewDomainGroup("expenses", "/expenses")
	expenseRoutes.Use(middleware.RequireAdmin())
	expenseRoutes.POST("", expenseHandler.Create)
	expenseRoutes.GET("", expenseHandler.List)
	expenseRoutes.GET("/:id", expenseHandler.Get)
	expenseRoutes.DELETE("/:id", expenseHandler.Delete)

	// Activity log routes
	activityRoutes := router.NewDomainGroup("activity", "/activity")
	activityRoutes.Use(middleware.RequireAdmin())
	activityRoutes.GET("", activityHandler.List)
	activityRoutes.GET("/actors/:id", activityHandler.ListByActor)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(authRoutes).
		Register(meRoutes).
		Register(debtRoutes).
		Register(paymentRoutes).
		Register(requestRoutes).
		Register(vehicleRoutes).
		Register(userRoutes).
		Register(expenseRoutes).
		Register(activityRoutes).
		Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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
func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
