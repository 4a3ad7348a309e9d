package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"brasserie/internal/handler"
	"brasserie/internal/repositories"
	"brasserie/internal/router"
	"brasserie/internal/service"
	"brasserie/pkg/database"
	"brasserie/pkg/envconfig"
	"brasserie/pkg/flags"
	"brasserie/pkg/logger"
	"brasserie/pkg/namedlock"
	"brasserie/pkg/shutdownsetup"
)

func main() {
	flagConfig := flags.Parse()

	if err := flagConfig.Validate(); err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		return
	}

	envErr := envconfig.LoadEnvFile(".env")

	loggerConfig := logger.Config{
		Level:        envconfig.GetLogLevel(),
		Format:       envconfig.GetEnv("LOG_FORMAT", "json"),
		Output:       envconfig.GetEnv("LOG_OUTPUT", "stdout"),
		EnableCaller: envconfig.GetEnv("LOG_ENABLE_CALLER", "true") == "true",
		Environment:  envconfig.GetEnv("ENVIRONMENT", "development"),
	}

	appLogger := logger.New(loggerConfig)

	if envErr != nil {
		appLogger.Warn("Failed to load .env file", "error", envErr)
	} else {
		appLogger.Debug(".env file loaded successfully")
	}

	appLogger.Info("Starting Brasserie fulfillment service",
		"environment", loggerConfig.Environment,
		"log_level", loggerConfig.Level)

	dbConfig := envconfig.LoadDatabaseConfig()

	db, err := database.NewConnection(dbConfig, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to establish database connection", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := db.HealthCheck(); err != nil {
		appLogger.Error("Database health check failed", "error", err)
	} else {
		appLogger.Info("Database health check passed")
	}

	stockRepo := repositories.NewStockRepository(appLogger, db)
	menuRepo := repositories.NewMenuRepository(appLogger, db)
	orderRepo := repositories.NewOrderRepository(appLogger, db)
	customerRepo := repositories.NewCustomerRepository(appLogger, db)
	movementRepo := repositories.NewMovementRepository(appLogger, db)
	couponRepo := repositories.NewCouponRepository(appLogger, db)

	locks := namedlock.New()

	availabilityService, err := service.NewAvailabilityService(appLogger, menuRepo, stockRepo)
	if err != nil {
		appLogger.Fatal("Failed to initialize availability resolver", "error", err)
	}
	stockService := service.NewStockService(appLogger, db, stockRepo, availabilityService, locks)
	menuService := service.NewMenuService(appLogger, menuRepo, availabilityService)
	loyaltyService := service.NewLoyaltyService(appLogger, couponRepo, orderRepo, locks)
	orderService := service.NewOrderService(appLogger, db, orderRepo, menuRepo, stockRepo,
		customerRepo, movementRepo, loyaltyService, availabilityService, locks)

	// Bring the stored availability flags in line with the ledger before
	// serving traffic.
	if err := availabilityService.RecomputeAll(); err != nil {
		appLogger.Error("Initial availability recompute failed", "error", err)
	}

	stockHandler := handler.NewStockHandler(stockService, appLogger)
	menuHandler := handler.NewMenuHandler(menuService, availabilityService, appLogger)
	orderHandler := handler.NewOrderHandler(orderService, appLogger)
	loyaltyHandler := handler.NewLoyaltyHandler(loyaltyService, appLogger)

	healthCheck := func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}

	mux := router.New(appLogger, stockHandler, menuHandler, orderHandler, loyaltyHandler, healthCheck)

	initialPort := flagConfig.Port
	if initialPort == "" {
		initialPort = envconfig.GetEnv("PORT", "8080")
	}
	host := envconfig.GetEnv("HOST", "localhost")

	port := initialPort

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		server.Addr = host + ":" + port

		go func() {
			appLogger.Info("Starting HTTP server",
				"host", host,
				"port", port,
				"address", server.Addr)

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Error("Server error", "error", err)
				serverErrors <- err
			}
		}()

		select {
		case err := <-serverErrors:
			if strings.Contains(err.Error(), "address already in use") && i < maxRetries-1 {
				portNum := 8080 + i + 1
				port = fmt.Sprintf("%d", portNum)
				appLogger.Warn("Port already in use, trying alternative port",
					"current_port", server.Addr,
					"next_port", port)
				continue
			} else {
				appLogger.Error("Failed to start server after retries", "error", err)
				return
			}
		case <-time.After(200 * time.Millisecond):
			appLogger.Info("Server started successfully", "port", port)
		}

		break
	}

	select {
	case err := <-serverErrors:
		appLogger.Error("Could not start server", "error", err)
		return
	default:
		shutdownsetup.SetupGracefulShutdown(server, appLogger)
	}
}
