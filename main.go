// Package main provides the main entry point for the OfferGrid demo data and dashboard platform
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/offergrid/offergrid/app/handlers"
	"github.com/offergrid/offergrid/app/middleware"
	"github.com/offergrid/offergrid/app/router"
	"github.com/offergrid/offergrid/app/scheduler"
	"github.com/offergrid/offergrid/app/services"
	businessflow "github.com/offergrid/offergrid/business_flow"
	"github.com/offergrid/offergrid/config"
	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
	"github.com/offergrid/offergrid/utils"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting OfferGrid application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Init city catalog and default admin using config
	if err := ensureDefaultEntities(db, cfg); err != nil {
		return nil, err
	}

	// Initialize repositories
	cityRepo := repository.NewCityRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	seedRunRepo := repository.NewSeedRunRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Batched raw-SQL writer used by the seed pipeline
	exec := repository.NewSQLExecutor(db)

	// Captcha service for admin login
	captchaSvc, err := services.NewCaptchaServiceRotate(2*time.Minute, 15, 300)
	if err != nil {
		return nil, err
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Log that services are initialized
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	seedFlow := businessflow.NewSeedFlow(
		cityRepo,
		offerRepo,
		notificationRepo,
		seedRunRepo,
		exec,
		rc,
		&cfg.Cache,
		cfg.Seeder,
	)

	dashboardFlow := businessflow.NewDashboardFlow(
		cityRepo,
		segmentRepo,
		offerRepo,
		notificationRepo,
		rc,
		&cfg.Cache,
	)

	adminAuthFlow := businessflow.NewAdminAuthFlow(
		adminRepo,
		tokenService,
		captchaSvc,
	)

	// Initialize handlers
	adminHandler := handlers.NewAdminHandler(adminAuthFlow)
	dashboardHandler := handlers.NewDashboardHandler(dashboardFlow)
	seedHandler := handlers.NewSeedAdminHandler(seedFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		adminHandler,
		dashboardHandler,
		seedHandler,
		authMiddleware,
	)

	if cfg.Seeder.Enabled {
		// Start the periodic reseed of the configured default city
		sched := scheduler.NewSeedScheduler(seedFlow, cfg.Seeder, cfg.Logging)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureDefaultEntities seeds the city catalog and the default dashboard
// admin. Both ensures run in a single transaction.
func ensureDefaultEntities(db *gorm.DB, cfg *config.ProductionConfig) error {
	cityRepo := repository.NewCityRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	return repository.WithTransaction(context.Background(), db, func(ctx context.Context) error {
		// Ensure the built-in city catalog
		for i := range models.DefaultCities {
			city := models.DefaultCities[i]
			existing, err := cityRepo.ByName(ctx, city.CityName)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := cityRepo.Save(ctx, &city); err != nil {
				return err
			}
			log.Printf("Seeded city catalog entry: %s", city.CityName)
		}

		// Ensure the default admin account
		if cfg.Admin.Password == "" {
			log.Println("No default admin password configured, skipping admin bootstrap")
			return nil
		}
		existing, err := adminRepo.ByUsername(ctx, cfg.Admin.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), cfg.Security.BcryptCost)
		if err != nil {
			return err
		}
		admin := models.Admin{
			Username:     cfg.Admin.Username,
			PasswordHash: string(hash),
			IsActive:     utils.ToPtr(true),
			CreatedAt:    utils.UTCNow(),
			UpdatedAt:    utils.UTCNow(),
		}
		if err := adminRepo.Save(ctx, &admin); err != nil {
			return err
		}
		log.Printf("Created default admin account: %s", cfg.Admin.Username)
		return nil
	})
}
