package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/pkg/gateway"
	"dispatch/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first, so the database and Redis clients pick up its hooks.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	server := wireServer(db, redisClient, nrApp, cfg, log)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log *logger.Logger) *http.Server {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Repositories.
	rideRepo := postgres.NewRideRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	walletRepo := postgres.NewWalletRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	uow := postgres.NewUnitOfWork(db)

	// Services.
	notifier := service.NewLogNotifier(log)
	offers := service.NewOfferCoordinator()
	surge := service.NewSurgeService(rideRepo, locationStore, cfg.Fare, cfg.Matching.RadiusKm, log)
	traffic := service.SampledTraffic{Min: cfg.Fare.TrafficFactorMin, Max: cfg.Fare.TrafficFactorMax}
	estimator := service.NewFareEstimator(cfg.Fare, traffic, surge)
	lifecycle := service.NewLifecycleService(rideRepo, uow, cacheStore, notifier, log)
	risk := service.NewHeuristicRiskScorer(5000)
	scorer := service.NewRiskAwareScorer(service.NewWeightedScorer(), risk)
	matching := service.NewMatchingEngine(
		rideRepo, driverRepo, locationStore, lockStore, cacheStore,
		lifecycle, offers, scorer, notifier, cfg.Matching, log,
	)
	rideService := service.NewRideService(rideRepo, estimator, matching, log)
	driverService := service.NewDriverService(driverRepo, locationStore, cacheStore, offers, log)
	walletService := service.NewWalletService(walletRepo, uow, log)
	settlement := service.NewSettlementService(rideRepo, paymentRepo, uow, newProvider(cfg.Gateway), risk, cfg.Gateway, log)

	// Handlers.
	rideHandler := handler.NewRideHandler(rideService, lifecycle)
	driverHandler := handler.NewDriverHandler(driverService)
	paymentHandler := handler.NewPaymentHandler(settlement, walletService)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		DriverHandler:  driverHandler,
		PaymentHandler: paymentHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// newProvider selects the payment gateway from config.
func newProvider(cfg config.GatewayConfig) gateway.Provider {
	switch cfg.Provider {
	case "stripe":
		return gateway.NewStripeProvider(cfg.StripeKey)
	case "razorpay":
		return gateway.NewRazorpayProvider(cfg.RazorpayKey, cfg.RazorpaySecret)
	default:
		return gateway.NewMemoryProvider()
	}
}
