package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	DriverHandler  *handler.DriverHandler
	PaymentHandler *handler.PaymentHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes. All of them require an identity.
	v1 := router.Group("/v1")
	v1.Use(middleware.Identity())
	{
		rides := v1.Group("/rides")
		{
			rides.POST("/estimate", deps.RideHandler.Estimate)
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.PATCH("/:id/status", deps.RideHandler.UpdateStatus)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.POST("/:id/sos", deps.RideHandler.TriggerSOS)
			rides.POST("/:id/deviation", deps.RideHandler.FlagDeviation)
			rides.POST("/:id/pay", deps.PaymentHandler.ChargeRide)
		}

		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.PUT("/:id/location", deps.DriverHandler.UpdateLocation)
			drivers.POST("/:id/offline", deps.DriverHandler.GoOffline)
			drivers.GET("/:id/offer", deps.DriverHandler.PendingOffer)
			drivers.POST("/offers/respond", deps.DriverHandler.RespondToOffer)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/:id/refund", deps.PaymentHandler.Refund)
		}

		wallet := v1.Group("/wallet")
		{
			wallet.GET("", deps.PaymentHandler.GetWallet)
			wallet.POST("/topup", deps.PaymentHandler.TopUp)
			wallet.GET("/transactions", deps.PaymentHandler.ListTransactions)
		}
	}

	return router
}
