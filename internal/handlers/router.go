package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"amm-market/internal/auth"
	"amm-market/internal/middleware"
	"amm-market/internal/services"
)

// RouterConfig carries what the HTTP surface is built from
type RouterConfig struct {
	Registry       *services.RegistryService
	Engine         *services.MarketEngine
	Log            *zap.Logger
	AllowedOrigins []string
	Nonces         auth.NonceStore         // defaults to an in-memory store
	RateLimiter    *middleware.RateLimiter // optional
}

// NewRouter registers every route on a fresh gin engine
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if cfg.RateLimiter != nil {
		router.Use(cfg.RateLimiter.Middleware())
	}

	nonces := cfg.Nonces
	if nonces == nil {
		nonces = auth.NewMemoryNonceStore(auth.DefaultNonceTTL)
	}
	authHandler := NewAuthHandler(cfg.Registry, nonces, log)
	marketHandler := NewMarketHandler(cfg.Registry, cfg.Engine, log)
	tradingHandler := NewTradingHandler(cfg.Registry, log)
	adminHandler := NewAdminHandler(cfg.Registry, log)
	userHandler := NewUserHandler(cfg.Registry, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/auth/nonce", authHandler.GetNonce)
	router.POST("/auth/wallet", authHandler.WalletLogin)
	router.GET("/auth/me", auth.AuthMiddleware(log), authHandler.GetMe)

	// Public market routes
	router.GET("/api/markets", marketHandler.GetMarkets)
	router.GET("/api/markets/:id", marketHandler.GetMarketByID)
	router.GET("/api/markets/:id/quote", marketHandler.GetQuote)
	router.GET("/api/markets/:id/orders", marketHandler.GetOrders)
	router.GET("/api/markets/:id/candles", marketHandler.GetCandles)
	router.GET("/api/stats", marketHandler.GetStats)

	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(log))
	{
		api.POST("/markets", marketHandler.CreateMarket)
		api.POST("/markets/:id/liquidity/init", tradingHandler.InitializeLiquidity)
		api.POST("/markets/:id/liquidity/add", tradingHandler.AddLiquidity)
		api.POST("/markets/:id/liquidity/remove", tradingHandler.RemoveLiquidity)
		api.POST("/markets/:id/orders", tradingHandler.PlaceOrder)
		api.POST("/markets/:id/resolve", tradingHandler.ResolveMarket)
		api.POST("/markets/:id/claim", tradingHandler.Claim)
		api.GET("/me/incentives", userHandler.GetIncentives)
	}

	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware(log), adminHandler.AdminMiddleware())
	{
		admin.POST("/admins", adminHandler.AddAdmin)
		admin.DELETE("/admins", adminHandler.RemoveAdmin)
	}

	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
