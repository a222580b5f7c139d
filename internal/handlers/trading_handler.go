package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"amm-market/internal/models"
	"amm-market/internal/services"
)

// TradingHandler executes orders, resolution and claims on behalf of the
// authenticated wallet
type TradingHandler struct {
	registry *services.RegistryService
	log      *zap.Logger
}

// NewTradingHandler creates a new TradingHandler
func NewTradingHandler(registry *services.RegistryService, log *zap.Logger) *TradingHandler {
	return &TradingHandler{registry: registry, log: log}
}

// PlaceOrder buys or sells outcome shares.
// POST /api/markets/:id/orders
func (h *TradingHandler) PlaceOrder(c *gin.Context) {
	account, ok := wallet(c)
	if !ok {
		return
	}
	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registry.PlaceOrder(c.Request.Context(), account, c.Param("id"),
		models.Outcome(*req.Outcome), models.Side(*req.Side), req.Amount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("order placed",
		zap.String("market", c.Param("id")),
		zap.String("account", account),
		zap.Stringer("outcome", models.Outcome(*req.Outcome)),
		zap.Stringer("side", models.Side(*req.Side)),
		zap.Stringer("amount", req.Amount),
	)
	respondOK(c, res)
}

// ResolveMarket settles the market. Owner or admin, at or after the market end time.
// POST /api/markets/:id/resolve
func (h *TradingHandler) ResolveMarket(c *gin.Context) {
	account, ok := wallet(c)
	if !ok {
		return
	}
	var req models.ResolveMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registry.ResolveMarket(c.Request.Context(), account, c.Param("id"), models.Outcome(*req.Outcome), req.MarketIndex)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

// Claim redeems the wallet's winning shares.
// POST /api/markets/:id/claim
func (h *TradingHandler) Claim(c *gin.Context) {
	account, ok := wallet(c)
	if !ok {
		return
	}
	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registry.Claim(c.Request.Context(), account, c.Param("id"), models.Outcome(*req.Outcome))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

// InitializeLiquidity bootstraps the pool. Owner or admin.
// POST /api/markets/:id/liquidity/init
func (h *TradingHandler) InitializeLiquidity(c *gin.Context) {
	account, ok := wallet(c)
	if !ok {
		return
	}
	var req models.BootstrapLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registry.InitializeLiquidity(c.Request.Context(), account, c.Param("id"), req.YesPrice, req.Liquidity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

// AddLiquidity deposits into an initialized pool.
// POST /api/markets/:id/liquidity/add
func (h *TradingHandler) AddLiquidity(c *gin.Context) {
	account, ok := wallet(c)
	if !ok {
		return
	}
	var req models.AddLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registry.AddLiquidity(c.Request.Context(), account, c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

// RemoveLiquidity burns liquidity shares for settlement currency.
// POST /api/markets/:id/liquidity/remove
func (h *TradingHandler) RemoveLiquidity(c *gin.Context) {
	account, ok := wallet(c)
	if !ok {
		return
	}
	var req models.RemoveLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.registry.RemoveLiquidity(c.Request.Context(), account, c.Param("id"), req.Shares)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, res)
}
