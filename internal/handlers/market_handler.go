package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
	"amm-market/internal/services"
)

const (
	defaultPerPage        = 20
	defaultCandleInterval = time.Hour
	defaultCandleSpan     = 24 * time.Hour
)

// MarketHandler serves market reads and market creation
type MarketHandler struct {
	registry *services.RegistryService
	engine   *services.MarketEngine
	now      func() time.Time
	log      *zap.Logger
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(registry *services.RegistryService, engine *services.MarketEngine, log *zap.Logger) *MarketHandler {
	return &MarketHandler{
		registry: registry,
		engine:   engine,
		now:      time.Now,
		log:      log,
	}
}

// GetMarkets lists markets newest first.
// GET /api/markets?page=1&per_page=20&kind=0|1|2&account=
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	page, ok := queryUint(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := queryUint(c, "per_page", defaultPerPage)
	if !ok {
		return
	}
	kind, ok := queryUint(c, "kind", 0)
	if !ok {
		return
	}

	list, err := h.registry.FetchMarkets(c.Request.Context(), page, perPage, c.Query("account"), models.MarketSetFromKind(uint8(min(kind, 2))))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, list)
}

// GetMarketByID returns one market, with the caller's balance when account is given.
// GET /api/markets/:id?account=
func (h *MarketHandler) GetMarketByID(c *gin.Context) {
	info, err := h.registry.GetMarketInfo(c.Request.Context(), c.Param("id"), c.Query("account"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, info)
}

// CreateMarket creates a market. Admins only.
// POST /api/markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	creator, ok := wallet(c)
	if !ok {
		return
	}
	var req models.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.registry.CreateMarket(c.Request.Context(), creator, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := models.NewMarketResponse(*market, h.now())
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    resp,
	})
}

// GetQuote prices a hypothetical trade without executing it.
// GET /api/markets/:id/quote?outcome=1&side=1&amount=15000000
func (h *MarketHandler) GetQuote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := fixedpoint.FromDecimal(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	q, err := h.registry.Quote(c.Request.Context(), c.Param("id"), models.Outcome(req.Outcome), models.Side(req.Side), amount)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, models.QuoteResponse{
		QuoteResult:  q,
		DisplayPrice: q.Price.Decimal(models.PriceDecimals),
		ImpactPct:    q.PriceImpact.Decimal(2),
	})
}

// GetOrders returns a page of the market's order ledger, newest first.
// GET /api/markets/:id/orders?page=1&per_page=20
func (h *MarketHandler) GetOrders(c *gin.Context) {
	page, ok := queryUint(c, "page", 1)
	if !ok {
		return
	}
	perPage, ok := queryUint(c, "per_page", defaultPerPage)
	if !ok {
		return
	}

	orders, err := h.engine.GetOrders(c.Request.Context(), c.Param("id"), page, perPage)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, orders)
}

// GetCandles returns OHLC candles of the Yes price.
// GET /api/markets/:id/candles?interval=1h&from=<unix>&to=<unix>
func (h *MarketHandler) GetCandles(c *gin.Context) {
	interval := defaultCandleInterval
	if raw := c.Query("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval"})
			return
		}
		interval = d
	}

	now := h.now()
	toUnix, ok := queryUint(c, "to", uint64(now.Unix()))
	if !ok {
		return
	}
	to := time.Unix(int64(toUnix), 0)
	fromUnix, ok := queryUint(c, "from", uint64(to.Add(-defaultCandleSpan).Unix()))
	if !ok {
		return
	}
	from := time.Unix(int64(fromUnix), 0)

	candles, err := h.engine.Candles(c.Request.Context(), c.Param("id"), interval, from, to)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, candles)
}

// GetStats returns registry-wide statistics
// GET /api/stats
func (h *MarketHandler) GetStats(c *gin.Context) {
	stats, err := h.registry.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, stats)
}
