package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"amm-market/internal/models"
	"amm-market/internal/services"
)

// AdminHandler manages the registry's admin set
type AdminHandler struct {
	registry *services.RegistryService
	log      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(registry *services.RegistryService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{registry: registry, log: log}
}

// AdminMiddleware rejects wallets that are not active admins
func (h *AdminHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr, ok := wallet(c)
		if !ok {
			c.Abort()
			return
		}
		isAdmin, err := h.registry.IsAdmin(c.Request.Context(), addr)
		if err != nil {
			h.log.Error("admin lookup failed", zap.String("wallet", addr), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// AddAdmin grants admin rights
// POST /api/admin/admins
func (h *AdminHandler) AddAdmin(c *gin.Context) {
	h.change(c, h.registry.AddAdmin, "admin added")
}

// RemoveAdmin revokes admin rights
// DELETE /api/admin/admins
func (h *AdminHandler) RemoveAdmin(c *gin.Context) {
	h.change(c, h.registry.RemoveAdmin, "admin removed")
}

func (h *AdminHandler) change(c *gin.Context, op func(ctx context.Context, sender, account string) error, msg string) {
	sender, ok := wallet(c)
	if !ok {
		return
	}
	var req models.AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := op(c.Request.Context(), sender, req.Address); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info(msg, zap.String("by", sender), zap.String("account", req.Address))
	respondOK(c, gin.H{"account": req.Address})
}
