package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"amm-market/internal/services"
)

// UserHandler serves per-wallet reads
type UserHandler struct {
	registry *services.RegistryService
	log      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(registry *services.RegistryService, log *zap.Logger) *UserHandler {
	return &UserHandler{registry: registry, log: log}
}

// GetIncentives returns the wallet's incentive points
// GET /api/me/incentives
func (h *UserHandler) GetIncentives(c *gin.Context) {
	addr, ok := wallet(c)
	if !ok {
		return
	}
	points, err := h.registry.GetIncentives(c.Request.Context(), addr)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, gin.H{
		"wallet_address": addr,
		"points":         points,
	})
}
