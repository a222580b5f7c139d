package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"amm-market/internal/auth"
	"amm-market/internal/services"
)

// statusFor maps a rejection kind to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPrecondition), errors.Is(err, services.ErrIntegrity):
		return http.StatusConflict
	case errors.Is(err, services.ErrEconomicLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrExternalCall):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	var me *services.MarketError
	if errors.As(err, &me) {
		c.JSON(status, gin.H{"error": me.Error(), "kind": me.Kind.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// wallet returns the authenticated wallet or aborts with 401
func wallet(c *gin.Context) (string, bool) {
	addr, ok := auth.GetWalletAddress(c)
	if !ok || addr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return addr, true
}

func queryUint(c *gin.Context, key string, def uint64) (uint64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}
