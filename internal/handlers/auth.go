package handlers

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"amm-market/internal/auth"
	"amm-market/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	registry *services.RegistryService
	nonces   auth.NonceStore
	log      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(registry *services.RegistryService, nonces auth.NonceStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{registry: registry, nonces: nonces, log: log}
}

func decodeWallet(addr string) (ed25519.PublicKey, bool) {
	pubKey, err := base58.Decode(addr)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return nil, false
	}
	return pubKey, true
}

// GetNonce issues a single-use login challenge for a wallet.
// GET /auth/nonce?wallet_address=
func (h *AuthHandler) GetNonce(c *gin.Context) {
	addr := c.Query("wallet_address")
	if _, ok := decodeWallet(addr); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}
	nonce, expiresAt, err := h.nonces.Issue(c.Request.Context(), addr)
	if err != nil {
		h.log.Error("issue nonce", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue nonce"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nonce":      nonce,
		"message":    auth.LoginMessage(nonce),
		"expires_at": expiresAt.Unix(),
	})
}

// WalletLogin authenticates a wallet by an ed25519 signature over the login
// message for a nonce from GetNonce. Each nonce logs in once.
// POST /auth/wallet
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Nonce         string `json:"nonce" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pubKey, ok := decodeWallet(req.WalletAddress)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
		return
	}

	// Wallets return base58 signatures; hex is accepted as well
	sig, err := base58.Decode(req.Signature)
	if err != nil {
		sig, err = hex.DecodeString(req.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature format"})
			return
		}
	}

	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(pubKey, []byte(auth.LoginMessage(req.Nonce)), sig) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	fresh, err := h.nonces.Consume(c.Request.Context(), req.WalletAddress, req.Nonce)
	if err != nil {
		h.log.Error("consume nonce", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify nonce"})
		return
	}
	if !fresh {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "nonce expired or already used"})
		return
	}

	token, err := auth.GenerateToken(req.WalletAddress)
	if err != nil {
		h.log.Error("generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"wallet_address": req.WalletAddress,
	})
}

// GetMe returns the authenticated wallet and its registry standing
// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	addr, ok := wallet(c)
	if !ok {
		return
	}
	isAdmin, err := h.registry.IsAdmin(c.Request.Context(), addr)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	points, err := h.registry.GetIncentives(c.Request.Context(), addr)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, gin.H{
		"wallet_address": addr,
		"is_admin":       isAdmin,
		"incentives":     points,
	})
}
