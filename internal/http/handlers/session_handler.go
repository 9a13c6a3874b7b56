package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dileep812/credit-score/internal/auth"
	"github.com/dileep812/credit-score/internal/session"
)

// SessionService is the connection-manager surface the HTTP layer drives.
// Satisfied by *session.Manager.
type SessionService interface {
	Connect(ctx context.Context) (session.Identity, error)
	Disconnect()
	AccountChanged(address string)
	NetworkChanged(chainID uint64)
	Identity() (session.Identity, bool)
	Role() (string, bool)
}

type SessionHandler struct {
	service   SessionService
	jwt       *auth.JWTManager
	cookieCfg auth.CookieConfig
	tokenTTL  time.Duration
}

func NewSessionHandler(service SessionService, jwt *auth.JWTManager, cookieCfg auth.CookieConfig, tokenTTL time.Duration) *SessionHandler {
	return &SessionHandler{service: service, jwt: jwt, cookieCfg: cookieCfg, tokenTTL: tokenTTL}
}

func (h *SessionHandler) Connect(c *gin.Context) {
	identity, err := h.service.Connect(c.Request.Context())
	if err != nil {
		h.connectError(c, err)
		return
	}

	role, _ := h.service.Role()
	token, err := h.jwt.Mint(identity.Address, role, uuid.NewString(), h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_mint_failed"})
		return
	}
	auth.SetSessionCookie(c.Writer, h.cookieCfg, token, h.tokenTTL)

	c.JSON(http.StatusOK, gin.H{
		"address": identity.Address,
		"chainId": identity.ChainID,
		"role":    role,
	})
}

func (h *SessionHandler) connectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrUserRejected):
		c.JSON(http.StatusConflict, gin.H{"error": "user_rejected", "message": "User rejected connection"})
	case errors.Is(err, session.ErrWrongNetwork):
		c.JSON(http.StatusConflict, gin.H{"error": "wrong_network", "message": "Please switch to the configured network"})
	case errors.Is(err, session.ErrWalletUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "wallet_unavailable", "message": "No wallet provider available"})
	default:
		writeError(c, err)
	}
}

func (h *SessionHandler) Disconnect(c *gin.Context) {
	h.service.Disconnect()
	auth.ClearSessionCookie(c.Writer, h.cookieCfg)
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	identity, ok := h.service.Identity()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	role, _ := h.service.Role()
	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"address":   identity.Address,
		"chainId":   identity.ChainID,
		"role":      role,
	})
}

// AccountChanged relays the wallet's accountsChanged notification. An empty
// address means the wallet disconnected.
func (h *SessionHandler) AccountChanged(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.service.AccountChanged(req.Address)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SessionHandler) NetworkChanged(c *gin.Context) {
	var req struct {
		ChainID uint64 `json:"chainId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.service.NetworkChanged(req.ChainID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
