package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type SettingsService interface {
	SetContractAddress(ctx context.Context, addr string) error
	ContractAddress() string
}

type SettingsHandler struct {
	service SettingsService
}

func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

func (h *SettingsHandler) UpdateContractAddress(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.service.SetContractAddress(c.Request.Context(), req.Address); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contractAddress": h.service.ContractAddress()})
}
