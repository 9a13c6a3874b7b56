package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChainInfo is what the dashboard needs to point a wallet at the right
// network.
type ChainInfo struct {
	ChainID     uint64 `json:"chainId"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	ExplorerURL string `json:"explorerUrl"`
}

type ContractAddressSource interface {
	ContractAddress() string
}

type MetaHandler struct {
	env      string
	version  string
	chain    ChainInfo
	contract ContractAddressSource
}

func NewMetaHandler(env, version string, chain ChainInfo, contract ContractAddressSource) *MetaHandler {
	return &MetaHandler{env: env, version: version, chain: chain, contract: contract}
}

func (h *MetaHandler) GetMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":            "Credit Score Backend",
		"version":         h.version,
		"env":             h.env,
		"chain":           h.chain,
		"contractAddress": h.contract.ContractAddress(),
	})
}
