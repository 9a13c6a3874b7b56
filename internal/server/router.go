package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dileep812/credit-score/internal/auth"
	"github.com/dileep812/credit-score/internal/config"
	"github.com/dileep812/credit-score/internal/http/handlers"
	"github.com/dileep812/credit-score/internal/http/middleware"
	"github.com/dileep812/credit-score/internal/version"
	"github.com/dileep812/credit-score/internal/ws"
)

const maxRequestBodyBytes = 1 << 20

type Dependencies struct {
	Pinger          handlers.Pinger
	SessionHandler  *handlers.SessionHandler
	SettingsHandler *handlers.SettingsHandler
	ViewHandler     *handlers.ViewHandler
	TxHandler       *handlers.TxHandler
	WSHandler       *ws.Handler
	JWTManager      *auth.JWTManager
	AdminChecker    middleware.AdminChecker
	ContractSource  handlers.ContractAddressSource
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})
	r.Use(middleware.RequestBodyLimit(maxRequestBodyBytes))

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version, handlers.ChainInfo{
		ChainID:     cfg.ChainID,
		Name:        cfg.ChainName,
		Currency:    cfg.ChainCurrency,
		ExplorerURL: cfg.ChainExplorer,
	}, deps.ContractSource)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.SessionHandler != nil {
		sessionGroup := r.Group("/v1/session")
		sessionGroup.POST("/connect", deps.SessionHandler.Connect)
		sessionGroup.POST("/disconnect", deps.SessionHandler.Disconnect)
		sessionGroup.GET("", deps.SessionHandler.GetSession)
		sessionGroup.POST("/account-changed", deps.SessionHandler.AccountChanged)
		sessionGroup.POST("/network-changed", deps.SessionHandler.NetworkChanged)
	}

	if deps.JWTManager != nil {
		authed := r.Group("/v1")
		authed.Use(middleware.RequireAuth(deps.JWTManager))

		if deps.ViewHandler != nil {
			authed.GET("/view", deps.ViewHandler.GetView)
			authed.GET("/snapshot", deps.ViewHandler.GetSnapshot)
		}

		if deps.SettingsHandler != nil {
			authed.PUT("/settings/contract-address", deps.SettingsHandler.UpdateContractAddress)
		}

		if deps.TxHandler != nil {
			tx := authed.Group("/tx")
			tx.GET("", deps.TxHandler.ListJournal)
			tx.POST("/register", deps.TxHandler.Register)
			tx.POST("/repay", deps.TxHandler.Repay)
			tx.POST("/request-loan", deps.TxHandler.RequestLoan)
			tx.POST("/stake", deps.TxHandler.Stake)
			tx.POST("/unstake", deps.TxHandler.Unstake)
		}

		if deps.AdminChecker != nil {
			adminGroup := authed.Group("")
			adminGroup.Use(middleware.RequireAdmin(deps.AdminChecker))

			if deps.ViewHandler != nil {
				adminGroup.GET("/admin/view", deps.ViewHandler.GetAdminView)
				adminGroup.GET("/admin/overview", deps.ViewHandler.GetAdminOverview)
				adminGroup.GET("/admin/registry", deps.ViewHandler.GetAdminRegistry)
				adminGroup.GET("/admin/requests", deps.ViewHandler.GetAdminRequests)
				adminGroup.GET("/admin/loans", deps.ViewHandler.GetAdminLoans)
			}
			if deps.TxHandler != nil {
				adminGroup.POST("/tx/record-default", deps.TxHandler.RecordDefault)
				adminGroup.POST("/tx/record-late-payment", deps.TxHandler.RecordLatePayment)
				adminGroup.POST("/tx/approve-request", deps.TxHandler.ApproveRequest)
				adminGroup.POST("/tx/reject-request", deps.TxHandler.RejectRequest)
				adminGroup.POST("/tx/update-oracle-score", deps.TxHandler.UpdateOracleScore)
			}
		}
	}

	if deps.WSHandler != nil {
		r.GET("/ws", deps.WSHandler.HandleWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
