package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dileep812/credit-score/internal/aggregate"
	"github.com/dileep812/credit-score/internal/auth"
	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/config"
	"github.com/dileep812/credit-score/internal/db"
	"github.com/dileep812/credit-score/internal/gateway"
	"github.com/dileep812/credit-score/internal/http/handlers"
	"github.com/dileep812/credit-score/internal/observability"
	postgresrepo "github.com/dileep812/credit-score/internal/repository/postgres"
	"github.com/dileep812/credit-score/internal/server"
	"github.com/dileep812/credit-score/internal/session"
	"github.com/dileep812/credit-score/internal/view"
	"github.com/dileep812/credit-score/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rpc, err := chain.NewHTTPClient(cfg.ChainRPCURL)
	if err != nil {
		logger.Error("failed to build rpc client", "err", err)
		os.Exit(1)
	}

	settingsRepo := postgresrepo.NewSettingsRepository(pool)
	journalRepo := postgresrepo.NewTxJournalRepository(pool)

	manager, err := session.NewManager(ctx, rpc, session.ChainParams{
		ID:       cfg.ChainID,
		Name:     cfg.ChainName,
		Currency: cfg.ChainCurrency,
		Explorer: cfg.ChainExplorer,
		RPCURL:   cfg.ChainRPCURL,
	}, cfg.AdminAddress, cfg.ContractAddress, cfg.TxGasLimit, settingsRepo, logger)
	if err != nil {
		logger.Error("failed to build session manager", "err", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	notifier := ws.NewNotifier(hub)

	aggregator := aggregate.NewAggregator(logger, cfg.AggregateWorkers, cfg.AggregateRetries, cfg.LogScanStartBlock)
	controller := view.NewController(manager, aggregator, logger, notifier.Publish)

	writer := func() (gateway.ContractWriter, error) {
		contract, err := manager.Contract()
		if err != nil {
			return nil, err
		}
		return contract, nil
	}
	gw := gateway.New(manager, writer, journalRepo, controller, logger, cfg.ReceiptInterval, cfg.ReceiptTimeout)

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	cookieCfg := auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:          pool,
		SessionHandler:  handlers.NewSessionHandler(manager, jwtManager, cookieCfg, cfg.JWTAccessTTL),
		SettingsHandler: handlers.NewSettingsHandler(manager),
		ViewHandler:     handlers.NewViewHandler(controller, aggregator, manager),
		TxHandler:       handlers.NewTxHandler(gw, journalRepo),
		WSHandler:       ws.NewHandler(hub),
		JWTManager:      jwtManager,
		AdminChecker:    manager,
		ContractSource:  manager,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
