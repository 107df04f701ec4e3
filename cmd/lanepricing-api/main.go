// README: Entry point; loads config, wires services and serves the HTTP API until interrupted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"lanepricing/internal/config"
	httptransport "lanepricing/internal/http"
	"lanepricing/internal/infra"
	"lanepricing/internal/modules/comparison"
	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricerequest"
	"lanepricing/internal/modules/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		logger.Fatal("load surcharge catalog", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	laneSvc := lane.NewService(lane.NewStore(dbPool), catalog, cfg.HistoryStep, logger.Named("lane"))
	pricingSvc := pricing.NewService(pricing.NewStore(dbPool, catalog), catalog)

	requestSvc := pricerequest.NewService(
		pricerequest.NewStore(dbPool),
		pricerequest.NewRedisDraftStore(redisClient, cfg.Session.DraftTTL),
		catalog,
		cfg.PageSize,
		logger.Named("pricerequest"),
	)

	boardSvc := comparison.NewService(
		laneSvc,
		comparison.NewRedisBoardStore(redisClient, cfg.Session.BoardTTL),
		comparison.NewSupplierStore(dbPool),
		requestSvc,
		cfg.ResortPolicy(),
		logger.Named("comparison"),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gin.SetMode(gin.ReleaseMode)
	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
		Lanes:         laneSvc,
		Boards:        boardSvc,
		PriceRequests: requestSvc,
		Access:        requestSvc,
		Estimates:     pricingSvc,
		Log:           logger.Named("http"),
		Registry:      registry,
	})

	if err := server.Run(ctx); err != nil {
		logger.Error("http server", zap.Error(err))
		os.Exit(1)
	}
}
