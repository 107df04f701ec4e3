// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lanepricing/internal/http/handlers"
	"lanepricing/internal/http/middleware"
)

type RouterDeps struct {
	Lanes         handlers.LaneService
	Boards        handlers.BoardService
	PriceRequests handlers.PriceRequestService
	Access        middleware.AccessChecker
	Estimates     handlers.Estimator
	Log           *zap.Logger
	Registry      *prometheus.Registry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log), middleware.NewMetrics(reg).Handler())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	laneHandler := handlers.NewLaneHandler(deps.Lanes)
	api.GET("/lookups", laneHandler.Lookups)
	api.GET("/lane-scores", laneHandler.Scores)
	api.GET("/accounts/:id/lane-prices", laneHandler.History)

	estimateHandler := handlers.NewEstimateHandler(deps.Estimates)
	api.POST("/estimates", estimateHandler.Create)

	boardHandler := handlers.NewBoardHandler(deps.Boards)
	api.POST("/boards", boardHandler.Open)
	api.GET("/boards/:id", boardHandler.Get)
	api.DELETE("/boards/:id", boardHandler.Close)
	api.POST("/boards/:id/actions", boardHandler.Apply)
	api.POST("/boards/:id/advance", boardHandler.Advance)
	api.POST("/boards/:id/back", boardHandler.Back)
	api.POST("/boards/:id/submit", boardHandler.Submit)
	api.POST("/boards/:id/price-requests", boardHandler.RequestPrices)

	requestHandler := handlers.NewPriceRequestHandler(deps.PriceRequests)
	api.POST("/price-requests", requestHandler.Create)
	api.GET("/price-requests/:id", requestHandler.Get)
	api.POST("/price-requests/:id/reopen", requestHandler.Reopen)
	api.POST("/price-requests/:id/cancel", requestHandler.Cancel)

	carrier := api.Group("/carrier/price-requests/:id", middleware.AccessCode(deps.Access))
	carrier.GET("", requestHandler.Get)
	carrier.GET("/lanes", requestHandler.Lanes)
	carrier.GET("/draft", requestHandler.Draft)
	carrier.PUT("/draft", requestHandler.SaveDraft)
	carrier.DELETE("/draft", requestHandler.DiscardDraft)
	carrier.POST("/submit", requestHandler.Submit)
	carrier.POST("/request-change", requestHandler.RequestChange)

	return r
}
