// README: Estimate handler prices one stored rate sheet for a given selection.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/types"
)

type Estimator interface {
	Estimate(ctx context.Context, cmd pricing.EstimateCommand) (pricing.Estimate, error)
}

type EstimateHandler struct {
	pricing Estimator
}

func NewEstimateHandler(svc Estimator) *EstimateHandler {
	return &EstimateHandler{pricing: svc}
}

type estimateReq struct {
	LanePriceID   string            `json:"lane_price_id"`
	Selection     pricing.Selection `json:"selection"`
	MarginPercent string            `json:"margin_percent"`
}

func (h *EstimateHandler) Create(c *gin.Context) {
	var req estimateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.LanePriceID == "" {
		writeError(c, http.StatusBadRequest, "missing lane_price_id")
		return
	}
	est, err := h.pricing.Estimate(c.Request.Context(), pricing.EstimateCommand{
		LanePriceID:   types.ID(req.LanePriceID),
		Selection:     req.Selection,
		MarginPercent: types.ParseAmount(req.MarginPercent),
	})
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, est)
}
