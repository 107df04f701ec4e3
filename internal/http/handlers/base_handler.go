// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lanepricing/internal/modules/comparison"
	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricerequest"
	"lanepricing/internal/modules/pricing"
	"lanepricing/internal/modules/ranking"
	"lanepricing/internal/modules/selection"
	"lanepricing/internal/types"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func pathID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing id")
		return "", false
	}
	return types.ID(id), true
}

func writeLaneError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lane.ErrInvalidQuery), errors.Is(err, lane.ErrUnknownMode):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, lane.ErrLocationNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, comparison.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, selection.ErrUnknownCandidate),
		errors.Is(err, selection.ErrUnknownSurcharge),
		errors.Is(err, selection.ErrUnknownAction),
		errors.Is(err, ranking.ErrUnknownVariant),
		errors.Is(err, comparison.ErrNoCarriers),
		errors.Is(err, comparison.ErrUnknownCarrier),
		errors.Is(err, comparison.ErrNotSpotBoard):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, selection.ErrNoPrimarySelection),
		errors.Is(err, selection.ErrInvalidStage),
		errors.Is(err, comparison.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeLaneError(c, err)
	}
}

func writePriceRequestError(c *gin.Context, err error) {
	var verr *pricerequest.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Messages: verr.Messages})
	case errors.Is(err, pricerequest.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, pricerequest.ErrAccessDenied):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, pricerequest.ErrNoCarriers),
		errors.Is(err, pricerequest.ErrUnknownCharge),
		errors.Is(err, pricerequest.ErrNoChanges):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricerequest.ErrLocked),
		errors.Is(err, pricerequest.ErrInvalidStage),
		errors.Is(err, pricerequest.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeLaneError(c, err)
	}
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
