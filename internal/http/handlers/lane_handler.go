// README: Lane handlers for lookups, carrier scores and account price history.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/types"
)

type LaneService interface {
	Lookups(ctx context.Context) (lane.Lookups, error)
	History(ctx context.Context, accountID types.ID, f lane.HistoryFilter) (lane.HistoryPage, error)
	Scores(ctx context.Context, q lane.Query) (lane.ScoreTables, error)
}

type LaneHandler struct {
	lanes LaneService
}

func NewLaneHandler(svc LaneService) *LaneHandler {
	return &LaneHandler{lanes: svc}
}

type laneQuery struct {
	SeasonID           string `form:"season_id"`
	TrailerType        string `form:"trailer_type"`
	LoadingLocationID  string `form:"loading_location_id"`
	DeliveryLocationID string `form:"delivery_location_id"`
}

func (q laneQuery) toQuery() lane.Query {
	return lane.Query{
		SeasonID:           types.ID(q.SeasonID),
		TrailerType:        q.TrailerType,
		LoadingLocationID:  types.ID(q.LoadingLocationID),
		DeliveryLocationID: types.ID(q.DeliveryLocationID),
	}
}

func (h *LaneHandler) Lookups(c *gin.Context) {
	out, err := h.lanes.Lookups(c.Request.Context())
	if err != nil {
		writeLaneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *LaneHandler) Scores(c *gin.Context) {
	var q laneQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query")
		return
	}
	out, err := h.lanes.Scores(c.Request.Context(), q.toQuery())
	if err != nil {
		writeLaneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

type historyQuery struct {
	SeasonID string `form:"season_id"`
	Search   string `form:"search"`
	Shown    int    `form:"shown"`
}

func (h *LaneHandler) History(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query")
		return
	}
	page, err := h.lanes.History(c.Request.Context(), id, lane.HistoryFilter{
		SeasonID: types.ID(q.SeasonID),
		Search:   q.Search,
		Shown:    q.Shown,
	})
	if err != nil {
		writeLaneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, page)
}
