// README: Price request handlers for internal users and the carrier response editor.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/pricerequest"
	"lanepricing/internal/types"
)

type PriceRequestService interface {
	Create(ctx context.Context, cmd pricerequest.CreateCommand) ([]types.ID, error)
	Get(ctx context.Context, id types.ID) (*pricerequest.PriceRequest, error)
	Lanes(ctx context.Context, id types.ID, f pricerequest.LaneFilter) (pricerequest.LanePage, error)
	Draft(ctx context.Context, id types.ID) (pricerequest.Draft, map[string]string, error)
	SaveDraft(ctx context.Context, id types.ID, change pricerequest.Draft) (pricerequest.Draft, error)
	DiscardDraft(ctx context.Context, id types.ID) error
	Submit(ctx context.Context, id types.ID) (*pricerequest.PriceRequest, error)
	RequestChange(ctx context.Context, id types.ID) (*pricerequest.PriceRequest, error)
	Reopen(ctx context.Context, id types.ID) (*pricerequest.PriceRequest, error)
	Cancel(ctx context.Context, id types.ID) (*pricerequest.PriceRequest, error)
}

type PriceRequestHandler struct {
	requests PriceRequestService
}

func NewPriceRequestHandler(svc PriceRequestService) *PriceRequestHandler {
	return &PriceRequestHandler{requests: svc}
}

type createPriceRequestReq struct {
	AccountIDs      []types.ID `json:"account_ids"`
	Query           lane.Query `json:"query"`
	RequiredCharges []string   `json:"required_charges"`
}

func (h *PriceRequestHandler) Create(c *gin.Context) {
	var req createPriceRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ids, err := h.requests.Create(c.Request.Context(), pricerequest.CreateCommand{
		AccountIDs:      req.AccountIDs,
		Query:           req.Query,
		RequiredCharges: req.RequiredCharges,
	})
	if err != nil {
		writePriceRequestError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"price_request_ids": ids})
}

func (h *PriceRequestHandler) Get(c *gin.Context) {
	h.respond(c, h.requests.Get)
}

func (h *PriceRequestHandler) Reopen(c *gin.Context) {
	h.respond(c, h.requests.Reopen)
}

func (h *PriceRequestHandler) Cancel(c *gin.Context) {
	h.respond(c, h.requests.Cancel)
}

func (h *PriceRequestHandler) RequestChange(c *gin.Context) {
	h.respond(c, h.requests.RequestChange)
}

func (h *PriceRequestHandler) Submit(c *gin.Context) {
	h.respond(c, h.requests.Submit)
}

func (h *PriceRequestHandler) Lanes(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var f pricerequest.LaneFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query")
		return
	}
	switch f.Tab {
	case "", pricerequest.TabMandatory, pricerequest.TabOptional, pricerequest.TabExisting:
	default:
		writeError(c, http.StatusBadRequest, "unknown tab")
		return
	}
	page, err := h.requests.Lanes(c.Request.Context(), id, f)
	if err != nil {
		writePriceRequestError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, page)
}

func (h *PriceRequestHandler) Draft(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	draft, charges, err := h.requests.Draft(c.Request.Context(), id)
	if err != nil {
		writePriceRequestError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"draft": draft, "charges": charges})
}

func (h *PriceRequestHandler) SaveDraft(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var change pricerequest.Draft
	if err := c.ShouldBindJSON(&change); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	draft, err := h.requests.SaveDraft(c.Request.Context(), id, change)
	if err != nil {
		writePriceRequestError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, draft)
}

func (h *PriceRequestHandler) DiscardDraft(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.requests.DiscardDraft(c.Request.Context(), id); err != nil {
		writePriceRequestError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PriceRequestHandler) respond(c *gin.Context, fn func(context.Context, types.ID) (*pricerequest.PriceRequest, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	pr, err := fn(c.Request.Context(), id)
	if err != nil {
		writePriceRequestError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, pr)
}
