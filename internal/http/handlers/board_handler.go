// README: Board handlers for opening, mutating and submitting comparison boards.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lanepricing/internal/modules/comparison"
	"lanepricing/internal/modules/lane"
	"lanepricing/internal/modules/selection"
	"lanepricing/internal/types"
)

type BoardService interface {
	Open(ctx context.Context, cmd comparison.OpenCommand) (*comparison.Session, error)
	Get(ctx context.Context, id types.ID) (*comparison.Session, error)
	Apply(ctx context.Context, id types.ID, a selection.Action) (*comparison.Session, error)
	Advance(ctx context.Context, id types.ID) (*comparison.Session, error)
	Back(ctx context.Context, id types.ID) (*comparison.Session, error)
	Submit(ctx context.Context, id types.ID) (*comparison.PreferredSupplier, error)
	RequestPrices(ctx context.Context, id types.ID, accountIDs []types.ID) ([]types.ID, error)
	Close(ctx context.Context, id types.ID) error
}

type BoardHandler struct {
	boards BoardService
}

func NewBoardHandler(svc BoardService) *BoardHandler {
	return &BoardHandler{boards: svc}
}

type openBoardReq struct {
	Mode   lane.Mode              `json:"mode"`
	Query  lane.Query             `json:"query"`
	Policy selection.ResortPolicy `json:"policy"`
}

func (h *BoardHandler) Open(c *gin.Context) {
	var req openBoardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Mode == "" {
		req.Mode = lane.ModeCompare
	}
	if req.Policy != "" && !req.Policy.Valid() {
		writeError(c, http.StatusBadRequest, "unknown policy")
		return
	}
	sess, err := h.boards.Open(c.Request.Context(), comparison.OpenCommand{Mode: req.Mode, Query: req.Query, Policy: req.Policy})
	if err != nil {
		writeBoardError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sess)
}

func (h *BoardHandler) Get(c *gin.Context) {
	h.respond(c, h.boards.Get)
}

func (h *BoardHandler) Advance(c *gin.Context) {
	h.respond(c, h.boards.Advance)
}

func (h *BoardHandler) Back(c *gin.Context) {
	h.respond(c, h.boards.Back)
}

func (h *BoardHandler) Apply(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var env selection.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	action, err := env.Action()
	if err != nil {
		writeBoardError(c, err)
		return
	}
	sess, err := h.boards.Apply(c.Request.Context(), id, action)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess)
}

func (h *BoardHandler) Submit(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ps, err := h.boards.Submit(c.Request.Context(), id)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, ps)
}

type requestPricesReq struct {
	AccountIDs []types.ID `json:"account_ids"`
}

func (h *BoardHandler) RequestPrices(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req requestPricesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ids, err := h.boards.RequestPrices(c.Request.Context(), id, req.AccountIDs)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"price_request_ids": ids})
}

func (h *BoardHandler) Close(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.boards.Close(c.Request.Context(), id); err != nil {
		writeBoardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BoardHandler) respond(c *gin.Context, fn func(context.Context, types.ID) (*comparison.Session, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, err := fn(c.Request.Context(), id)
	if err != nil {
		writeBoardError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess)
}
