package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/repository"
	"stocksignal/internal/service"
)

type BacktestHandler struct {
	Backtests *service.Backtests
}

func (h *BacktestHandler) Register(r *gin.Engine) {
	g := r.Group("/api/backtests")
	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/compare", h.compare)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)
	g.GET("/:id/trades", h.trades)
	g.GET("/:id/snapshots", h.snapshots)
}

func (h *BacktestHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListBacktestsParams{
		Limit:   limit,
		Offset:  offset,
		Status:  strQueryPtr(c, "status"),
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, total, err := h.Backtests.List(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *BacktestHandler) create(c *gin.Context) {
	var req service.BacktestCreateInput
	if err := decodeStrict(c, &req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	row, err := h.Backtests.Create(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, row, nil)
}

func (h *BacktestHandler) get(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	row, err := h.Backtests.Get(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "backtest not found", nil)
		return
	}
	Ok(c, row, nil)
}

func (h *BacktestHandler) remove(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Backtests.Delete(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}

func (h *BacktestHandler) trades(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Backtests.Trades(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *BacktestHandler) snapshots(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Backtests.Snapshots(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *BacktestHandler) compare(c *gin.Context) {
	var req struct {
		IDs []uint64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	out, err := h.Backtests.Compare(c.Request.Context(), req.IDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}
