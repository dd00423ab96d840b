package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stocksignal/internal/service"
)

type StockHandler struct {
	Stocks *service.Stocks
	Logger *zap.Logger
}

func (h *StockHandler) Register(r *gin.Engine) {
	g := r.Group("/api/stocks")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:code", h.detail)
	g.DELETE("/:code", h.remove)
	g.GET("/:code/chart", h.chart)

	r.POST("/api/update", h.refreshAll)
}

func (h *StockHandler) list(c *gin.Context) {
	items, err := h.Stocks.List(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *StockHandler) create(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	stock, err := h.Stocks.Add(c.Request.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, stock, nil)
}

func (h *StockHandler) detail(c *gin.Context) {
	detail, err := h.Stocks.Detail(c.Request.Context(), c.Param("code"))
	if err != nil {
		Fail(c, err)
		return
	}
	if detail == nil {
		Error(c, http.StatusNotFound, "stock not found", nil)
		return
	}
	Ok(c, detail, nil)
}

func (h *StockHandler) remove(c *gin.Context) {
	if err := h.Stocks.Delete(c.Request.Context(), c.Param("code")); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}

func (h *StockHandler) chart(c *gin.Context) {
	points, err := h.Stocks.Chart(c.Request.Context(), c.Param("code"), c.Query("period"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, points, nil)
}

// refreshAll triggers the same pipeline the scheduler runs: pull bars and
// recompute signals for every watched code.
func (h *StockHandler) refreshAll(c *gin.Context) {
	if err := h.Stocks.RefreshAll(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"updated": true}, nil)
}
