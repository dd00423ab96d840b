package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/autotrade"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
	"stocksignal/internal/service"
)

type AutoTradeHandler struct {
	Repo     repository.Repository
	Settings *service.Settings
}

func (h *AutoTradeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/auto-trade")
	g.GET("/config", h.getConfig)
	g.PUT("/config", h.updateConfig)
	g.POST("/toggle", h.toggle)
	g.GET("/log", h.log)
	g.GET("/stocks", h.listStocks)
	g.GET("/stocks/:code", h.getStock)
	g.PUT("/stocks/:code", h.updateStock)
}

func (h *AutoTradeHandler) getConfig(c *gin.Context) {
	cfg, err := h.Settings.AutoTradeConfig(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, cfg, nil)
}

func (h *AutoTradeHandler) updateConfig(c *gin.Context) {
	var req autotrade.Config
	if err := decodeStrict(c, &req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Settings.UpdateAutoTradeConfig(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, req, nil)
}

// toggle flips only the enabled switch, leaving the stored config intact.
func (h *AutoTradeHandler) toggle(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	cfg, err := h.Settings.SetAutoTradeEnabled(c.Request.Context(), req.Enabled)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, cfg, nil)
}

func (h *AutoTradeHandler) log(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAutoTradeLogParams{
		Limit:        limit,
		Offset:       offset,
		Code:         strQueryPtr(c, "code"),
		ResultStatus: strQueryPtr(c, "status"),
		OrderBy:      "created_at",
		Asc:          boolPtr(false),
	}
	items, err := h.Repo.ListAutoTradeLog(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *AutoTradeHandler) listStocks(c *gin.Context) {
	items, err := h.Repo.ListAutoTradeStockSettings(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *AutoTradeHandler) getStock(c *gin.Context) {
	code := c.Param("code")
	item, err := h.Repo.GetAutoTradeStockSetting(c.Request.Context(), code)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		// an unknown code is simply disabled
		item = &models.AutoTradeStockSetting{Code: code, Enabled: false}
	}
	Ok(c, item, nil)
}

func (h *AutoTradeHandler) updateStock(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	item := &models.AutoTradeStockSetting{Code: c.Param("code"), Enabled: req.Enabled}
	if err := h.Repo.UpsertAutoTradeStockSetting(c.Request.Context(), item); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, item, nil)
}
