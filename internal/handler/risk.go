package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stocksignal/internal/service"
)

type RiskHandler struct {
	Risk     *service.Risk
	Settings *service.Settings
}

func (h *RiskHandler) Register(r *gin.Engine) {
	g := r.Group("/api/risk")
	g.GET("/rules", h.rules)
	g.PUT("/rules", h.updateRules)
	g.POST("/evaluate-trade", h.evaluateTrade)
	g.GET("/checklist/:code", h.checklist)
	g.GET("/suggest-prices/:code", h.suggestPrices)
}

func (h *RiskHandler) rules(c *gin.Context) {
	rules, err := h.Settings.RiskRules(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rules, nil)
}

func (h *RiskHandler) updateRules(c *gin.Context) {
	var patch service.RiskRulesPatch
	if err := decodeStrict(c, &patch); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	rules, err := h.Settings.UpdateRiskRules(c.Request.Context(), patch)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rules, nil)
}

func (h *RiskHandler) evaluateTrade(c *gin.Context) {
	var req struct {
		Code      string          `json:"code"`
		TradeType string          `json:"tradeType"`
		Quantity  int64           `json:"quantity"`
		Price     decimal.Decimal `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	eval, err := h.Risk.EvaluateTrade(c.Request.Context(), req.Code, req.TradeType, req.Quantity, req.Price)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, eval, nil)
}

func (h *RiskHandler) checklist(c *gin.Context) {
	items, err := h.Risk.Checklist(c.Request.Context(), c.Param("code"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *RiskHandler) suggestPrices(c *gin.Context) {
	items, err := h.Risk.SuggestPrices(c.Request.Context(), c.Param("code"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}
