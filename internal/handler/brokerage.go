package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/brokerage"
	"stocksignal/internal/service"
)

type BrokerageHandler struct {
	Brokerage *service.Brokerage
	Settings  *service.Settings
}

func (h *BrokerageHandler) Register(r *gin.Engine) {
	g := r.Group("/api/brokerage")
	g.GET("/config", h.getConfig)
	g.PUT("/config", h.updateConfig)
	g.POST("/connect", h.connect)
	g.GET("/balance", h.balance)
	g.GET("/positions", h.positions)
	g.POST("/orders", h.sendOrder)
	g.DELETE("/orders/:id", h.cancelOrder)
}

func (h *BrokerageHandler) getConfig(c *gin.Context) {
	cfg, err := h.Settings.BrokerageConfig(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	// never echo the stored password
	cfg.APIPassword = ""
	Ok(c, cfg, nil)
}

func (h *BrokerageHandler) updateConfig(c *gin.Context) {
	var req brokerage.Config
	if err := decodeStrict(c, &req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Settings.UpdateBrokerageConfig(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	req.APIPassword = ""
	Ok(c, req, nil)
}

func (h *BrokerageHandler) connect(c *gin.Context) {
	if err := h.Brokerage.Connect(c.Request.Context()); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"connected": true}, nil)
}

func (h *BrokerageHandler) balance(c *gin.Context) {
	out, err := h.Brokerage.Balance(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *BrokerageHandler) positions(c *gin.Context) {
	out, err := h.Brokerage.Positions(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *BrokerageHandler) sendOrder(c *gin.Context) {
	var req brokerage.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	out, err := h.Brokerage.SendOrder(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *BrokerageHandler) cancelOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		Error(c, http.StatusBadRequest, "invalid order id", nil)
		return
	}
	out, err := h.Brokerage.CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}
