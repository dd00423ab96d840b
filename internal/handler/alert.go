package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/repository"
	"stocksignal/internal/service"
)

type AlertHandler struct {
	Alerts *service.Alerts
}

func (h *AlertHandler) Register(r *gin.Engine) {
	g := r.Group("/api/alerts")
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.remove)
	g.GET("/history", h.history)
	g.POST("/read", h.markRead)
	g.GET("/unread-count", h.unreadCount)
}

func (h *AlertHandler) list(c *gin.Context) {
	params := repository.ListAlertsParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
		Code:   strQueryPtr(c, "code"),
	}
	items, err := h.Alerts.List(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *AlertHandler) create(c *gin.Context) {
	var req service.AlertInput
	if err := decodeStrict(c, &req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	alert, err := h.Alerts.Create(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, alert, nil)
}

func (h *AlertHandler) remove(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Alerts.Delete(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}

func (h *AlertHandler) history(c *gin.Context) {
	params := repository.ListAlertHistoryParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
		Code:   strQueryPtr(c, "code"),
	}
	if v := c.Query("unread"); v == "true" {
		params.Unread = boolPtr(true)
	}
	items, err := h.Alerts.History(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *AlertHandler) markRead(c *gin.Context) {
	var req struct {
		IDs []uint64 `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	count, err := h.Alerts.MarkRead(c.Request.Context(), req.IDs)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"marked": count}, nil)
}

func (h *AlertHandler) unreadCount(c *gin.Context) {
	count, err := h.Alerts.UnreadCount(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"count": count}, nil)
}
