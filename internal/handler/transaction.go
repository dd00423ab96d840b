package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/repository"
	"stocksignal/internal/service"
)

type TransactionHandler struct {
	Transactions *service.Transactions
}

func (h *TransactionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/transactions")
	g.GET("", h.list)
	g.POST("", h.create)
	g.DELETE("/:id", h.remove)
	g.GET("/portfolio", h.portfolio)
}

func (h *TransactionHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTransactionsParams{
		Limit:   limit,
		Offset:  offset,
		Code:    strQueryPtr(c, "code"),
		Account: strQueryPtr(c, "account"),
		Type:    strQueryPtr(c, "type"),
		OrderBy: "transaction_date",
		Asc:     boolPtr(false),
	}
	items, total, err := h.Transactions.List(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *TransactionHandler) create(c *gin.Context) {
	var req service.TransactionInput
	if err := decodeStrict(c, &req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tx, err := h.Transactions.Add(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, tx, nil)
}

func (h *TransactionHandler) remove(c *gin.Context) {
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Transactions.Delete(c.Request.Context(), id); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}

func (h *TransactionHandler) portfolio(c *gin.Context) {
	view, err := h.Transactions.Portfolio(c.Request.Context(), c.Query("account"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, view, nil)
}
