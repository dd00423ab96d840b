package handler

import (
	"github.com/gin-gonic/gin"

	"stocksignal/internal/service"
)

type RecommendationHandler struct {
	Recommender *service.Recommender
}

func (h *RecommendationHandler) Register(r *gin.Engine) {
	r.GET("/api/recommendations", h.list)
}

func (h *RecommendationHandler) list(c *gin.Context) {
	out, err := h.Recommender.Build(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}
