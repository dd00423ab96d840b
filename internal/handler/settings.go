package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/service"
)

type SettingsHandler struct {
	Settings *service.Settings
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	r.GET("/api/settings", h.get)
	r.PUT("/api/settings", h.update)
}

func (h *SettingsHandler) get(c *gin.Context) {
	out, err := h.Settings.IndicatorSettings(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

func (h *SettingsHandler) update(c *gin.Context) {
	var req service.IndicatorSettings
	if err := decodeStrict(c, &req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Settings.UpdateIndicatorSettings(c.Request.Context(), req); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, req, nil)
}

// decodeStrict rejects unknown fields so option-bag typos surface as 400s
// instead of silently keeping defaults.
func decodeStrict(c *gin.Context, out any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
