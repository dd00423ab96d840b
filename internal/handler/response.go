package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stocksignal/internal/apperr"
	"stocksignal/internal/brokerage"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps the application error taxonomy onto HTTP statuses. Validation
// and insufficient-holding errors are the caller's fault; an unreachable
// brokerage gateway is reported distinctly from an order it rejected.
func Fail(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	var herr *apperr.InsufficientHoldingError
	var derr *apperr.InsufficientDataError
	var uerr *apperr.BrokerageUnavailableError
	var rerr *brokerage.RejectedError
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, verr.Error(), nil)
	case errors.As(err, &herr):
		Error(c, http.StatusUnprocessableEntity, herr.Error(), nil)
	case errors.As(err, &derr):
		Error(c, http.StatusUnprocessableEntity, derr.Error(), nil)
	case errors.As(err, &uerr):
		Error(c, http.StatusServiceUnavailable, uerr.Error(), nil)
	case errors.As(err, &rerr):
		Error(c, http.StatusBadGateway, rerr.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func uint64Param(c *gin.Context, key string) uint64 {
	val := strings.TrimSpace(c.Param(key))
	if val == "" {
		return 0
	}
	out, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0
	}
	return out
}

func strQueryPtr(c *gin.Context, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}
