// Package handlers HTTP 處理器共用的回應與參數工具。
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutriguard/internal/core/model"
	"nutriguard/internal/pkg/common"
)

// DateLayout 路徑與請求中的日期格式
const DateLayout = "2006-01-02"

// RequestID 取得請求 ID
func RequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// RespondError 依錯誤類型回傳統一格式的錯誤響應
func RespondError(c *gin.Context, err error) {
	status := common.StatusOf(err)
	resp := common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: "服務器內部錯誤",
	}

	var ce *common.CustomError
	switch {
	case common.IsValidationError(err):
		resp.Code = common.ErrCodeInvalidRequest
		resp.Message = err.Error()
	case errors.As(err, &ce):
		resp.Code = ce.Code
		resp.Message = ce.Message
		if ce.Err != nil && gin.Mode() == gin.DebugMode {
			resp.Details = ce.Err.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("request_id", RequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, resp)
}

// BadRequest 請求格式錯誤
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
		Code:    common.ErrCodeInvalidRequest,
		Message: message,
	})
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, common.NewValidationError("date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// ParseSlot 解析路徑中的餐次
func ParseSlot(c *gin.Context) (model.MealSlot, bool) {
	slot, err := model.ParseMealSlot(c.Param("slot"))
	if err != nil {
		RespondError(c, err)
		return "", false
	}
	return slot, true
}
