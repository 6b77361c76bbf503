// Package food 食物搜尋、文字分析與條碼分析 API。
package food

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutriguard/internal/api/handlers"
	foodEngine "nutriguard/internal/core/food"
	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/pkg/common"
)

// Analyzer 食物解析引擎
type Analyzer interface {
	AnalyzeByText(ctx context.Context, query string, limits *nutrition.Limits, foodType provider.FoodType) (*foodEngine.Result, error)
	AnalyzeByBarcode(ctx context.Context, code string, limits *nutrition.Limits) (*foodEngine.Result, error)
	Search(ctx context.Context, query string, foodType provider.FoodType) []foodEngine.Suggestion
}

// ProfileReader 讀取使用者營養限制
type ProfileReader interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
}

// AnalyzeRequest 文字分析請求；limits 優先於 user_id 的設定
type AnalyzeRequest struct {
	Query  string            `json:"query" binding:"required"`
	Type   string            `json:"type,omitempty"` // Brand | Generic
	UserID string            `json:"user_id,omitempty"`
	Limits *nutrition.Limits `json:"limits,omitempty"`
}

// BarcodeRequest 條碼分析請求
type BarcodeRequest struct {
	Code   string            `json:"code" binding:"required"`
	UserID string            `json:"user_id,omitempty"`
	Limits *nutrition.Limits `json:"limits,omitempty"`
}

// Handler 食物 API 處理器
type Handler struct {
	engine   Analyzer
	profiles ProfileReader
}

// NewHandler 創建食物 API 處理器
func NewHandler(engine Analyzer, profiles ProfileReader) *Handler {
	return &Handler{engine: engine, profiles: profiles}
}

func parseFoodType(s string) (provider.FoodType, error) {
	switch {
	case s == "":
		return provider.FoodTypeAny, nil
	case strings.EqualFold(s, string(provider.FoodTypeBrand)):
		return provider.FoodTypeBrand, nil
	case strings.EqualFold(s, string(provider.FoodTypeGeneric)):
		return provider.FoodTypeGeneric, nil
	}
	return "", common.NewValidationError("type must be Brand or Generic")
}

// limits 請求帶的限制優先，其次是使用者資料；都沒有時不評分
func (h *Handler) limits(ctx context.Context, inline *nutrition.Limits, userID string) (*nutrition.Limits, error) {
	if inline != nil {
		return inline, nil
	}
	if userID == "" || h.profiles == nil {
		return nil, nil
	}
	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p.Limits, nil
}

// Search 處理 GET /food/search 自動完成
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		handlers.BadRequest(c, "q is required")
		return
	}
	foodType, err := parseFoodType(c.Query("type"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	suggestions := h.engine.Search(c.Request.Context(), query, foodType)
	c.JSON(http.StatusOK, gin.H{"results": suggestions})
}

// Analyze 處理 POST /food/analyze
func (h *Handler) Analyze(c *gin.Context) {
	requestID := handlers.RequestID(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		handlers.BadRequest(c, "Invalid request format")
		return
	}
	foodType, err := parseFoodType(req.Type)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	limits, err := h.limits(c.Request.Context(), req.Limits, req.UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	result, err := h.engine.AnalyzeByText(c.Request.Context(), req.Query, limits, foodType)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("食物分析完成",
		zap.String("request_id", requestID),
		zap.String("query", req.Query),
		zap.Bool("found", result.Found()),
	)
	c.JSON(http.StatusOK, result)
}

// Barcode 處理 POST /food/barcode
func (h *Handler) Barcode(c *gin.Context) {
	requestID := handlers.RequestID(c)

	var req BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		handlers.BadRequest(c, "Invalid request format")
		return
	}
	limits, err := h.limits(c.Request.Context(), req.Limits, req.UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	result, err := h.engine.AnalyzeByBarcode(c.Request.Context(), req.Code, limits)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("條碼分析完成",
		zap.String("request_id", requestID),
		zap.String("code", req.Code),
		zap.Bool("found", result.Found()),
	)
	c.JSON(http.StatusOK, result)
}
