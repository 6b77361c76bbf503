// Package plan 餐食計畫 API。
package plan

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutriguard/internal/api/handlers"
	"nutriguard/internal/core/model"
	"nutriguard/internal/pkg/common"
)

// Planner 餐食計畫服務
type Planner interface {
	Generate(ctx context.Context, userID string, date time.Time) (*model.Plan, error)
	GeneratePlans(ctx context.Context, userID string, start time.Time, days int) ([]*model.Plan, error)
	GetPlan(ctx context.Context, userID string, date time.Time) (*model.Plan, error)
	ListPlans(ctx context.Context, userID string, from, to time.Time) ([]model.Plan, error)
	SwapMeal(ctx context.Context, userID string, date time.Time, slot model.MealSlot) (*model.Plan, error)
	RemoveMeal(ctx context.Context, userID string, date time.Time, slot model.MealSlot) (*model.Plan, error)
	UpdateMealStatus(ctx context.Context, userID string, date time.Time, slot model.MealSlot, status model.MealStatus) (*model.Plan, error)
}

// GenerateRequest 產生計畫；days 省略時只產生一天
type GenerateRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
	Days   int    `json:"days,omitempty"`
}

// StatusRequest 更新餐點狀態
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler 餐食計畫處理器
type Handler struct {
	planner Planner
}

// NewHandler 創建餐食計畫處理器
func NewHandler(planner Planner) *Handler {
	return &Handler{planner: planner}
}

// Generate 處理 POST /plans/generate
func (h *Handler) Generate(c *gin.Context) {
	requestID := handlers.RequestID(c)

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		handlers.BadRequest(c, "Invalid request format")
		return
	}
	date, err := handlers.ParseDate(req.Date)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if req.Days <= 1 {
		p, err := h.planner.Generate(c.Request.Context(), req.UserID, date)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
		return
	}

	plans, err := h.planner.GeneratePlans(c.Request.Context(), req.UserID, date, req.Days)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	common.LogInfo("多日計畫已產生",
		zap.String("request_id", requestID),
		zap.String("user_id", req.UserID),
		zap.Int("days", len(plans)),
	)
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// List 處理 GET /plans/:userId?from=&to=
func (h *Handler) List(c *gin.Context) {
	from, err := handlers.ParseDate(c.Query("from"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	to := from
	if raw := c.Query("to"); raw != "" {
		if to, err = handlers.ParseDate(raw); err != nil {
			handlers.RespondError(c, err)
			return
		}
	}

	plans, err := h.planner.ListPlans(c.Request.Context(), c.Param("userId"), from, to)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// target 解析路徑中的使用者與日期
func target(c *gin.Context) (string, time.Time, bool) {
	date, err := handlers.ParseDate(c.Param("date"))
	if err != nil {
		handlers.RespondError(c, err)
		return "", time.Time{}, false
	}
	return c.Param("userId"), date, true
}

// Get 處理 GET /plans/:userId/:date
func (h *Handler) Get(c *gin.Context) {
	userID, date, ok := target(c)
	if !ok {
		return
	}
	p, err := h.planner.GetPlan(c.Request.Context(), userID, date)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Swap 處理 POST /plans/:userId/:date/meals/:slot/swap
func (h *Handler) Swap(c *gin.Context) {
	userID, date, ok := target(c)
	if !ok {
		return
	}
	slot, ok := handlers.ParseSlot(c)
	if !ok {
		return
	}
	p, err := h.planner.SwapMeal(c.Request.Context(), userID, date, slot)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Remove 處理 DELETE /plans/:userId/:date/meals/:slot
func (h *Handler) Remove(c *gin.Context) {
	userID, date, ok := target(c)
	if !ok {
		return
	}
	slot, ok := handlers.ParseSlot(c)
	if !ok {
		return
	}
	p, err := h.planner.RemoveMeal(c.Request.Context(), userID, date, slot)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateStatus 處理 PATCH /plans/:userId/:date/meals/:slot/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, date, ok := target(c)
	if !ok {
		return
	}
	slot, ok := handlers.ParseSlot(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "Invalid request format")
		return
	}
	status, err := model.ParseMealStatus(req.Status)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	p, err := h.planner.UpdateMealStatus(c.Request.Context(), userID, date, slot, status)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
