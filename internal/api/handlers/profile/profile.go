// Package profile 使用者飲食偏好與營養限制 API。
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutriguard/internal/api/handlers"
	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/pkg/common"
)

// Store 使用者資料儲存
type Store interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	Save(ctx context.Context, p *model.Profile) (*model.Profile, error)
}

// UpdateRequest 覆寫使用者資料
type UpdateRequest struct {
	FavoriteCuisines []string          `json:"favorite_cuisines"`
	Limits           *nutrition.Limits `json:"limits"`
}

// Handler 使用者資料處理器
type Handler struct {
	store Store
}

// NewHandler 創建使用者資料處理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Get 處理 GET /users/:id/profile
func (h *Handler) Get(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			err = common.Wrap(common.ErrProfileNotFound, err)
		}
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Put 處理 PUT /users/:id/profile
func (h *Handler) Put(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "Invalid request format")
		return
	}
	if err := validateLimits(req.Limits); err != nil {
		handlers.RespondError(c, err)
		return
	}

	saved, err := h.store.Save(c.Request.Context(), &model.Profile{
		UserID:           c.Param("id"),
		FavoriteCuisines: req.FavoriteCuisines,
		Limits:           req.Limits,
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("使用者資料已更新",
		zap.String("request_id", handlers.RequestID(c)),
		zap.String("user_id", saved.UserID),
	)
	c.JSON(http.StatusOK, saved)
}

func validateLimits(l *nutrition.Limits) error {
	if l == nil {
		return nil
	}
	for code, r := range l.Nutrients {
		if !code.Valid() {
			return common.NewValidationError("unknown nutrient code " + string(code))
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return common.NewValidationError("min exceeds max for " + string(code))
		}
	}
	for _, term := range l.AvoidIngredients {
		if strings.TrimSpace(term) == "" {
			return common.NewValidationError("avoid_ingredients must not contain empty terms")
		}
	}
	if dc := l.DailyCalories; dc != nil && dc.Max > 0 && dc.Min > dc.Max {
		return common.NewValidationError("daily_calories min exceeds max")
	}
	return nil
}
