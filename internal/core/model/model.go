// Package model 持久化的領域實體：食譜、餐食計畫與使用者飲食資料。
package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/pkg/common"
)

// MealSlot 餐次
type MealSlot string

const (
	Breakfast MealSlot = "Breakfast"
	Lunch     MealSlot = "Lunch"
	Dinner    MealSlot = "Dinner"
)

// MealSlots 一天的餐次，依序排列
var MealSlots = []MealSlot{Breakfast, Lunch, Dinner}

// ParseMealSlot 不分大小寫解析餐次
func ParseMealSlot(s string) (MealSlot, error) {
	for _, slot := range MealSlots {
		if strings.EqualFold(string(slot), s) {
			return slot, nil
		}
	}
	return "", common.Wrap(common.ErrInvalidMealSlot, fmt.Errorf("unknown meal slot %q", s))
}

// MealStatus 餐點狀態
type MealStatus string

const (
	StatusPending   MealStatus = "PENDING"
	StatusCompleted MealStatus = "COMPLETED"
	StatusSkipped   MealStatus = "SKIPPED"
	StatusSwapped   MealStatus = "SWAPPED"
)

// ParseMealStatus 解析餐點狀態
func ParseMealStatus(s string) (MealStatus, error) {
	switch st := MealStatus(strings.ToUpper(s)); st {
	case StatusPending, StatusCompleted, StatusSkipped, StatusSwapped:
		return st, nil
	}
	return "", common.Wrap(common.ErrInvalidMealStatus, fmt.Errorf("unknown meal status %q", s))
}

// Ingredient 食材與份量
type Ingredient struct {
	Item    string `json:"item"`
	Measure string `json:"measure"`
}

// Recipe 本地食譜快取，以 ExternalID 作為冪等鍵
type Recipe struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description"`
	Instructions string       `gorm:"type:text" json:"instructions"`
	Image        string       `json:"image"`
	Category     MealSlot     `gorm:"size:16;index" json:"category"`
	PrepTime     int          `json:"prepTime"`
	Calories     float64      `json:"calories"`
	Protein      float64      `json:"protein"`
	Carbs        float64      `json:"carbs"`
	Fat          float64      `json:"fat"`
	Sodium       float64      `json:"sodium"`
	Sugar        float64      `json:"sugar"`
	Fiber        float64      `json:"fiber"`
	Tags         []string     `gorm:"serializer:json" json:"tags"`
	Ingredients  []Ingredient `gorm:"serializer:json" json:"ingredients"`
	ExternalID   string       `gorm:"uniqueIndex;not null" json:"externalId"`
	SourceAPI    string       `gorm:"size:32" json:"sourceAPI"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// BeforeCreate 補上主鍵
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = common.GenerateUUID()
	}
	return nil
}

// HasTag 不分大小寫比對標籤
func (r *Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SetNutrition 寫入每份營養，持久化時四捨五入到小數一位
func (r *Recipe) SetNutrition(n nutrition.Nutrition) {
	r.Calories = common.Round(n.Calories, 0)
	r.Protein = common.Round(n.Protein, 1)
	r.Carbs = common.Round(n.Carbs, 1)
	r.Fat = common.Round(n.Fat, 1)
	r.Sodium = common.Round(n.Sodium, 1)
	r.Sugar = common.Round(n.Sugar, 1)
	r.Fiber = common.Round(n.Fiber, 1)
}

// Plan 使用者單日餐食計畫，(UserID, Date) 唯一
type Plan struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	UserID          string     `gorm:"not null;uniqueIndex:idx_plan_user_date;size:64" json:"userId"`
	Date            time.Time  `gorm:"not null;uniqueIndex:idx_plan_user_date" json:"date"`
	BreakfastID     *string    `gorm:"size:36" json:"breakfastId"`
	LunchID         *string    `gorm:"size:36" json:"lunchId"`
	DinnerID        *string    `gorm:"size:36" json:"dinnerId"`
	BreakfastStatus MealStatus `gorm:"size:16" json:"breakfastStatus"`
	LunchStatus     MealStatus `gorm:"size:16" json:"lunchStatus"`
	DinnerStatus    MealStatus `gorm:"size:16" json:"dinnerStatus"`

	Breakfast *Recipe `gorm:"foreignKey:BreakfastID" json:"breakfast,omitempty"`
	Lunch     *Recipe `gorm:"foreignKey:LunchID" json:"lunch,omitempty"`
	Dinner    *Recipe `gorm:"foreignKey:DinnerID" json:"dinner,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate 補上主鍵並預設餐點狀態
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = common.GenerateUUID()
	}
	for _, slot := range MealSlots {
		if p.Status(slot) == "" {
			p.SetStatus(slot, StatusPending)
		}
	}
	return nil
}

// MealID 取得餐次對應的食譜 ID
func (p *Plan) MealID(slot MealSlot) *string {
	switch slot {
	case Breakfast:
		return p.BreakfastID
	case Lunch:
		return p.LunchID
	case Dinner:
		return p.DinnerID
	}
	return nil
}

// SetMeal 設定餐次的食譜，nil 表示清空
func (p *Plan) SetMeal(slot MealSlot, recipeID *string) {
	switch slot {
	case Breakfast:
		p.BreakfastID = recipeID
		p.Breakfast = nil
	case Lunch:
		p.LunchID = recipeID
		p.Lunch = nil
	case Dinner:
		p.DinnerID = recipeID
		p.Dinner = nil
	}
}

// Status 取得餐點狀態
func (p *Plan) Status(slot MealSlot) MealStatus {
	switch slot {
	case Breakfast:
		return p.BreakfastStatus
	case Lunch:
		return p.LunchStatus
	case Dinner:
		return p.DinnerStatus
	}
	return ""
}

// SetStatus 設定餐點狀態
func (p *Plan) SetStatus(slot MealSlot, status MealStatus) {
	switch slot {
	case Breakfast:
		p.BreakfastStatus = status
	case Lunch:
		p.LunchStatus = status
	case Dinner:
		p.DinnerStatus = status
	}
}

// Profile 使用者飲食偏好與營養限制
type Profile struct {
	UserID           string            `gorm:"primaryKey;size:64" json:"userId"`
	FavoriteCuisines []string          `gorm:"serializer:json" json:"favoriteCuisines"`
	Limits           *nutrition.Limits `gorm:"serializer:json" json:"limits"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}
