// Package food 依固定的供應商順序解析食物，標準化營養資料後交給評分引擎產生判定。
package food

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"nutriguard/internal/core/conflict"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/pkg/common"
)

const (
	// 文字分析時每個供應商取回的候選數
	analyzeLimit = 5
	// 自動完成的候選數
	suggestLimit = 10

	// NoResultsMessage 所有供應商都沒有可用結果
	NoResultsMessage = "No results found"
)

// Alternative 其他候選
type Alternative struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Result 單次查詢的解析結果；Source 為 nil 代表查無資料
type Result struct {
	Source       *provider.Source     `json:"source"`
	Name         string               `json:"name,omitempty"`
	Brand        string               `json:"brand,omitempty"`
	Category     string               `json:"category,omitempty"`
	Image        string               `json:"image,omitempty"`
	Basis        nutrition.Basis      `json:"basis,omitempty"`
	Nutrition    *nutrition.Nutrition `json:"nutrition,omitempty"`
	Verdict      *conflict.Verdict    `json:"verdict"`
	OriginalID   string               `json:"originalId,omitempty"`
	Alternatives []Alternative        `json:"alternatives,omitempty"`
	Message      string               `json:"message,omitempty"`
	Query        string               `json:"query,omitempty"`
}

// Found 是否解析到食物
func (r *Result) Found() bool {
	return r != nil && r.Source != nil
}

// Suggestion 自動完成的輕量候選
type Suggestion struct {
	Name   string          `json:"name"`
	Brand  string          `json:"brand,omitempty"`
	Type   string          `json:"type,omitempty"`
	ID     string          `json:"id"`
	Source provider.Source `json:"source"`
	Image  string          `json:"image,omitempty"`
}

// Engine 食物解析引擎
type Engine struct {
	primary        provider.FoodSearcher
	primaryDetails provider.FoodDetailer
	fallback       provider.FoodSearcher
	barcode        provider.BarcodeLookup
}

// NewEngine 創建食物解析引擎：primary 為品牌/通用食物搜尋（需另取詳細資料），
// fallback 為政府通用食物資料庫，barcode 為條碼資料庫
func NewEngine(primary provider.FoodSearcher, primaryDetails provider.FoodDetailer, fallback provider.FoodSearcher, barcode provider.BarcodeLookup) *Engine {
	return &Engine{
		primary:        primary,
		primaryDetails: primaryDetails,
		fallback:       fallback,
		barcode:        barcode,
	}
}

// AnalyzeByText 以文字解析食物並評分；查無資料不是錯誤
func (e *Engine) AnalyzeByText(ctx context.Context, query string, limits *nutrition.Limits, foodType provider.FoodType) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewValidationError("query is required")
	}

	if res := e.fromPrimary(ctx, query, limits, foodType); res != nil {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res := e.fromFallback(ctx, query, limits, foodType); res != nil {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	common.LogInfo("所有供應商皆無結果", zap.String("query", query))
	return &Result{Message: NoResultsMessage, Query: query}, nil
}

func (e *Engine) fromPrimary(ctx context.Context, query string, limits *nutrition.Limits, foodType provider.FoodType) *Result {
	if e.primary == nil || e.primaryDetails == nil {
		return nil
	}

	foods, err := e.primary.SearchFoods(ctx, query, analyzeLimit, foodType)
	if err != nil {
		common.LogWarn("主要食物供應商搜尋失敗，視為無結果", zap.String("query", query), zap.Error(err))
		return nil
	}
	if len(foods) == 0 {
		return nil
	}

	detail, err := e.primaryDetails.FoodDetails(ctx, foods[0].ID)
	if err != nil {
		common.LogWarn("主要食物供應商詳細資料失敗，改用備援", zap.String("id", foods[0].ID), zap.Error(err))
		return nil
	}
	if !detail.HasNutrition() {
		common.LogInfo("主要食物供應商無營養資料，改用備援", zap.String("id", foods[0].ID))
		return nil
	}
	return buildResult(*detail, limits, nil)
}

func (e *Engine) fromFallback(ctx context.Context, query string, limits *nutrition.Limits, foodType provider.FoodType) *Result {
	if e.fallback == nil {
		return nil
	}

	foods, err := e.fallback.SearchFoods(ctx, query, analyzeLimit, foodType)
	if err != nil {
		common.LogWarn("備援食物供應商搜尋失敗，視為無結果", zap.String("query", query), zap.Error(err))
		return nil
	}
	if len(foods) == 0 {
		return nil
	}

	alternatives := make([]Alternative, 0, len(foods)-1)
	for _, f := range foods[1:] {
		alternatives = append(alternatives, Alternative{Name: f.Name, ID: f.ID})
	}
	return buildResult(foods[0], limits, alternatives)
}

// AnalyzeByBarcode 以條碼查詢；查無商品時把條碼當作文字查詢
func (e *Engine) AnalyzeByBarcode(ctx context.Context, code string, limits *nutrition.Limits) (*Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, common.NewValidationError("barcode is required")
	}

	if e.barcode != nil {
		f, err := e.barcode.LookupBarcode(ctx, code)
		switch {
		case err != nil:
			common.LogWarn("條碼供應商查詢失敗，視為無結果", zap.String("code", code), zap.Error(err))
		case f != nil:
			return buildResult(*f, limits, nil), nil
		}
	}

	common.LogInfo("條碼查無商品，改以文字查詢", zap.String("code", code))
	return e.AnalyzeByText(ctx, code, limits, provider.FoodTypeAny)
}

// Search 自動完成，只查詢主要供應商；任何失敗都回傳空清單
func (e *Engine) Search(ctx context.Context, query string, foodType provider.FoodType) []Suggestion {
	suggestions := []Suggestion{}
	query = strings.TrimSpace(query)
	if query == "" || e.primary == nil {
		return suggestions
	}

	foods, err := e.primary.SearchFoods(ctx, query, suggestLimit, foodType)
	if err != nil {
		common.LogWarn("自動完成搜尋失敗", zap.String("query", query), zap.Error(err))
		return suggestions
	}
	for _, f := range foods {
		suggestions = append(suggestions, Suggestion{
			Name:   f.Name,
			Brand:  f.Brand,
			Type:   f.Type,
			ID:     f.ID,
			Source: f.Source,
			Image:  f.Image,
		})
	}
	return suggestions
}

func buildResult(f provider.Food, limits *nutrition.Limits, alternatives []Alternative) *Result {
	n := nutrition.Normalize(f.Raw)
	source := f.Source
	res := &Result{
		Source:       &source,
		Name:         f.Name,
		Brand:        f.Brand,
		Category:     f.Category,
		Image:        f.Image,
		Basis:        f.Basis,
		Nutrition:    &n,
		OriginalID:   f.ID,
		Alternatives: alternatives,
	}
	if limits != nil {
		v := conflict.Score(n, f.Basis, f.Name, limits)
		res.Verdict = &v
	}
	return res
}
