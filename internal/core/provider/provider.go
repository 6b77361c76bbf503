// Package provider 定義外部食物、條碼與食譜資料來源的能力介面，以及各來源共用的資料型別。
//
// 各供應商的實作位於子套件；引擎只依賴這裡的介面。
package provider

import (
	"context"

	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
)

// Source 資料來源
type Source string

const (
	SourceFatSecret     Source = "FatSecret"
	SourceUSDA          Source = "USDA"
	SourceOpenFoodFacts Source = "OpenFoodFacts"
	SourceEdamam        Source = "Edamam"
)

// FoodType 食物類型過濾
type FoodType string

const (
	FoodTypeAny     FoodType = ""
	FoodTypeBrand   FoodType = "Brand"
	FoodTypeGeneric FoodType = "Generic"
)

// Food 供應商回傳的食物；Raw 為 nil 代表該筆沒有營養資料
type Food struct {
	ID       string
	Name     string
	Brand    string
	Category string
	Image    string
	Type     string
	Source   Source
	Basis    nutrition.Basis
	Raw      nutrition.Raw
}

// HasNutrition 是否帶有營養資料
func (f *Food) HasNutrition() bool {
	return f != nil && f.Raw != nil
}

// FoodSearcher 以文字搜尋食物
type FoodSearcher interface {
	SearchFoods(ctx context.Context, query string, limit int, foodType FoodType) ([]Food, error)
}

// FoodDetailer 以 ID 取得完整食物資料
type FoodDetailer interface {
	FoodDetails(ctx context.Context, id string) (*Food, error)
}

// BarcodeLookup 以條碼查詢商品，找不到時回傳 nil, nil
type BarcodeLookup interface {
	LookupBarcode(ctx context.Context, code string) (*Food, error)
}

// NutrientFilter 每餐營養素範圍
type NutrientFilter struct {
	Code nutrition.NutrientCode
	Min  *float64
	Max  *float64
}

// EdamamQuery 健康標籤與菜系導向的食譜搜尋條件
type EdamamQuery struct {
	MealType    model.MealSlot
	Cuisines    []string
	Health      []string
	CalorieMin  float64
	CalorieMax  float64
	Nutrients   []NutrientFilter
	RandomBatch int
}

// EdamamRecipeSearch 健康標籤與菜系導向的食譜搜尋
type EdamamRecipeSearch interface {
	SearchRecipes(ctx context.Context, q EdamamQuery) ([]RecipeCandidate, error)
}

// FatSecretRecipeQuery 熱量區間與營養百分比導向的食譜搜尋條件
type FatSecretRecipeQuery struct {
	RecipeType         string
	CaloriesFrom       float64
	CaloriesTo         float64
	ProteinPercentFrom *float64
	MustHaveImages     bool
	PageNumber         int
	MaxResults         int
}

// FatSecretRecipeSearch 熱量區間與營養百分比導向的食譜搜尋，需再以 ID 取得詳細資料
type FatSecretRecipeSearch interface {
	SearchRecipes(ctx context.Context, q FatSecretRecipeQuery) ([]RecipeCandidate, error)
	RecipeDetails(ctx context.Context, id string) (*RecipeCandidate, error)
}

// RecipeCandidate 供應商的食譜，尚未寫入本地快取
type RecipeCandidate struct {
	ID           string
	ExternalID   string
	Name         string
	Description  string
	Instructions string
	Image        string
	SourceHost   string
	SourceURL    string
	PrepTime     int
	Tags         []string
	Ingredients  []model.Ingredient
	Nutrition    nutrition.Nutrition
	Source       Source
}
