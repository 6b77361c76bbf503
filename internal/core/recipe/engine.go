// Package recipe 依使用者偏好向兩個食譜供應商取得候選，寫入本地食譜快取；
// 供應商都沒有結果時退回本地隨機挑選。
package recipe

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// 固定的安全預設，不開放使用者設定
const healthAlcoholFree = "alcohol-free"

// 供應商的食譜分類
const (
	fatSecretBreakfast = "Breakfast"
	fatSecretMainDish  = "Main Dish"
)

// RecipeCache 本地食譜快取，查無資料時回傳 common.ErrNotFound
type RecipeCache interface {
	GetByExternalID(ctx context.Context, externalID string) (*model.Recipe, error)
	Upsert(ctx context.Context, r *model.Recipe) (*model.Recipe, error)
	FindRandomByTag(ctx context.Context, tag string) (*model.Recipe, error)
	FindRandom(ctx context.Context) (*model.Recipe, error)
}

// Engine 食譜來源引擎
type Engine struct {
	edamam    provider.EdamamRecipeSearch
	fatsecret provider.FatSecretRecipeSearch
	cache     RecipeCache
	rng       common.Rand
	cfg       config.RecipeConfig
}

// NewEngine 創建食譜來源引擎；任一供應商可為 nil，代表未設定
func NewEngine(edamam provider.EdamamRecipeSearch, fatsecret provider.FatSecretRecipeSearch, cache RecipeCache, rng common.Rand, cfg config.RecipeConfig) *Engine {
	if cfg.MealsPerDay <= 0 {
		cfg.MealsPerDay = 3
	}
	if cfg.CalorieTolerance <= 0 || cfg.CalorieTolerance >= 1 {
		cfg.CalorieTolerance = 0.3
	}
	if cfg.DefaultDailyCalories <= 0 {
		cfg.DefaultDailyCalories = 2000
	}
	if cfg.FatSecretMaxPage <= 0 {
		cfg.FatSecretMaxPage = 1
	}
	return &Engine{
		edamam:    edamam,
		fatsecret: fatsecret,
		cache:     cache,
		rng:       rng,
		cfg:       cfg,
	}
}

type strategy func(ctx context.Context, profile *model.Profile, slot model.MealSlot, excludeExternalID string) (*model.Recipe, error)

// FindOrCreateRecipe 為指定餐次取得一道食譜
//
// 每次呼叫擲硬幣決定先試哪個供應商，失敗再試另一個；兩者都沒有結果時，
// 先從本地快取挑選帶有餐次標籤的食譜，再退回整個快取。快取為空時回傳 nil, nil。
func (e *Engine) FindOrCreateRecipe(ctx context.Context, profile *model.Profile, slot model.MealSlot, excludeExternalID string) (*model.Recipe, error) {
	strategies := []strategy{e.fromEdamam, e.fromFatSecret}
	if !common.CoinFlip(e.rng) {
		strategies[0], strategies[1] = strategies[1], strategies[0]
	}

	for _, try := range strategies {
		r, err := try(ctx, profile, slot, excludeExternalID)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	common.LogInfo("食譜供應商皆無結果，改用本地快取", zap.String("slot", string(slot)))
	return e.fromLocal(ctx, slot)
}

func (e *Engine) fromLocal(ctx context.Context, slot model.MealSlot) (*model.Recipe, error) {
	r, err := e.cache.FindRandomByTag(ctx, string(slot))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	r, err = e.cache.FindRandom(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.LogWarn("本地食譜快取為空", zap.String("slot", string(slot)))
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (e *Engine) mealsPerDay() float64 {
	return float64(e.cfg.MealsPerDay)
}

func (e *Engine) mealCalories(limits *nutrition.Limits) float64 {
	return limits.CalorieTarget(e.cfg.DefaultDailyCalories) / e.mealsPerDay()
}

func profileLimits(p *model.Profile) *nutrition.Limits {
	if p == nil {
		return nil
	}
	return p.Limits
}

func profileCuisines(p *model.Profile) []string {
	if p == nil {
		return nil
	}
	return p.FavoriteCuisines
}

// edamamQuery 每日目標除以每日餐數得到每餐範圍
func (e *Engine) edamamQuery(profile *model.Profile, slot model.MealSlot) provider.EdamamQuery {
	limits := profileLimits(profile)
	meals := e.mealsPerDay()

	q := provider.EdamamQuery{
		MealType:    slot,
		Cuisines:    profileCuisines(profile),
		Health:      []string{healthAlcoholFree},
		RandomBatch: e.cfg.EdamamRandomBatch,
	}

	if limits != nil && limits.DailyCalories != nil && limits.DailyCalories.Max > 0 {
		q.CalorieMin = limits.DailyCalories.Min / meals
		q.CalorieMax = limits.DailyCalories.Max / meals
	} else {
		target := e.mealCalories(limits)
		q.CalorieMin = target * (1 - e.cfg.CalorieTolerance)
		q.CalorieMax = target * (1 + e.cfg.CalorieTolerance)
	}

	if limits != nil {
		for _, code := range nutrition.Codes {
			r, ok := limits.Nutrients[code]
			if !ok || (r.Min == nil && r.Max == nil) {
				continue
			}
			f := provider.NutrientFilter{Code: code}
			if r.Min != nil {
				f.Min = nutrition.Float(*r.Min / meals)
			}
			if r.Max != nil {
				f.Max = nutrition.Float(*r.Max / meals)
			}
			q.Nutrients = append(q.Nutrients, f)
		}
	}
	return q
}

func (e *Engine) fromEdamam(ctx context.Context, profile *model.Profile, slot model.MealSlot, excludeExternalID string) (*model.Recipe, error) {
	if e.edamam == nil {
		return nil, nil
	}

	q := e.edamamQuery(profile, slot)
	candidates, err := e.edamam.SearchRecipes(ctx, q)
	if err != nil {
		common.LogWarn("Edamam 食譜搜尋失敗，視為無結果", zap.String("slot", string(slot)), zap.Error(err))
		candidates = nil
	}
	if len(candidates) == 0 && len(q.Cuisines) > 0 {
		common.LogInfo("Edamam 無結果，放寬菜系條件重試", zap.String("slot", string(slot)))
		q.Cuisines = nil
		candidates, err = e.edamam.SearchRecipes(ctx, q)
		if err != nil {
			common.LogWarn("Edamam 食譜重試失敗，視為無結果", zap.String("slot", string(slot)), zap.Error(err))
			candidates = nil
		}
	}

	candidates = filterCandidates(candidates, excludeExternalID, e.cfg.DenylistedSource)
	if len(candidates) == 0 {
		return nil, nil
	}
	picked := candidates[e.rng.Intn(len(candidates))]
	return e.ingest(ctx, picked, slot)
}

// fatSecretRecipeType Lunch 與 Dinner 都對應到主菜分類
func fatSecretRecipeType(slot model.MealSlot) string {
	if slot == model.Breakfast {
		return fatSecretBreakfast
	}
	return fatSecretMainDish
}

// proteinPercent 每餐蛋白質下限佔熱量的百分比；超出 (5, 100) 時捨棄
func (e *Engine) proteinPercent(limits *nutrition.Limits, mealCalories float64) *float64 {
	proteinMin, ok := limits.Min(nutrition.Protein)
	if !ok || mealCalories <= 0 {
		return nil
	}
	pct := proteinMin / e.mealsPerDay() * 4 / mealCalories * 100
	if pct <= 5 || pct >= 100 {
		return nil
	}
	return &pct
}

func (e *Engine) fatSecretQuery(profile *model.Profile, slot model.MealSlot) provider.FatSecretRecipeQuery {
	limits := profileLimits(profile)
	target := e.mealCalories(limits)
	return provider.FatSecretRecipeQuery{
		RecipeType:         fatSecretRecipeType(slot),
		CaloriesFrom:       target * (1 - e.cfg.CalorieTolerance),
		CaloriesTo:         target * (1 + e.cfg.CalorieTolerance),
		ProteinPercentFrom: e.proteinPercent(limits, target),
		MustHaveImages:     true,
		PageNumber:         e.rng.Intn(e.cfg.FatSecretMaxPage),
		MaxResults:         e.cfg.FatSecretMaxResults,
	}
}

func (e *Engine) fromFatSecret(ctx context.Context, profile *model.Profile, slot model.MealSlot, excludeExternalID string) (*model.Recipe, error) {
	if e.fatsecret == nil {
		return nil, nil
	}

	candidates, err := e.fatsecret.SearchRecipes(ctx, e.fatSecretQuery(profile, slot))
	if err != nil {
		common.LogWarn("FatSecret 食譜搜尋失敗，視為無結果", zap.String("slot", string(slot)), zap.Error(err))
		return nil, nil
	}

	candidates = filterCandidates(candidates, excludeExternalID, "")
	if len(candidates) == 0 {
		return nil, nil
	}
	picked := candidates[e.rng.Intn(len(candidates))]

	cached, err := e.cached(ctx, picked.ExternalID)
	if err != nil || cached != nil {
		return cached, err
	}

	detail, err := e.fatsecret.RecipeDetails(ctx, picked.ID)
	if err != nil {
		common.LogWarn("FatSecret 食譜詳細資料失敗", zap.String("id", picked.ID), zap.Error(err))
		return nil, nil
	}
	if detail == nil {
		return nil, nil
	}
	return e.ingest(ctx, *detail, slot)
}

// filterCandidates 排除目前的食譜與黑名單來源
func filterCandidates(candidates []provider.RecipeCandidate, excludeExternalID, denylisted string) []provider.RecipeCandidate {
	out := make([]provider.RecipeCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ExternalID == "" {
			continue
		}
		if excludeExternalID != "" && c.ExternalID == excludeExternalID {
			continue
		}
		if deniedSource(c, denylisted) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// deniedSource 以來源網域或來源名稱比對黑名單，例如 food52.com 也會擋下名稱為 Food52 的來源
func deniedSource(c provider.RecipeCandidate, denylisted string) bool {
	denylisted = strings.ToLower(strings.TrimSpace(denylisted))
	if denylisted == "" {
		return false
	}
	host := strings.ToLower(c.SourceHost)
	if host == denylisted || strings.HasSuffix(host, "."+denylisted) {
		return true
	}
	name := denylisted
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.EqualFold(strings.ReplaceAll(c.Description, " ", ""), name)
}

func (e *Engine) cached(ctx context.Context, externalID string) (*model.Recipe, error) {
	r, err := e.cache.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	common.LogCacheHit("recipe", externalID)
	return r, nil
}

// ingest 已快取的食譜原樣回傳，否則寫入快取
func (e *Engine) ingest(ctx context.Context, c provider.RecipeCandidate, slot model.MealSlot) (*model.Recipe, error) {
	cached, err := e.cached(ctx, c.ExternalID)
	if err != nil || cached != nil {
		return cached, err
	}
	common.LogCacheMiss("recipe", c.ExternalID)
	return e.cache.Upsert(ctx, toRecipe(c, slot))
}

func toRecipe(c provider.RecipeCandidate, slot model.MealSlot) *model.Recipe {
	r := &model.Recipe{
		Name:         c.Name,
		Description:  c.Description,
		Instructions: c.Instructions,
		Image:        c.Image,
		Category:     slot,
		PrepTime:     c.PrepTime,
		Tags:         append([]string(nil), c.Tags...),
		Ingredients:  c.Ingredients,
		ExternalID:   c.ExternalID,
		SourceAPI:    string(c.Source),
	}
	if !r.HasTag(string(slot)) {
		r.Tags = append(r.Tags, string(slot))
	}
	r.SetNutrition(c.Nutrition)
	return r
}
