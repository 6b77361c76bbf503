// Package edamam Edamam Recipe Search v2 客戶端。
package edamam

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// ExternalIDPrefix Edamam 食譜在本地快取中的命名空間
const ExternalIDPrefix = "edamam_"

// Client Edamam 客戶端
type Client struct {
	cfg  config.EdamamConfig
	http *resty.Client
}

type searchResponse struct {
	From  int   `json:"from"`
	To    int   `json:"to"`
	Count int   `json:"count"`
	Hits  []hit `json:"hits"`
}

type hit struct {
	Recipe recipe `json:"recipe"`
}

type recipeIngredient struct {
	Text     string             `json:"text"`
	Quantity provider.FlexFloat `json:"quantity"`
	Measure  string             `json:"measure"`
	Food     string             `json:"food"`
}

type recipe struct {
	URI            string                              `json:"uri"`
	Label          string                              `json:"label"`
	Image          string                              `json:"image"`
	Source         string                              `json:"source"`
	URL            string                              `json:"url"`
	Yield          provider.FlexFloat                  `json:"yield"`
	TotalTime      provider.FlexFloat                  `json:"totalTime"`
	DietLabels     []string                            `json:"dietLabels"`
	CuisineType    []string                            `json:"cuisineType"`
	MealType       []string                            `json:"mealType"`
	DishType       []string                            `json:"dishType"`
	Ingredients    []recipeIngredient                  `json:"ingredients"`
	TotalNutrients map[string]nutrition.EdamamQuantity `json:"totalNutrients"`
}

// NewClient 創建 Edamam 客戶端
func NewClient(cfg config.EdamamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserID != "" {
		client.SetHeader("Edamam-Account-User", cfg.UserID)
	}

	return &Client{cfg: cfg, http: client}
}

// SearchRecipes /api/recipes/v2，使用 random=true 取得隨機批次
func (c *Client) SearchRecipes(ctx context.Context, q provider.EdamamQuery) ([]provider.RecipeCandidate, error) {
	params := url.Values{}
	params.Set("type", "public")
	params.Set("app_id", c.cfg.AppID)
	params.Set("app_key", c.cfg.AppKey)
	params.Set("random", "true")
	if q.MealType != "" {
		params.Set("mealType", string(q.MealType))
	}
	for _, h := range q.Health {
		params.Add("health", h)
	}
	for _, cuisine := range q.Cuisines {
		params.Add("cuisineType", cuisine)
	}
	if cal := rangeParam(q.CalorieMin, q.CalorieMax); cal != "" {
		params.Set("calories", cal)
	}
	for _, nf := range q.Nutrients {
		var min, max float64
		if nf.Min != nil {
			min = *nf.Min
		}
		if nf.Max != nil {
			max = *nf.Max
		}
		if v := rangeParam(min, max); v != "" {
			params.Set(fmt.Sprintf("nutrients[%s]", nf.Code), v)
		}
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/api/recipes/v2")
	common.LogProviderCall("edamam", "recipes.search", time.Since(start), err)
	if err != nil {
		return nil, common.Wrap(common.ErrProviderDown, fmt.Errorf("edamam search failed: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.Wrap(common.ErrProviderDown, fmt.Errorf("edamam search returned %d", resp.StatusCode()))
	}

	var out searchResponse
	if err := common.ParseJSONBytes(resp.Body(), &out); err != nil {
		return nil, common.Wrap(common.ErrMalformedResponse, fmt.Errorf("edamam search: %w", err))
	}

	hits := out.Hits
	if q.RandomBatch > 0 && len(hits) > q.RandomBatch {
		hits = hits[:q.RandomBatch]
	}
	candidates := make([]provider.RecipeCandidate, 0, len(hits))
	for _, h := range hits {
		id := RecipeID(h.Recipe.URI)
		if id == "" {
			continue
		}
		candidates = append(candidates, h.Recipe.toCandidate(id))
	}
	return candidates, nil
}

// RecipeID 由 recipe URI 取出 #recipe_ 之後的穩定 ID
func RecipeID(uri string) string {
	const marker = "#recipe_"
	i := strings.LastIndex(uri, marker)
	if i < 0 {
		return ""
	}
	return uri[i+len(marker):]
}

func (r recipe) toCandidate(id string) provider.RecipeCandidate {
	rc := provider.RecipeCandidate{
		ID:          id,
		ExternalID:  ExternalIDPrefix + id,
		Name:        r.Label,
		Description: r.Source,
		Image:       r.Image,
		SourceURL:   r.URL,
		SourceHost:  host(r.URL),
		PrepTime:    r.TotalTime.Int(),
		Source:      provider.SourceEdamam,
		Nutrition: nutrition.Normalize(nutrition.EdamamRecipe{
			TotalNutrients: r.TotalNutrients,
			Yield:          float64(r.Yield),
		}),
	}
	if r.URL != "" {
		rc.Instructions = "Full instructions: " + r.URL
	}
	for _, group := range [][]string{r.MealType, r.CuisineType, r.DishType, r.DietLabels} {
		rc.Tags = append(rc.Tags, group...)
	}
	for _, ing := range r.Ingredients {
		rc.Ingredients = append(rc.Ingredients, model.Ingredient{
			Item:    ing.Food,
			Measure: measure(ing),
		})
	}
	return rc
}

func measure(ing recipeIngredient) string {
	if ing.Quantity > 0 && ing.Measure != "" && ing.Measure != "<unit>" {
		return strconv.FormatFloat(float64(ing.Quantity), 'f', -1, 64) + " " + ing.Measure
	}
	return ing.Text
}

// rangeParam Edamam 範圍格式：min-max、min+ 或 max
func rangeParam(min, max float64) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("%.0f-%.0f", min, max)
	case min > 0:
		return fmt.Sprintf("%.0f+", min)
	case max > 0:
		return fmt.Sprintf("%.0f", max)
	}
	return ""
}

func host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
