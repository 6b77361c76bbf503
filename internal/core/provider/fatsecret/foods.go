package fatsecret

import (
	"context"
	"strconv"
	"strings"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
)

type foodImage struct {
	ImageURL  string `json:"image_url"`
	ImageType string `json:"image_type"`
}

type food struct {
	FoodID     provider.FlexString `json:"food_id"`
	FoodName   string              `json:"food_name"`
	FoodType   string              `json:"food_type"`
	BrandName  string              `json:"brand_name"`
	FoodImages *struct {
		FoodImage provider.OneOrMany[foodImage] `json:"food_image"`
	} `json:"food_images"`
	FoodSubCategories *struct {
		FoodSubCategory provider.OneOrMany[string] `json:"food_sub_category"`
	} `json:"food_sub_categories"`
	Servings *struct {
		Serving provider.OneOrMany[nutrition.Fields] `json:"serving"`
	} `json:"servings"`
}

type foodsSearchResponse struct {
	FoodsSearch struct {
		Results *struct {
			Food provider.OneOrMany[food] `json:"food"`
		} `json:"results"`
	} `json:"foods_search"`
}

type foodGetResponse struct {
	Food *food `json:"food"`
}

// SearchFoods foods.search.v3
func (c *Client) SearchFoods(ctx context.Context, query string, limit int, foodType provider.FoodType) ([]provider.Food, error) {
	params := map[string]string{
		"search_expression":   query,
		"max_results":         strconv.Itoa(limit),
		"page_number":         "0",
		"include_food_images": "true",
	}
	if foodType != provider.FoodTypeAny {
		params["food_type"] = strings.ToLower(string(foodType))
	}

	var out foodsSearchResponse
	if err := c.call(ctx, "foods.search.v3", params, &out); err != nil {
		return nil, err
	}
	if out.FoodsSearch.Results == nil {
		return nil, nil
	}

	foods := make([]provider.Food, 0, len(out.FoodsSearch.Results.Food))
	for _, f := range out.FoodsSearch.Results.Food {
		foods = append(foods, f.toFood())
	}
	return foods, nil
}

// FoodDetails food.get.v4
func (c *Client) FoodDetails(ctx context.Context, id string) (*provider.Food, error) {
	var out foodGetResponse
	params := map[string]string{
		"food_id":                id,
		"include_food_images":    "true",
		"include_sub_categories": "true",
	}
	if err := c.call(ctx, "food.get.v4", params, &out); err != nil {
		return nil, err
	}
	if out.Food == nil {
		return nil, nil
	}
	f := out.Food.toFood()
	return &f, nil
}

func (f food) toFood() provider.Food {
	out := provider.Food{
		ID:     f.FoodID.String(),
		Name:   f.FoodName,
		Brand:  f.BrandName,
		Type:   f.FoodType,
		Source: provider.SourceFatSecret,
		Basis:  nutrition.BasisPerServing,
	}
	if f.FoodImages != nil {
		if img, ok := f.FoodImages.FoodImage.First(); ok {
			out.Image = img.ImageURL
		}
	}
	if f.FoodSubCategories != nil {
		if cat, ok := f.FoodSubCategories.FoodSubCategory.First(); ok {
			out.Category = cat
		}
	}
	if f.Servings != nil {
		if serving, ok := defaultServing(f.Servings.Serving); ok {
			out.Raw = nutrition.FatSecretServing{Fields: serving}
		}
	}
	return out
}

// defaultServing 優先使用標記為預設的份量，否則取第一筆
func defaultServing(servings provider.OneOrMany[nutrition.Fields]) (nutrition.Fields, bool) {
	for _, s := range servings {
		if s.String("is_default") == "1" || s.Get("is_default") == 1 {
			return s, true
		}
	}
	return servings.First()
}
