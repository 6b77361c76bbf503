package fatsecret

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
)

// ExternalIDPrefix FatSecret 食譜在本地快取中的命名空間
const ExternalIDPrefix = "fatsecret_"

type recipeSummary struct {
	RecipeID          provider.FlexString `json:"recipe_id"`
	RecipeName        string              `json:"recipe_name"`
	RecipeDescription string              `json:"recipe_description"`
	RecipeImage       string              `json:"recipe_image"`
	RecipeTypes       *struct {
		RecipeType provider.OneOrMany[string] `json:"recipe_type"`
	} `json:"recipe_types"`
	RecipeNutrition nutrition.Fields `json:"recipe_nutrition"`
}

type recipesSearchResponse struct {
	Recipes struct {
		Recipe provider.OneOrMany[recipeSummary] `json:"recipe"`
	} `json:"recipes"`
}

type ingredient struct {
	FoodName               string             `json:"food_name"`
	IngredientDescription  string             `json:"ingredient_description"`
	NumberOfUnits          provider.FlexFloat `json:"number_of_units"`
	MeasurementDescription string             `json:"measurement_description"`
}

type direction struct {
	DirectionNumber      provider.FlexFloat `json:"direction_number"`
	DirectionDescription string             `json:"direction_description"`
}

type recipeDetail struct {
	RecipeID           provider.FlexString `json:"recipe_id"`
	RecipeName         string              `json:"recipe_name"`
	RecipeDescription  string              `json:"recipe_description"`
	RecipeURL          string              `json:"recipe_url"`
	PreparationTimeMin provider.FlexFloat  `json:"preparation_time_min"`
	CookingTimeMin     provider.FlexFloat  `json:"cooking_time_min"`
	RecipeImages       *struct {
		RecipeImage provider.OneOrMany[string] `json:"recipe_image"`
	} `json:"recipe_images"`
	RecipeTypes *struct {
		RecipeType provider.OneOrMany[string] `json:"recipe_type"`
	} `json:"recipe_types"`
	RecipeCategories *struct {
		RecipeCategory provider.OneOrMany[struct {
			Name string `json:"recipe_category_name"`
		}] `json:"recipe_category"`
	} `json:"recipe_categories"`
	ServingSizes *struct {
		Serving provider.OneOrMany[nutrition.Fields] `json:"serving"`
	} `json:"serving_sizes"`
	Ingredients *struct {
		Ingredient provider.OneOrMany[ingredient] `json:"ingredient"`
	} `json:"ingredients"`
	Directions *struct {
		Direction provider.OneOrMany[direction] `json:"direction"`
	} `json:"directions"`
}

type recipeGetResponse struct {
	Recipe *recipeDetail `json:"recipe"`
}

// SearchRecipes recipes.search.v3
func (c *Client) SearchRecipes(ctx context.Context, q provider.FatSecretRecipeQuery) ([]provider.RecipeCandidate, error) {
	params := map[string]string{
		"page_number": strconv.Itoa(q.PageNumber),
		"max_results": strconv.Itoa(q.MaxResults),
	}
	if q.RecipeType != "" {
		params["recipe_types"] = q.RecipeType
	}
	if q.CaloriesFrom > 0 {
		params["calories.from"] = formatFloat(q.CaloriesFrom)
	}
	if q.CaloriesTo > 0 {
		params["calories.to"] = formatFloat(q.CaloriesTo)
	}
	if q.ProteinPercentFrom != nil {
		params["protein_percentage.from"] = formatFloat(*q.ProteinPercentFrom)
	}
	if q.MustHaveImages {
		params["must_have_images"] = "true"
	}

	var out recipesSearchResponse
	if err := c.call(ctx, "recipes.search.v3", params, &out); err != nil {
		return nil, err
	}

	candidates := make([]provider.RecipeCandidate, 0, len(out.Recipes.Recipe))
	for _, r := range out.Recipes.Recipe {
		id := r.RecipeID.String()
		if id == "" {
			continue
		}
		rc := provider.RecipeCandidate{
			ID:          id,
			ExternalID:  ExternalIDPrefix + id,
			Name:        r.RecipeName,
			Description: r.RecipeDescription,
			Image:       r.RecipeImage,
			Source:      provider.SourceFatSecret,
			Nutrition:   nutrition.Normalize(nutrition.FatSecretServing{Fields: r.RecipeNutrition}),
		}
		if r.RecipeTypes != nil {
			rc.Tags = append(rc.Tags, r.RecipeTypes.RecipeType...)
		}
		candidates = append(candidates, rc)
	}
	return candidates, nil
}

// RecipeDetails recipe.v2，營養取第一個份量
func (c *Client) RecipeDetails(ctx context.Context, id string) (*provider.RecipeCandidate, error) {
	var out recipeGetResponse
	if err := c.call(ctx, "recipe.v2", map[string]string{"recipe_id": id}, &out); err != nil {
		return nil, err
	}
	if out.Recipe == nil {
		return nil, nil
	}
	r := out.Recipe

	rc := &provider.RecipeCandidate{
		ID:          r.RecipeID.String(),
		ExternalID:  ExternalIDPrefix + r.RecipeID.String(),
		Name:        r.RecipeName,
		Description: r.RecipeDescription,
		SourceURL:   r.RecipeURL,
		PrepTime:    r.PreparationTimeMin.Int() + r.CookingTimeMin.Int(),
		Source:      provider.SourceFatSecret,
	}
	if rc.ID == "" {
		rc.ID = id
		rc.ExternalID = ExternalIDPrefix + id
	}
	if r.RecipeImages != nil {
		if img, ok := r.RecipeImages.RecipeImage.First(); ok {
			rc.Image = img
		}
	}
	if r.RecipeTypes != nil {
		rc.Tags = append(rc.Tags, r.RecipeTypes.RecipeType...)
	}
	if r.RecipeCategories != nil {
		for _, cat := range r.RecipeCategories.RecipeCategory {
			if cat.Name != "" {
				rc.Tags = append(rc.Tags, cat.Name)
			}
		}
	}
	if r.ServingSizes != nil {
		if serving, ok := r.ServingSizes.Serving.First(); ok {
			rc.Nutrition = nutrition.Normalize(nutrition.FatSecretServing{Fields: serving})
		}
	}
	if r.Ingredients != nil {
		for _, ing := range r.Ingredients.Ingredient {
			rc.Ingredients = append(rc.Ingredients, model.Ingredient{
				Item:    ing.FoodName,
				Measure: measure(ing),
			})
		}
	}
	if r.Directions != nil {
		steps := make([]string, 0, len(r.Directions.Direction))
		for _, d := range r.Directions.Direction {
			steps = append(steps, fmt.Sprintf("%d. %s", d.DirectionNumber.Int(), d.DirectionDescription))
		}
		rc.Instructions = strings.Join(steps, "\n")
	}
	return rc, nil
}

func measure(ing ingredient) string {
	if ing.IngredientDescription != "" {
		return ing.IngredientDescription
	}
	units := strconv.FormatFloat(float64(ing.NumberOfUnits), 'f', -1, 64)
	return strings.TrimSpace(units + " " + ing.MeasurementDescription)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
