package edamam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
)

const searchBody = `{"from":1,"to":2,"count":2,"hits":[
 {"recipe":{"uri":"http://www.edamam.com/ontologies/edamam.owl#recipe_abc123","label":"Shakshuka",
  "image":"https://img/shak.jpg","source":"Serious Eats","url":"https://www.seriouseats.com/shakshuka",
  "yield":4,"totalTime":30,"mealType":["breakfast"],"cuisineType":["middle eastern"],"dishType":["main course"],
  "ingredients":[{"text":"4 eggs","quantity":4,"measure":"<unit>","food":"eggs"},{"text":"1 cup tomato","quantity":1,"measure":"cup","food":"tomato"}],
  "totalNutrients":{"ENERC_KCAL":{"label":"Energy","quantity":1200,"unit":"kcal"},"NA":{"label":"Sodium","quantity":2000,"unit":"mg"}}}},
 {"recipe":{"uri":"no-marker","label":"Broken"}}
]}`

func TestSearchRecipes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recipes/v2", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get("Edamam-Account-User"))
		q := r.URL.Query()
		assert.Equal(t, "public", q.Get("type"))
		assert.Equal(t, "true", q.Get("random"))
		assert.Equal(t, []string{"alcohol-free"}, q["health"])
		assert.Equal(t, []string{"Italian", "Mexican"}, q["cuisineType"])
		assert.Equal(t, "Breakfast", q.Get("mealType"))
		assert.Equal(t, "400-700", q.Get("calories"))
		assert.Equal(t, "667", q.Get("nutrients[NA]"))
		assert.Equal(t, "20+", q.Get("nutrients[PROCNT]"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := NewClient(config.EdamamConfig{AppID: "id", AppKey: "key", UserID: "user-1", BaseURL: srv.URL})
	recipes, err := c.SearchRecipes(context.Background(), provider.EdamamQuery{
		MealType:   model.Breakfast,
		Cuisines:   []string{"Italian", "Mexican"},
		Health:     []string{"alcohol-free"},
		CalorieMin: 400,
		CalorieMax: 700,
		Nutrients: []provider.NutrientFilter{
			{Code: nutrition.Sodium, Max: nutrition.Float(666.6)},
			{Code: nutrition.Protein, Min: nutrition.Float(20)},
		},
		RandomBatch: 20,
	})
	require.NoError(t, err)
	require.Len(t, recipes, 1)

	r := recipes[0]
	assert.Equal(t, "edamam_abc123", r.ExternalID)
	assert.Equal(t, "seriouseats.com", r.SourceHost)
	assert.Equal(t, 30, r.PrepTime)
	assert.Equal(t, 300.0, r.Nutrition.Calories)
	assert.Equal(t, 500.0, r.Nutrition.Sodium)
	assert.Contains(t, r.Tags, "breakfast")
	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, "4 eggs", r.Ingredients[0].Measure)
	assert.Equal(t, "1 cup", r.Ingredients[1].Measure)
}

func TestRecipeID(t *testing.T) {
	assert.Equal(t, "abc", RecipeID("http://www.edamam.com/ontologies/edamam.owl#recipe_abc"))
	assert.Equal(t, "", RecipeID("http://www.edamam.com/ontologies/edamam.owl"))
}

func TestSearchRecipesUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(config.EdamamConfig{BaseURL: srv.URL})
	_, err := c.SearchRecipes(context.Background(), provider.EdamamQuery{})
	assert.Error(t, err)
}
