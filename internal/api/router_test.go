package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"nutriguard/internal/api/handlers/health"
	"nutriguard/internal/core/food"
	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/plan"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/core/recipe"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/infrastructure/persistence"
	"nutriguard/internal/pkg/common"
)

type stubFoods struct{}

func (stubFoods) SearchFoods(ctx context.Context, query string, limit int, foodType provider.FoodType) ([]provider.Food, error) {
	return []provider.Food{{ID: "42", Name: query, Source: provider.SourceFatSecret}}, nil
}

func (stubFoods) FoodDetails(ctx context.Context, id string) (*provider.Food, error) {
	return &provider.Food{
		ID: id, Name: "Peanut Butter", Source: provider.SourceFatSecret, Basis: nutrition.BasisPerServing,
		Raw: nutrition.FatSecretServing{Fields: nutrition.Fields{"calories": "190", "sodium": "140"}},
	}, nil
}

type stubRecipes struct{}

func (stubRecipes) SearchRecipes(ctx context.Context, q provider.EdamamQuery) ([]provider.RecipeCandidate, error) {
	id := strings.ToLower(string(q.MealType)) + "1"
	return []provider.RecipeCandidate{{
		ID:         id,
		ExternalID: "edamam_" + id,
		Name:       string(q.MealType) + " bowl",
		SourceHost: "example.com",
		Nutrition:  nutrition.Nutrition{Calories: 550},
		Source:     provider.SourceEdamam,
	}}, nil
}

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
	ready  error
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.DedupWindow = time.Nanosecond

	db, err := persistence.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, false)
	s.Require().NoError(err)
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	rng := common.NewRand(7)
	recipes := persistence.NewRecipeStore(db, rng)
	profiles := persistence.NewProfileStore(db)
	recipeEngine := recipe.NewEngine(stubRecipes{}, nil, recipes, rng, cfg.Recipe)

	s.ready = nil
	s.router = SetupRouter(cfg, Dependencies{
		Foods:    food.NewEngine(stubFoods{}, stubFoods{}, nil, nil),
		Plans:    plan.NewService(recipeEngine, recipes, persistence.NewPlanStore(db), profiles),
		Profiles: profiles,
		Checks: map[string]health.Check{
			"database": func(ctx context.Context) error { return persistence.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return s.ready },
		},
	})
}

func (s *RouterTestSuite) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *RouterTestSuite) TestHealthEndpoints() {
	s.Run("Ready_ShouldReportDependencies", func() {
		w, body := s.do(http.MethodGet, "/ready", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal("ready", body["status"])
		s.NotEmpty(w.Header().Get("X-Request-ID"))
	})

	s.Run("DependencyDown_ShouldNotBeReady", func() {
		s.ready = errors.New("dial tcp: connection refused")
		w, body := s.do(http.MethodGet, "/ready", nil)
		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.Equal("not_ready", body["status"])
		s.ready = nil
	})

	s.Run("Live_ShouldAlwaysSucceed", func() {
		w, _ := s.do(http.MethodGet, "/live", nil)
		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *RouterTestSuite) TestFoodEndpoints() {
	s.Run("AnalyzeWithProfileLimits_ShouldScore", func() {
		// Arrange
		w, _ := s.do(http.MethodPut, "/api/v1/users/u1/profile", map[string]interface{}{
			"favorite_cuisines": []string{"Thai"},
			"limits": map[string]interface{}{
				"nutrients":         map[string]interface{}{"NA": map[string]interface{}{"max": 2000}},
				"avoid_ingredients": []string{"peanut"},
			},
		})
		s.Require().Equal(http.StatusOK, w.Code)

		// Act
		w, body := s.do(http.MethodPost, "/api/v1/food/analyze", map[string]interface{}{"query": "peanut butter", "user_id": "u1"})

		// Assert
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("FatSecret", body["source"])
		verdict := body["verdict"].(map[string]interface{})
		s.Equal(float64(0), verdict["score"])
		s.Equal("Red", verdict["color"])
	})

	s.Run("AnalyzeWithoutLimits_ShouldOmitVerdict", func() {
		w, body := s.do(http.MethodPost, "/api/v1/food/analyze", map[string]interface{}{"query": "peanut butter"})
		s.Require().Equal(http.StatusOK, w.Code)
		s.Nil(body["verdict"])
	})

	s.Run("MissingQuery_ShouldBeBadRequest", func() {
		w, body := s.do(http.MethodPost, "/api/v1/food/analyze", map[string]interface{}{})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(common.ErrCodeInvalidRequest, body["code"])
	})

	s.Run("UnknownFoodType_ShouldBeBadRequest", func() {
		w, _ := s.do(http.MethodGet, "/api/v1/food/search?q=apple&type=Frozen", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("Search_ShouldReturnSuggestions", func() {
		w, body := s.do(http.MethodGet, "/api/v1/food/search?q=apple", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Len(body["results"], 1)
	})

	s.Run("InvalidProfileLimits_ShouldBeRejected", func() {
		w, _ := s.do(http.MethodPut, "/api/v1/users/u2/profile", map[string]interface{}{
			"limits": map[string]interface{}{
				"nutrients": map[string]interface{}{"VITC": map[string]interface{}{"max": 90}},
			},
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("MissingProfile_ShouldBeNotFound", func() {
		w, body := s.do(http.MethodGet, "/api/v1/users/nobody/profile", nil)
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("PROFILE_NOT_FOUND", body["code"])
	})
}

func (s *RouterTestSuite) TestPlanEndpoints() {
	s.Run("GenerateThenUpdate_ShouldRoundTrip", func() {
		// Arrange & Act
		w, body := s.do(http.MethodPost, "/api/v1/plans/generate", map[string]interface{}{"user_id": "u1", "date": "2026-03-14"})

		// Assert
		s.Require().Equal(http.StatusOK, w.Code)
		s.NotEmpty(body["breakfastId"])
		s.NotEmpty(body["lunchId"])
		s.NotEmpty(body["dinnerId"])
		s.Equal(string(model.StatusPending), body["lunchStatus"])

		w, body = s.do(http.MethodPatch, "/api/v1/plans/u1/2026-03-14/meals/lunch/status", map[string]interface{}{"status": "completed"})
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal(string(model.StatusCompleted), body["lunchStatus"])

		w, body = s.do(http.MethodDelete, "/api/v1/plans/u1/2026-03-14/meals/dinner", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Nil(body["dinnerId"])

		w, body = s.do(http.MethodGet, "/api/v1/plans/u1?from=2026-03-01&to=2026-03-31", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Len(body["plans"], 1)
	})

	s.Run("InvalidSlot_ShouldBeBadRequest", func() {
		w, body := s.do(http.MethodDelete, "/api/v1/plans/u1/2026-03-14/meals/brunch", nil)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("INVALID_MEAL_SLOT", body["code"])
	})

	s.Run("MissingPlan_ShouldBeNotFound", func() {
		w, body := s.do(http.MethodGet, "/api/v1/plans/u1/2030-01-01", nil)
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("PLAN_NOT_FOUND", body["code"])
	})

	s.Run("BadDate_ShouldBeBadRequest", func() {
		w, _ := s.do(http.MethodGet, "/api/v1/plans/u1/14-03-2026", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
