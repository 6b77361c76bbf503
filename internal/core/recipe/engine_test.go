package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"nutriguard/internal/core/model"
	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// fixedRand coin 決定擲硬幣結果，pick 決定挑選的索引
type fixedRand struct {
	coin float64
	pick int
}

func (f fixedRand) Float64() float64 { return f.coin }

func (f fixedRand) Intn(n int) int {
	if f.pick >= n {
		return n - 1
	}
	return f.pick
}

var (
	edamamFirst    = fixedRand{coin: 0.1}
	fatSecretFirst = fixedRand{coin: 0.9}
)

type fakeEdamam struct {
	results [][]provider.RecipeCandidate
	err     error
	queries []provider.EdamamQuery
}

func (f *fakeEdamam) SearchRecipes(ctx context.Context, q provider.EdamamQuery) ([]provider.RecipeCandidate, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.queries) - 1
	if i >= len(f.results) {
		return nil, nil
	}
	return f.results[i], nil
}

type fakeFatSecret struct {
	results     []provider.RecipeCandidate
	details     map[string]*provider.RecipeCandidate
	err         error
	queries     []provider.FatSecretRecipeQuery
	detailCalls []string
}

func (f *fakeFatSecret) SearchRecipes(ctx context.Context, q provider.FatSecretRecipeQuery) ([]provider.RecipeCandidate, error) {
	f.queries = append(f.queries, q)
	return f.results, f.err
}

func (f *fakeFatSecret) RecipeDetails(ctx context.Context, id string) (*provider.RecipeCandidate, error) {
	f.detailCalls = append(f.detailCalls, id)
	return f.details[id], nil
}

type fakeCache struct {
	recipes []*model.Recipe
	upserts int
	err     error
}

func (f *fakeCache) GetByExternalID(ctx context.Context, externalID string) (*model.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.recipes {
		if r.ExternalID == externalID {
			return r, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeCache) Upsert(ctx context.Context, r *model.Recipe) (*model.Recipe, error) {
	f.upserts++
	stored := *r
	stored.ID = "id-" + r.ExternalID
	for i, existing := range f.recipes {
		if existing.ExternalID == r.ExternalID {
			f.recipes[i] = &stored
			return &stored, nil
		}
	}
	f.recipes = append(f.recipes, &stored)
	return &stored, nil
}

func (f *fakeCache) FindRandomByTag(ctx context.Context, tag string) (*model.Recipe, error) {
	for _, r := range f.recipes {
		if string(r.Category) == tag || r.HasTag(tag) {
			return r, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeCache) FindRandom(ctx context.Context) (*model.Recipe, error) {
	if len(f.recipes) == 0 {
		return nil, common.ErrNotFound
	}
	return f.recipes[0], nil
}

func edamamCandidate(id, host string) provider.RecipeCandidate {
	return provider.RecipeCandidate{
		ID:           id,
		ExternalID:   "edamam_" + id,
		Name:         "Recipe " + id,
		Description:  "Some Kitchen",
		Instructions: "Full instructions: https://" + host + "/" + id,
		SourceHost:   host,
		Tags:         []string{"lunch/dinner", "italian"},
		Ingredients:  []model.Ingredient{{Item: "tomato", Measure: "2 whole"}},
		Nutrition:    nutrition.Nutrition{Calories: 612.4, Protein: 31.26, Sodium: 702.449},
		Source:       provider.SourceEdamam,
	}
}

func defaultCfg() config.RecipeConfig {
	return config.RecipeConfig{
		MealsPerDay:          3,
		CalorieTolerance:     0.3,
		DenylistedSource:     "food52.com",
		EdamamRandomBatch:    20,
		FatSecretMaxResults:  20,
		FatSecretMaxPage:     5,
		DefaultDailyCalories: 2000,
	}
}

type EngineTestSuite struct {
	suite.Suite
	ctx     context.Context
	cache   *fakeCache
	profile *model.Profile
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cache = &fakeCache{}
	s.profile = &model.Profile{
		UserID:           "u1",
		FavoriteCuisines: []string{"Italian"},
		Limits: &nutrition.Limits{
			DailyCalories: &nutrition.CalorieRange{Min: 1800, Max: 2400},
			Nutrients: map[nutrition.NutrientCode]nutrition.Range{
				nutrition.Sodium:  {Max: nutrition.Float(2100)},
				nutrition.Protein: {Min: nutrition.Float(90)},
			},
		},
	}
}

func (s *EngineTestSuite) TestEdamamIngestsCandidate() {
	s.Run("FirstProviderHit_ShouldUpsertMappedRecipe", func() {
		// Arrange
		s.SetupTest()
		ed := &fakeEdamam{results: [][]provider.RecipeCandidate{{edamamCandidate("abc", "example.com")}}}
		fs := &fakeFatSecret{}
		e := NewEngine(ed, fs, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Lunch, "")

		// Assert
		s.Require().NoError(err)
		s.Require().NotNil(r)
		s.Equal("edamam_abc", r.ExternalID)
		s.Equal(model.Lunch, r.Category)
		s.True(r.HasTag("Lunch"))
		s.Equal("Edamam", r.SourceAPI)
		s.Equal(612.0, r.Calories)
		s.Equal(31.3, r.Protein)
		s.Equal(702.4, r.Sodium)
		s.Equal(1, s.cache.upserts)
		s.Empty(fs.queries)

		q := ed.queries[0]
		s.Equal(model.Lunch, q.MealType)
		s.Equal([]string{"alcohol-free"}, q.Health)
		s.Equal([]string{"Italian"}, q.Cuisines)
		s.Equal(20, q.RandomBatch)
		s.InDelta(600.0, q.CalorieMin, 1e-9)
		s.InDelta(800.0, q.CalorieMax, 1e-9)
		s.Require().Len(q.Nutrients, 2)
		s.Equal(nutrition.Sodium, q.Nutrients[0].Code)
		s.InDelta(700.0, *q.Nutrients[0].Max, 1e-9)
		s.Nil(q.Nutrients[0].Min)
		s.Equal(nutrition.Protein, q.Nutrients[1].Code)
		s.InDelta(30.0, *q.Nutrients[1].Min, 1e-9)
	})

	s.Run("AlreadyCached_ShouldReturnCachedRecord", func() {
		// Arrange
		s.SetupTest()
		cached := &model.Recipe{ID: "existing", ExternalID: "edamam_abc", Name: "Cached name"}
		s.cache.recipes = []*model.Recipe{cached}
		ed := &fakeEdamam{results: [][]provider.RecipeCandidate{{edamamCandidate("abc", "example.com")}}}
		e := NewEngine(ed, nil, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Dinner, "")

		// Assert
		s.Require().NoError(err)
		s.Same(cached, r)
		s.Equal(0, s.cache.upserts)
	})
}

func (s *EngineTestSuite) TestEdamamRelaxation() {
	s.Run("ZeroResults_ShouldRetryWithoutCuisines", func() {
		// Arrange
		s.SetupTest()
		ed := &fakeEdamam{results: [][]provider.RecipeCandidate{nil, {edamamCandidate("xyz", "example.com")}}}
		e := NewEngine(ed, nil, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Dinner, "")

		// Assert
		s.Require().NoError(err)
		s.Equal("edamam_xyz", r.ExternalID)
		s.Require().Len(ed.queries, 2)
		s.Equal([]string{"Italian"}, ed.queries[0].Cuisines)
		s.Nil(ed.queries[1].Cuisines)
		s.Equal(ed.queries[0].Health, ed.queries[1].Health)
	})

	s.Run("NoCuisines_ShouldNotRetry", func() {
		// Arrange
		s.SetupTest()
		s.profile.FavoriteCuisines = nil
		ed := &fakeEdamam{}
		e := NewEngine(ed, nil, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Dinner, "")

		// Assert
		s.NoError(err)
		s.Nil(r)
		s.Len(ed.queries, 1)
	})
}

func (s *EngineTestSuite) TestEdamamDenylist() {
	s.Run("OnlyDenylistedSource_ShouldFallBackToFatSecret", func() {
		// Arrange
		s.SetupTest()
		denied := edamamCandidate("d1", "food52.com")
		byName := edamamCandidate("d2", "cdn.example.com")
		byName.Description = "Food52"
		ed := &fakeEdamam{results: [][]provider.RecipeCandidate{{denied, byName}}}
		fs := &fakeFatSecret{
			results: []provider.RecipeCandidate{{ID: "91", ExternalID: "fatsecret_91", Name: "Omelette"}},
			details: map[string]*provider.RecipeCandidate{
				"91": {ID: "91", ExternalID: "fatsecret_91", Name: "Omelette", Source: provider.SourceFatSecret},
			},
		}
		e := NewEngine(ed, fs, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Breakfast, "")

		// Assert
		s.Require().NoError(err)
		s.Equal("fatsecret_91", r.ExternalID)
		s.Equal("FatSecret", r.SourceAPI)
		s.Equal([]string{"91"}, fs.detailCalls)
	})
}

func (s *EngineTestSuite) TestFatSecretQuery() {
	s.Run("Breakfast_ShouldKeepCategoryAndDeriveProtein", func() {
		// Arrange
		s.SetupTest()
		s.profile.Limits.DailyCalories = nil
		fs := &fakeFatSecret{}
		e := NewEngine(nil, fs, s.cache, fatSecretFirst, defaultCfg())

		// Act
		_, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Breakfast, "")

		// Assert
		s.Require().NoError(err)
		q := fs.queries[0]
		s.Equal("Breakfast", q.RecipeType)
		s.InDelta(2000.0/3*0.7, q.CaloriesFrom, 1e-9)
		s.InDelta(2000.0/3*1.3, q.CaloriesTo, 1e-9)
		s.Require().NotNil(q.ProteinPercentFrom)
		s.InDelta(18.0, *q.ProteinPercentFrom, 1e-9)
		s.True(q.MustHaveImages)
		s.Equal(20, q.MaxResults)
		s.GreaterOrEqual(q.PageNumber, 0)
		s.Less(q.PageNumber, 5)
	})

	s.Run("LunchAndDinner_ShouldMapToMainDish", func() {
		s.Equal("Main Dish", fatSecretRecipeType(model.Lunch))
		s.Equal("Main Dish", fatSecretRecipeType(model.Dinner))
	})

	s.Run("OutOfBandProtein_ShouldBeDropped", func() {
		// Arrange
		e := NewEngine(nil, nil, s.cache, fatSecretFirst, defaultCfg())
		tiny := &nutrition.Limits{Nutrients: map[nutrition.NutrientCode]nutrition.Range{nutrition.Protein: {Min: nutrition.Float(3)}}}
		huge := &nutrition.Limits{Nutrients: map[nutrition.NutrientCode]nutrition.Range{nutrition.Protein: {Min: nutrition.Float(600)}}}

		// Act & Assert
		s.Nil(e.proteinPercent(tiny, 2000.0/3))
		s.Nil(e.proteinPercent(huge, 2000.0/3))
		s.Nil(e.proteinPercent(nil, 2000.0/3))
	})
}

func (s *EngineTestSuite) TestFatSecretExclusion() {
	s.Run("OnlyExcludedCandidate_ShouldReturnNilWithoutRetry", func() {
		// Arrange
		s.SetupTest()
		fs := &fakeFatSecret{results: []provider.RecipeCandidate{{ID: "7", ExternalID: "fatsecret_7"}}}
		e := NewEngine(nil, fs, s.cache, fatSecretFirst, defaultCfg())

		// Act
		r, err := e.fromFatSecret(s.ctx, s.profile, model.Lunch, "fatsecret_7")

		// Assert
		s.NoError(err)
		s.Nil(r)
		s.Len(fs.queries, 1)
		s.Empty(fs.detailCalls)
	})

	s.Run("CachedCandidate_ShouldSkipDetailFetch", func() {
		// Arrange
		s.SetupTest()
		cached := &model.Recipe{ID: "c", ExternalID: "fatsecret_8"}
		s.cache.recipes = []*model.Recipe{cached}
		fs := &fakeFatSecret{results: []provider.RecipeCandidate{{ID: "8", ExternalID: "fatsecret_8"}}}
		e := NewEngine(nil, fs, s.cache, fatSecretFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Lunch, "")

		// Assert
		s.NoError(err)
		s.Same(cached, r)
		s.Empty(fs.detailCalls)
	})
}

func (s *EngineTestSuite) TestLocalFallback() {
	s.Run("ProvidersDown_ShouldPreferSlotTag", func() {
		// Arrange
		s.SetupTest()
		lunch := &model.Recipe{ID: "l", ExternalID: "x1", Category: model.Lunch, Tags: []string{"Lunch"}}
		dinner := &model.Recipe{ID: "d", ExternalID: "x2", Category: model.Dinner, Tags: []string{"Dinner"}}
		s.cache.recipes = []*model.Recipe{lunch, dinner}
		ed := &fakeEdamam{err: errors.New("503")}
		fs := &fakeFatSecret{err: errors.New("timeout")}
		e := NewEngine(ed, fs, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Dinner, "")

		// Assert
		s.NoError(err)
		s.Same(dinner, r)
		s.Len(fs.queries, 1)
	})

	s.Run("NoTaggedRecipe_ShouldPickAny", func() {
		// Arrange
		s.SetupTest()
		other := &model.Recipe{ID: "o", ExternalID: "x3", Category: model.Lunch}
		s.cache.recipes = []*model.Recipe{other}
		e := NewEngine(nil, nil, s.cache, edamamFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, nil, model.Breakfast, "")

		// Assert
		s.NoError(err)
		s.Same(other, r)
	})

	s.Run("EmptyCache_ShouldReturnNil", func() {
		// Arrange
		s.SetupTest()
		e := NewEngine(&fakeEdamam{}, &fakeFatSecret{}, s.cache, fatSecretFirst, defaultCfg())

		// Act
		r, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Breakfast, "")

		// Assert
		s.NoError(err)
		s.Nil(r)
	})

	s.Run("StoreFailure_ShouldPropagate", func() {
		// Arrange
		s.SetupTest()
		s.cache.err = errors.New("database is locked")
		ed := &fakeEdamam{results: [][]provider.RecipeCandidate{{edamamCandidate("abc", "example.com")}}}
		e := NewEngine(ed, nil, s.cache, edamamFirst, defaultCfg())

		// Act
		_, err := e.FindOrCreateRecipe(s.ctx, s.profile, model.Lunch, "")

		// Assert
		s.Error(err)
	})
}

func TestExcludedRecipeNeverSelected(t *testing.T) {
	const excluded = "edamam_x"
	batch := []provider.RecipeCandidate{
		edamamCandidate("a", "example.com"),
		edamamCandidate("x", "example.com"),
		edamamCandidate("b", "example.com"),
		edamamCandidate("c", "example.org"),
		edamamCandidate("d", "example.net"),
	}
	cache := &fakeCache{}
	e := NewEngine(nil, nil, cache, common.NewRand(42), defaultCfg())
	seen := map[string]int{}

	for i := 0; i < 500; i++ {
		e.edamam = &fakeEdamam{results: [][]provider.RecipeCandidate{batch}}
		r, err := e.fromEdamam(context.Background(), nil, model.Lunch, excluded)
		require.NoError(t, err)
		require.NotNil(t, r)
		seen[r.ExternalID]++
	}

	assert.Zero(t, seen[excluded])
	assert.Len(t, seen, 4, "every other candidate should be picked at some point")
}

func TestDeniedSource(t *testing.T) {
	c := provider.RecipeCandidate{SourceHost: "m.food52.com"}
	assert.True(t, deniedSource(c, "food52.com"))
	assert.False(t, deniedSource(provider.RecipeCandidate{SourceHost: "notfood52.com"}, "food52.com"))
	assert.True(t, deniedSource(provider.RecipeCandidate{Description: "Food 52"}, "food52.com"))
	assert.False(t, deniedSource(c, ""))
}
