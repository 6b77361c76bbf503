package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "nutriguard-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v2/product/3017620422003.json":
			_, _ = w.Write([]byte(`{"code":"3017620422003","status":1,"product":{
				"code":"3017620422003","product_name":"Nutella","brands":"Ferrero, Nutella",
				"categories":"Spreads, Sweet spreads","image_url":"https://img/nutella.jpg",
				"serving_quantity":"15","serving_quantity_unit":"g",
				"nutriments":{"energy-kcal_100g":539,"sugars_100g":56.3,"salt_100g":0.107,"sodium_100g":"0.0428"}}}`))
		case "/api/v2/product/5000000000000.json":
			_, _ = w.Write([]byte(`{"code":"5000000000000","status":1,"product":{"product_name":"","generic_name":"Sea salt crisps","nutriments":{"salt_100g":1.0}}}`))
		case "/api/v2/product/0000000000000.json":
			_, _ = w.Write([]byte(`{"code":"0000000000000","status":0,"status_verbose":"product not found"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLookupBarcode(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	c := NewClient(config.OpenFoodFactsConfig{BaseURL: srv.URL, UserAgent: "nutriguard-test"})

	t.Run("Found_ShouldPreferDirectSodium", func(t *testing.T) {
		f, err := c.LookupBarcode(context.Background(), "3017620422003")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "Nutella", f.Name)
		assert.Equal(t, "Ferrero", f.Brand)
		assert.Equal(t, "Spreads", f.Category)
		assert.Equal(t, provider.SourceOpenFoodFacts, f.Source)

		n := nutrition.Normalize(f.Raw)
		assert.Equal(t, 539.0, n.Calories)
		assert.InDelta(t, 42.8, n.Sodium, 1e-9)
		require.NotNil(t, n.ServingSize)
		assert.Equal(t, 15.0, *n.ServingSize)
	})

	t.Run("SaltOnly_ShouldDeriveSodium", func(t *testing.T) {
		f, err := c.LookupBarcode(context.Background(), "5000000000000")
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "Sea salt crisps", f.Name)
		assert.InDelta(t, 400.0, nutrition.Normalize(f.Raw).Sodium, 1e-9)
	})

	t.Run("StatusZero_ShouldBeNotFound", func(t *testing.T) {
		f, err := c.LookupBarcode(context.Background(), "0000000000000")
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("Http404_ShouldBeNotFound", func(t *testing.T) {
		f, err := c.LookupBarcode(context.Background(), "123")
		require.NoError(t, err)
		assert.Nil(t, f)
	})
}
