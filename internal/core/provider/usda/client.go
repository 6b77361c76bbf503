// Package usda USDA FoodData Central 搜尋客戶端。
package usda

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// DataTypes 偏好的資料類型，依序為 Foundation、SR Legacy、Branded
const DataTypes = "Foundation,SR Legacy,Branded"

// Client FoodData Central 客戶端
type Client struct {
	cfg  config.USDAConfig
	http *resty.Client
}

type searchResponse struct {
	TotalHits int          `json:"totalHits"`
	Foods     []searchFood `json:"foods"`
}

type searchFood struct {
	FdcID           provider.FlexString      `json:"fdcId"`
	Description     string                   `json:"description"`
	DataType        string                   `json:"dataType"`
	BrandOwner      string                   `json:"brandOwner"`
	BrandName       string                   `json:"brandName"`
	FoodCategory    string                   `json:"foodCategory"`
	ServingSize     float64                  `json:"servingSize"`
	ServingSizeUnit string                   `json:"servingSizeUnit"`
	FoodNutrients   []nutrition.USDANutrient `json:"foodNutrients"`
}

// NewClient 創建 FoodData Central 客戶端
func NewClient(cfg config.USDAConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{cfg: cfg, http: client}
}

// SearchFoods /foods/search，營養資料以每 100g 計
func (c *Client) SearchFoods(ctx context.Context, query string, limit int, _ provider.FoodType) ([]provider.Food, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":  c.cfg.APIKey,
			"query":    query,
			"pageSize": strconv.Itoa(limit),
			"dataType": DataTypes,
		}).
		Get("/foods/search")
	common.LogProviderCall("usda", "foods.search", time.Since(start), err)
	if err != nil {
		return nil, common.Wrap(common.ErrProviderDown, fmt.Errorf("usda search failed: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.Wrap(common.ErrProviderDown, fmt.Errorf("usda search returned %d", resp.StatusCode()))
	}

	var out searchResponse
	if err := common.ParseJSONBytes(resp.Body(), &out); err != nil {
		return nil, common.Wrap(common.ErrMalformedResponse, fmt.Errorf("usda search: %w", err))
	}

	foods := make([]provider.Food, 0, len(out.Foods))
	for _, f := range out.Foods {
		brand := f.BrandName
		if brand == "" {
			brand = f.BrandOwner
		}
		foods = append(foods, provider.Food{
			ID:       f.FdcID.String(),
			Name:     f.Description,
			Brand:    brand,
			Category: f.FoodCategory,
			Type:     f.DataType,
			Source:   provider.SourceUSDA,
			Basis:    nutrition.BasisPer100g,
			Raw: nutrition.USDAFood{
				Nutrients:       f.FoodNutrients,
				ServingSize:     f.ServingSize,
				ServingSizeUnit: f.ServingSizeUnit,
			},
		})
	}
	return foods, nil
}
