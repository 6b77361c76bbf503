// Package openfoodfacts Open Food Facts 條碼查詢客戶端。
package openfoodfacts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// Client Open Food Facts 客戶端
type Client struct {
	http *resty.Client
}

type productResponse struct {
	Code    string   `json:"code"`
	Status  int      `json:"status"`
	Product *product `json:"product"`
}

type product struct {
	Code            string             `json:"code"`
	ProductName     string             `json:"product_name"`
	ProductNameEn   string             `json:"product_name_en"`
	GenericName     string             `json:"generic_name"`
	Brands          string             `json:"brands"`
	Categories      string             `json:"categories"`
	ImageURL        string             `json:"image_url"`
	ImageFrontURL   string             `json:"image_front_url"`
	ServingQuantity provider.FlexFloat `json:"serving_quantity"`
	ServingUnit     string             `json:"serving_quantity_unit"`
	Nutriments      nutrition.Fields   `json:"nutriments"`
}

// NewClient 創建 Open Food Facts 客戶端
func NewClient(cfg config.OpenFoodFactsConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	return &Client{http: client}
}

// LookupBarcode /api/v2/product/{code}.json，找不到時回傳 nil, nil
func (c *Client) LookupBarcode(ctx context.Context, code string) (*provider.Food, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("code", code).
		Get("/api/v2/product/{code}.json")
	common.LogProviderCall("openfoodfacts", "product", time.Since(start), err)
	if err != nil {
		return nil, common.Wrap(common.ErrProviderDown, fmt.Errorf("openfoodfacts lookup failed: %w", err))
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.Wrap(common.ErrProviderDown, fmt.Errorf("openfoodfacts returned %d", resp.StatusCode()))
	}

	var out productResponse
	if err := common.ParseJSONBytes(resp.Body(), &out); err != nil {
		return nil, common.Wrap(common.ErrMalformedResponse, fmt.Errorf("openfoodfacts product: %w", err))
	}
	if out.Status != 1 || out.Product == nil {
		return nil, nil
	}

	p := out.Product
	id := p.Code
	if id == "" {
		id = code
	}
	image := p.ImageURL
	if image == "" {
		image = p.ImageFrontURL
	}
	food := &provider.Food{
		ID:       id,
		Name:     p.name(),
		Brand:    firstListItem(p.Brands),
		Category: firstListItem(p.Categories),
		Image:    image,
		Type:     string(provider.FoodTypeBrand),
		Source:   provider.SourceOpenFoodFacts,
		Basis:    nutrition.BasisPer100g,
	}
	if len(p.Nutriments) > 0 {
		food.Raw = nutrition.OpenFoodFactsNutriments{
			Nutriments:      p.Nutriments,
			ServingQuantity: float64(p.ServingQuantity),
			ServingUnit:     p.ServingUnit,
		}
	}
	return food, nil
}

// name 依序使用 product_name、product_name_en、generic_name
func (p *product) name() string {
	for _, n := range []string{p.ProductName, p.ProductNameEn, p.GenericName} {
		if strings.TrimSpace(n) != "" {
			return n
		}
	}
	return ""
}

// firstListItem Open Food Facts 以逗號分隔多個品牌或分類
func firstListItem(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}
