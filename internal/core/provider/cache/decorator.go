package cache

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"nutriguard/internal/core/nutrition"
	"nutriguard/internal/core/provider"
	"nutriguard/internal/pkg/common"
)

// cachedFood 以標準化後的營養資料保存，還原時不需再解析供應商格式
type cachedFood struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Brand     string               `json:"brand,omitempty"`
	Category  string               `json:"category,omitempty"`
	Image     string               `json:"image,omitempty"`
	Type      string               `json:"type,omitempty"`
	Source    provider.Source      `json:"source"`
	Basis     nutrition.Basis      `json:"basis"`
	Nutrition *nutrition.Nutrition `json:"nutrition,omitempty"`
}

func encodeFood(f *provider.Food) ([]byte, error) {
	cf := cachedFood{
		ID:       f.ID,
		Name:     f.Name,
		Brand:    f.Brand,
		Category: f.Category,
		Image:    f.Image,
		Type:     f.Type,
		Source:   f.Source,
		Basis:    f.Basis,
	}
	if f.HasNutrition() {
		n := nutrition.Normalize(f.Raw)
		cf.Nutrition = &n
	}
	return json.Marshal(cf)
}

func decodeFood(data []byte) (*provider.Food, error) {
	var cf cachedFood
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	f := &provider.Food{
		ID:       cf.ID,
		Name:     cf.Name,
		Brand:    cf.Brand,
		Category: cf.Category,
		Image:    cf.Image,
		Type:     cf.Type,
		Source:   cf.Source,
		Basis:    cf.Basis,
	}
	if cf.Nutrition != nil {
		f.Raw = nutrition.Normalized{Nutrition: *cf.Nutrition}
	}
	return f, nil
}

// lookup 先查快取，未命中時呼叫 fetch 並寫回；快取故障不影響查詢
func lookup(ctx context.Context, store Store, key string, fetch func() (*provider.Food, error)) (*provider.Food, error) {
	if data, err := store.Get(ctx, key); err == nil {
		if f, err := decodeFood(data); err == nil {
			return f, nil
		}
		common.LogWarn("快取資料無法解析", zap.String("鍵", key))
	} else if !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("快取讀取失敗", zap.String("鍵", key), zap.Error(err))
	}

	f, err := fetch()
	if err != nil || f == nil {
		return f, err
	}

	if data, err := encodeFood(f); err == nil {
		if err := store.Set(ctx, key, data); err != nil {
			common.LogWarn("快取寫入失敗", zap.String("鍵", key), zap.Error(err))
		}
	}
	return f, nil
}

// FoodDetailer 快取食物詳細資料
type FoodDetailer struct {
	next     provider.FoodDetailer
	store    Store
	provider string
}

// NewFoodDetailer 包裝食物詳細資料查詢；store 為 nil 時直接回傳 next
func NewFoodDetailer(next provider.FoodDetailer, store Store, providerName string) provider.FoodDetailer {
	if store == nil {
		return next
	}
	return &FoodDetailer{next: next, store: store, provider: providerName}
}

// FoodDetails 實作 provider.FoodDetailer
func (d *FoodDetailer) FoodDetails(ctx context.Context, id string) (*provider.Food, error) {
	return lookup(ctx, d.store, FoodKey(d.provider, id), func() (*provider.Food, error) {
		return d.next.FoodDetails(ctx, id)
	})
}

// BarcodeLookup 快取條碼查詢；查無資料不快取
type BarcodeLookup struct {
	next  provider.BarcodeLookup
	store Store
}

// NewBarcodeLookup 包裝條碼查詢；store 為 nil 時直接回傳 next
func NewBarcodeLookup(next provider.BarcodeLookup, store Store) provider.BarcodeLookup {
	if store == nil {
		return next
	}
	return &BarcodeLookup{next: next, store: store}
}

// LookupBarcode 實作 provider.BarcodeLookup
func (b *BarcodeLookup) LookupBarcode(ctx context.Context, code string) (*provider.Food, error) {
	return lookup(ctx, b.store, BarcodeKey(code), func() (*provider.Food, error) {
		return b.next.LookupBarcode(ctx, code)
	})
}
