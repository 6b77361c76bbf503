// Package cache 供應商回應快取：記憶體（TTL + LRU）或 Redis 後端，以及包裝供應商介面的快取裝飾器。
//
// 只快取與使用者無關的供應商資料；判定結果因人而異，不經過這裡。
package cache

import (
	"context"
	"fmt"

	"nutriguard/internal/infrastructure/config"
	"nutriguard/internal/pkg/common"
)

// Store 快取後端，未命中時回傳 common.ErrCacheMiss
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// New 依設定建立快取後端；停用時回傳 nil
func New(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("供應商快取已停用")
		return nil, nil
	}
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(cfg)
	case "memory", "":
		return NewManager(cfg), nil
	}
	return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
}

// FoodKey 食物詳細資料的快取鍵
func FoodKey(provider, id string) string {
	return fmt.Sprintf("food:%s:%s", provider, id)
}

// BarcodeKey 條碼查詢的快取鍵
func BarcodeKey(code string) string {
	return "barcode:" + code
}
