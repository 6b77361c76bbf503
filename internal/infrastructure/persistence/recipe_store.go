package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nutriguard/internal/core/model"
	"nutriguard/internal/pkg/common"
)

// 以 external_id 衝突時更新的欄位
var recipeUpsertColumns = []string{
	"name", "description", "instructions", "image", "category", "prep_time",
	"calories", "protein", "carbs", "fat", "sodium", "sugar", "fiber",
	"tags", "ingredients", "source_api", "updated_at",
}

// RecipeStore 本地食譜快取
type RecipeStore struct {
	db  *gorm.DB
	rng common.Rand
}

// NewRecipeStore 創建食譜快取；rng 用於隨機挑選
func NewRecipeStore(db *gorm.DB, rng common.Rand) *RecipeStore {
	return &RecipeStore{db: db, rng: rng}
}

// GetByID 以主鍵查詢
func (s *RecipeStore) GetByID(ctx context.Context, id string) (*model.Recipe, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByExternalID 以供應商 ID 查詢
func (s *RecipeStore) GetByExternalID(ctx context.Context, externalID string) (*model.Recipe, error) {
	return s.first(ctx, "external_id = ?", externalID)
}

func (s *RecipeStore) first(ctx context.Context, query string, arg interface{}) (*model.Recipe, error) {
	var r model.Recipe
	if err := s.db.WithContext(ctx).Where(query, arg).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Upsert 依 external_id 新增或更新；併發寫入同一食譜時由唯一索引收斂為同一筆
func (s *RecipeStore) Upsert(ctx context.Context, r *model.Recipe) (*model.Recipe, error) {
	row := *r
	row.ID = ""
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(recipeUpsertColumns),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return s.GetByExternalID(ctx, r.ExternalID)
}

// FindRandomByTag 隨機挑選帶有指定標籤（或屬於該餐次）的食譜
func (s *RecipeStore) FindRandomByTag(ctx context.Context, tag string) (*model.Recipe, error) {
	pattern := "%\"" + strings.ToLower(tag) + "\"%"
	query := s.db.WithContext(ctx).Model(&model.Recipe{}).
		Where("LOWER(category) = ? OR LOWER(tags) LIKE ?", strings.ToLower(tag), pattern)
	return s.random(query)
}

// FindRandom 從全部食譜中隨機挑選
func (s *RecipeStore) FindRandom(ctx context.Context) (*model.Recipe, error) {
	return s.random(s.db.WithContext(ctx).Model(&model.Recipe{}))
}

// Count 食譜總數
func (s *RecipeStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Recipe{}).Count(&count).Error
	return count, err
}

func (s *RecipeStore) random(query *gorm.DB) (*model.Recipe, error) {
	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var r model.Recipe
	offset := s.rng.Intn(int(count))
	if err := query.Session(&gorm.Session{}).Order("id").Offset(offset).Limit(1).Find(&r).Error; err != nil {
		return nil, err
	}
	if r.ID == "" {
		return nil, ErrNotFound
	}
	return &r, nil
}
