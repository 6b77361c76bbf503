package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nutriguard/internal/core/model"
)

// ProfileStore 使用者飲食偏好與營養限制
type ProfileStore struct {
	db *gorm.DB
}

// NewProfileStore 創建使用者資料儲存
func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get 取得使用者資料
func (s *ProfileStore) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save 新增或覆寫使用者資料
func (s *ProfileStore) Save(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"favorite_cuisines", "limits", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, p.UserID)
}
