package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nutriguard/internal/core/model"
	"nutriguard/internal/pkg/common"
)

// PlanStore 每位使用者每日一筆的餐食計畫
type PlanStore struct {
	db *gorm.DB
}

// NewPlanStore 創建計畫儲存
func NewPlanStore(db *gorm.DB) *PlanStore {
	return &PlanStore{db: db}
}

// FindByUserAndDate 取得指定日期的計畫，並載入三餐食譜
func (s *PlanStore) FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Plan, error) {
	var p model.Plan
	err := s.db.WithContext(ctx).
		Preload("Breakfast").
		Preload("Lunch").
		Preload("Dinner").
		Where("user_id = ? AND date = ?", userID, common.CalendarDate(date)).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Upsert 依 (user_id, date) 新增或覆寫三餐與狀態
func (s *PlanStore) Upsert(ctx context.Context, p *model.Plan) (*model.Plan, error) {
	row := model.Plan{
		UserID:          p.UserID,
		Date:            common.CalendarDate(p.Date),
		BreakfastID:     p.BreakfastID,
		LunchID:         p.LunchID,
		DinnerID:        p.DinnerID,
		BreakfastStatus: p.BreakfastStatus,
		LunchStatus:     p.LunchStatus,
		DinnerStatus:    p.DinnerStatus,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"breakfast_id", "lunch_id", "dinner_id",
				"breakfast_status", "lunch_status", "dinner_status", "updated_at",
			}),
		}).
		Omit(clause.Associations).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return s.FindByUserAndDate(ctx, p.UserID, p.Date)
}

// Save 更新既有計畫的三餐與狀態
func (s *PlanStore) Save(ctx context.Context, p *model.Plan) error {
	result := s.db.WithContext(ctx).
		Model(&model.Plan{}).
		Where("id = ?", p.ID).
		Select("breakfast_id", "lunch_id", "dinner_id", "breakfast_status", "lunch_status", "dinner_status", "updated_at").
		Updates(map[string]interface{}{
			"breakfast_id":     p.BreakfastID,
			"lunch_id":         p.LunchID,
			"dinner_id":        p.DinnerID,
			"breakfast_status": p.BreakfastStatus,
			"lunch_status":     p.LunchStatus,
			"dinner_status":    p.DinnerStatus,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser 取得使用者在日期區間內的計畫
func (s *PlanStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]model.Plan, error) {
	var plans []model.Plan
	err := s.db.WithContext(ctx).
		Preload("Breakfast").
		Preload("Lunch").
		Preload("Dinner").
		Where("user_id = ? AND date >= ? AND date <= ?", userID, common.CalendarDate(from), common.CalendarDate(to)).
		Order("date").
		Find(&plans).Error
	return plans, err
}
