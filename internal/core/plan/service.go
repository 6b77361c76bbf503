// Package plan 組裝使用者每日三餐計畫，並提供換餐、移除與狀態更新。
package plan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nutriguard/internal/core/model"
	"nutriguard/internal/pkg/common"
)

// MaxDays 一次最多產生的天數
const MaxDays = 31

// RecipeFinder 為單一餐次取得食譜，沒有任何食譜時回傳 nil, nil
type RecipeFinder interface {
	FindOrCreateRecipe(ctx context.Context, profile *model.Profile, slot model.MealSlot, excludeExternalID string) (*model.Recipe, error)
}

// RecipeLookup 以主鍵查詢本地食譜
type RecipeLookup interface {
	GetByID(ctx context.Context, id string) (*model.Recipe, error)
}

// Store 計畫儲存，查無資料時回傳 common.ErrNotFound
type Store interface {
	FindByUserAndDate(ctx context.Context, userID string, date time.Time) (*model.Plan, error)
	Upsert(ctx context.Context, p *model.Plan) (*model.Plan, error)
	Save(ctx context.Context, p *model.Plan) error
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]model.Plan, error)
}

// ProfileReader 讀取使用者偏好與營養限制
type ProfileReader interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
}

// Service 餐食計畫服務
type Service struct {
	recipes  RecipeFinder
	lookup   RecipeLookup
	plans    Store
	profiles ProfileReader
}

// NewService 創建餐食計畫服務
func NewService(recipes RecipeFinder, lookup RecipeLookup, plans Store, profiles ProfileReader) *Service {
	return &Service{
		recipes:  recipes,
		lookup:   lookup,
		plans:    plans,
		profiles: profiles,
	}
}

func (s *Service) profile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &model.Profile{UserID: userID}, nil
		}
		return nil, err
	}
	return p, nil
}

// Generate 產生（或重新產生）指定日期的計畫
//
// 三個餐次各自獨立解析，單一餐次失敗或沒有食譜只會讓該餐次留空。
func (s *Service) Generate(ctx context.Context, userID string, date time.Time) (*model.Plan, error) {
	if userID == "" {
		return nil, common.NewValidationError("userId is required")
	}
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &model.Plan{UserID: userID, Date: common.CalendarDate(date)}
	if existing, err := s.plans.FindByUserAndDate(ctx, userID, date); err == nil {
		p.ID = existing.ID
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	for _, slot := range model.MealSlots {
		p.SetStatus(slot, model.StatusPending)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, slot := range model.MealSlots {
		slot := slot
		g.Go(func() error {
			r, err := s.recipes.FindOrCreateRecipe(gctx, profile, slot, "")
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				common.LogWarn("餐次解析失敗，保留空白",
					zap.String("user_id", userID),
					zap.String("slot", string(slot)),
					zap.Error(err),
				)
				return nil
			}

			if r == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			id := r.ID
			p.SetMeal(slot, &id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	saved, err := s.plans.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	common.LogInfo("餐食計畫已產生",
		zap.String("user_id", userID),
		zap.Time("date", saved.Date),
	)
	return saved, nil
}

// GeneratePlans 從 start 起連續產生 days 天的計畫
func (s *Service) GeneratePlans(ctx context.Context, userID string, start time.Time, days int) ([]*model.Plan, error) {
	if days <= 0 || days > MaxDays {
		return nil, common.NewValidationError(fmt.Sprintf("days must be between 1 and %d", MaxDays))
	}
	start = common.CalendarDate(start)
	plans := make([]*model.Plan, 0, days)
	for i := 0; i < days; i++ {
		p, err := s.Generate(ctx, userID, start.AddDate(0, 0, i))
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// GetPlan 取得指定日期的計畫
func (s *Service) GetPlan(ctx context.Context, userID string, date time.Time) (*model.Plan, error) {
	p, err := s.plans.FindByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Wrap(common.ErrPlanNotFound, err)
		}
		return nil, err
	}
	return p, nil
}

// ListPlans 取得日期區間內的計畫
func (s *Service) ListPlans(ctx context.Context, userID string, from, to time.Time) ([]model.Plan, error) {
	if to.Before(from) {
		return nil, common.NewValidationError("to must not be before from")
	}
	return s.plans.ListByUser(ctx, userID, from, to)
}

// currentExternalID 目前餐次食譜的 externalId，沒有指派時為空字串
func (s *Service) currentExternalID(ctx context.Context, p *model.Plan, slot model.MealSlot) (string, error) {
	id := p.MealID(slot)
	if id == nil {
		return "", nil
	}
	r, err := s.lookup.GetByID(ctx, *id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return r.ExternalID, nil
}

// SwapMeal 排除目前的食譜重新解析單一餐次，並標記為 SWAPPED
func (s *Service) SwapMeal(ctx context.Context, userID string, date time.Time, slot model.MealSlot) (*model.Plan, error) {
	p, err := s.GetPlan(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude, err := s.currentExternalID(ctx, p, slot)
	if err != nil {
		return nil, err
	}

	r, err := s.recipes.FindOrCreateRecipe(ctx, profile, slot, exclude)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, common.Wrap(common.ErrRecipeNotFound, fmt.Errorf("no replacement recipe for %s", slot))
	}

	id := r.ID
	p.SetMeal(slot, &id)
	p.SetStatus(slot, model.StatusSwapped)
	return s.save(ctx, p)
}

// RemoveMeal 清空餐次並重設為 PENDING
func (s *Service) RemoveMeal(ctx context.Context, userID string, date time.Time, slot model.MealSlot) (*model.Plan, error) {
	p, err := s.GetPlan(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	p.SetMeal(slot, nil)
	p.SetStatus(slot, model.StatusPending)
	return s.save(ctx, p)
}

// UpdateMealStatus 更新餐點狀態
func (s *Service) UpdateMealStatus(ctx context.Context, userID string, date time.Time, slot model.MealSlot, status model.MealStatus) (*model.Plan, error) {
	p, err := s.GetPlan(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	p.SetStatus(slot, status)
	return s.save(ctx, p)
}

func (s *Service) save(ctx context.Context, p *model.Plan) (*model.Plan, error) {
	if err := s.plans.Save(ctx, p); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Wrap(common.ErrPlanNotFound, err)
		}
		return nil, err
	}
	return s.GetPlan(ctx, p.UserID, p.Date)
}
