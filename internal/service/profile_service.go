package service

import (
	"time"

	"github.com/pledgelog/internal/db"
	"github.com/pledgelog/internal/store"
)

// ProfileService 维护用户档案及其冗余聚合字段
type ProfileService struct {
	store *store.Store
}

// NewProfileService 构造 ProfileService
func NewProfileService(s *store.Store) *ProfileService {
	return &ProfileService{store: s}
}

// Get 返回用户档案，不存在时返回 nil
func (s *ProfileService) Get() (*db.Profile, error) {
	return s.store.LoadProfile()
}

// Update 更新档案的基础信息，聚合字段不在此处修改
func (s *ProfileService) Update(name, email string) (*db.Profile, error) {
	profile, err := s.store.LoadProfile()
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &db.Profile{JoinedAt: time.Now()}
	}

	profile.Name = name
	profile.Email = email
	if err := s.store.SaveProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// publishProfile 依据当前习惯集合重新发布档案聚合字段（活跃习惯数、押金累计、已扣款总额）。
// 习惯每次变更后在同一事务内调用。
func publishProfile(tx *store.Store, habits []db.Habit, now time.Time) error {
	profile, err := tx.LoadProfile()
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &db.Profile{JoinedAt: now}
	}

	var totalPledged float64
	active := 0
	for i := range habits {
		totalPledged += habits[i].TotalPledged
		if habits[i].IsActive {
			active++
		}
	}

	payments, err := tx.LoadPayments()
	if err != nil {
		return err
	}
	var totalCharged float64
	for i := range payments {
		if payments[i].Status == db.PaymentCompleted {
			totalCharged += payments[i].Amount
		}
	}

	profile.TotalPledged = totalPledged
	profile.TotalCharged = totalCharged
	profile.ActiveHabits = active
	return tx.SaveProfile(profile)
}
