package store

import (
	"errors"
	"fmt"

	"github.com/pledgelog/internal/db"
	"gorm.io/gorm"
)

// Store 封装习惯/账单/档案三个集合的持久化契约。
// 习惯集合采用整体替换语义（读出-修改-写回），不提供局部更新；
// 账单为只追加日志；档案为单条记录。
type Store struct {
	db *gorm.DB
}

// NewStore 构造 Store
func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// Transaction 在单个数据库事务内执行 fn，保证账单与习惯更新同生共死
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// LoadHabits 读取全部习惯（含逐日状态），按创建时间排序
func (s *Store) LoadHabits() ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.db.Preload("Days").Order("created_at ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	return habits, nil
}

// SaveHabits 以整体替换语义写回习惯集合：
// 不在集合内的记录被删除，其余逐条连同逐日状态落库
func (s *Store) SaveHabits(habits []db.Habit) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(habits))
		for i := range habits {
			ids = append(ids, habits[i].PublicID)
		}

		query := tx.Model(&db.Habit{})
		if len(ids) > 0 {
			query = query.Where("public_id NOT IN ?", ids)
		} else {
			query = query.Where("1 = 1")
		}
		if err := query.Delete(&db.Habit{}).Error; err != nil {
			return fmt.Errorf("prune habits: %w", err)
		}

		for i := range habits {
			if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&habits[i]).Error; err != nil {
				return fmt.Errorf("save habit %s: %w", habits[i].PublicID, err)
			}
		}

		return nil
	})
}

// AddPayment 追加一条扣款记录，历史账单永不删除（ClearAll 除外）
func (s *Store) AddPayment(payment *db.Payment) error {
	if err := s.db.Create(payment).Error; err != nil {
		return fmt.Errorf("add payment: %w", err)
	}
	return nil
}

// LoadPayments 按时间倒序返回全部扣款记录
func (s *Store) LoadPayments() ([]db.Payment, error) {
	var payments []db.Payment
	if err := s.db.Order("date DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return payments, nil
}

// LoadProfile 读取用户档案，不存在时返回 nil
func (s *Store) LoadProfile() (*db.Profile, error) {
	var profile db.Profile
	if err := s.db.First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile 写回单条用户档案
func (s *Store) SaveProfile(profile *db.Profile) error {
	if err := s.db.Save(profile).Error; err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ClearAll 清空全部集合，仅供显式重置动作使用
func (s *Store) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&db.HabitDay{}, &db.Habit{}, &db.Payment{}, &db.Profile{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
				return fmt.Errorf("clear collection: %w", err)
			}
		}
		return nil
	})
}
