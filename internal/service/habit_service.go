package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pledgelog/internal/db"
	"github.com/pledgelog/internal/store"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回（仅查询接口使用，变更接口按约定静默忽略）
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitTitleRequired 在标题为空时返回
	ErrHabitTitleRequired = errors.New("habit title is required")
	// ErrInvalidPledge 在押金为负数时返回
	ErrInvalidPledge = errors.New("pledge amount must not be negative")
	// ErrInvalidFrequency 当频率配置异常时返回
	ErrInvalidFrequency = errors.New("invalid habit frequency configuration")
	// ErrInvalidReason 在缺席原因分类不在闭集内时返回
	ErrInvalidReason = errors.New("invalid miss reason category")
	// ErrInvalidDate 在日期格式错误或早于习惯创建日时返回
	ErrInvalidDate = errors.New("invalid date")
)

// HabitService 是聚合控制器：唯一接触持久化层的组件。
// 每次变更调用都遵循 加载 → 定位 → 纯函数变换 → 取消请求清扫 → 事务写回 的顺序，
// 同一集合上的操作由调用方串行化，不做内部加锁。
// now/newID 可注入，测试中用固定时钟与序列号替换。
type HabitService struct {
	store *store.Store
	now   func() time.Time
	newID func() string
}

// HabitInput 定义创建习惯时可配置字段
type HabitInput struct {
	Title       string
	Description string
	Frequency   string

	DaysOfWeek    string
	IntervalDays  int
	TimesPerWeek  int
	TimesPerMonth int
	PeriodTimes   int
	PeriodDays    int

	PledgeAmount float64
}

// NewHabitService 构造 HabitService
func NewHabitService(s *store.Store) *HabitService {
	return &HabitService{
		store: s,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create 新建习惯：校验通过后以活跃状态、空历史入库
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		PublicID:      s.newID(),
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Frequency:     strings.TrimSpace(strings.ToLower(input.Frequency)),
		DaysOfWeek:    strings.TrimSpace(input.DaysOfWeek),
		IntervalDays:  input.IntervalDays,
		TimesPerWeek:  input.TimesPerWeek,
		TimesPerMonth: input.TimesPerMonth,
		PeriodTimes:   input.PeriodTimes,
		PeriodDays:    input.PeriodDays,
		PledgeAmount:  input.PledgeAmount,
		IsActive:      true,
	}
	habit.CreatedAt = s.now()

	habits, err := s.store.LoadHabits()
	if err != nil {
		return nil, err
	}
	habits = append(habits, habit)

	if err := s.persist(habits, nil); err != nil {
		return nil, err
	}
	return &habits[len(habits)-1], nil
}

// List 返回全部习惯；加载时顺带执行一次取消请求清扫
func (s *HabitService) List() ([]db.Habit, error) {
	return s.load()
}

// ActiveHabits 返回仍在活跃状态的习惯（含冷静期内的）
func (s *HabitService) ActiveHabits() ([]db.Habit, error) {
	habits, err := s.load()
	if err != nil {
		return nil, err
	}

	active := make([]db.Habit, 0, len(habits))
	for i := range habits {
		if habits[i].IsActive {
			active = append(active, habits[i])
		}
	}
	return active, nil
}

// Get 按公开 ID 获取习惯
func (s *HabitService) Get(publicID string) (*db.Habit, error) {
	habits, err := s.load()
	if err != nil {
		return nil, err
	}
	if habit := findHabit(habits, publicID); habit != nil {
		return habit, nil
	}
	return nil, ErrHabitNotFound
}

// Delete 将习惯移出集合；其历史扣款保留在账单中供回溯
func (s *HabitService) Delete(publicID string) error {
	habits, err := s.store.LoadHabits()
	if err != nil {
		return err
	}

	kept := make([]db.Habit, 0, len(habits))
	for i := range habits {
		if habits[i].PublicID != publicID {
			kept = append(kept, habits[i])
		}
	}
	if len(kept) == len(habits) {
		return nil
	}

	return s.persist(kept, nil)
}

// Complete 把今天记为完成。重复调用为幂等空操作；未知 ID 静默忽略。
func (s *HabitService) Complete(publicID string) error {
	habits, err := s.store.LoadHabits()
	if err != nil {
		return err
	}

	habit := findHabit(habits, publicID)
	if habit == nil {
		return nil
	}

	now := s.now()
	changed := applyCompletion(habit, formatDate(dateOnly(now)), now)
	changed = sweepCancellations(habits, now) || changed
	if !changed {
		return nil
	}
	return s.persist(habits, nil)
}

// MarkMissed 把今天记为缺席。
// 给出原因时立即结清：记缺席、存原因、生成待处理扣款、押金累计、连胜清零；
// 原因为空时只把当天挂为"待说明"，账务后果推迟到 ProvideReason。
func (s *HabitService) MarkMissed(publicID string, reason *MissReason) error {
	now := s.now()
	return s.finalizeOrDefer(publicID, formatDate(dateOnly(now)), reason)
}

// ProvideReason 为任意历史日期补交缺席原因，用于解决漏掉检测或此前挂起的缺席。
// 同一日期重复提交只产生一笔扣款（第二次为幂等空操作）。
func (s *HabitService) ProvideReason(publicID, date string, reason MissReason) error {
	return s.finalizeOrDefer(publicID, date, &reason)
}

func (s *HabitService) finalizeOrDefer(publicID, date string, reason *MissReason) error {
	if reason != nil && !db.ValidReasonCategory(reason.Category) {
		return fmt.Errorf("%w: %s", ErrInvalidReason, reason.Category)
	}

	habits, err := s.store.LoadHabits()
	if err != nil {
		return err
	}

	habit := findHabit(habits, publicID)
	if habit == nil {
		return nil
	}

	if parsed, err := parseDate(date); err != nil || parsed.Before(dateOnly(habit.CreatedAt)) {
		return fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}

	now := s.now()
	var payment *db.Payment
	var changed bool

	if reason == nil {
		changed = applyDeferredMiss(habit, date)
	} else if changed = applyFinalizedMiss(habit, date, *reason, now); changed {
		payment = &db.Payment{
			PublicID:       s.newID(),
			HabitID:        habit.PublicID,
			Amount:         habit.PledgeAmount,
			Date:           now,
			Reason:         fmt.Sprintf("Missed habit: %s (%s)", habit.Title, date),
			ReasonCategory: reason.Category,
			Status:         db.PaymentPending,
		}
	}

	changed = sweepCancellations(habits, now) || changed
	if !changed {
		return nil
	}
	return s.persist(habits, payment)
}

// RequestCancellation 发起取消请求，进入 7 天冷静期
func (s *HabitService) RequestCancellation(publicID string) error {
	return s.mutateCancellation(publicID, func(habit *db.Habit, now time.Time) bool {
		return applyCancellationRequest(habit, now)
	})
}

// CancelCancellationRequest 撤回取消请求，习惯恢复正常
func (s *HabitService) CancelCancellationRequest(publicID string) error {
	return s.mutateCancellation(publicID, func(habit *db.Habit, _ time.Time) bool {
		return applyCancellationReversal(habit)
	})
}

func (s *HabitService) mutateCancellation(publicID string, apply func(*db.Habit, time.Time) bool) error {
	habits, err := s.store.LoadHabits()
	if err != nil {
		return err
	}

	habit := findHabit(habits, publicID)
	if habit == nil {
		return nil
	}

	now := s.now()
	changed := apply(habit, now)
	changed = sweepCancellations(habits, now) || changed
	if !changed {
		return nil
	}
	return s.persist(habits, nil)
}

// ProcessPendingCancellations 显式触发一次取消请求清扫
func (s *HabitService) ProcessPendingCancellations() error {
	habits, err := s.store.LoadHabits()
	if err != nil {
		return err
	}
	if !sweepCancellations(habits, s.now()) {
		return nil
	}
	return s.persist(habits, nil)
}

// DaysUntilCancellation 返回冷静期剩余天数，未处于冷静期时为 nil
func (s *HabitService) DaysUntilCancellation(habit *db.Habit) *int {
	return CancellationDaysRemaining(habit, s.now())
}

// DueOn 返回指定日期待办的活跃习惯
func (s *HabitService) DueOn(date time.Time) ([]db.Habit, error) {
	habits, err := s.load()
	if err != nil {
		return nil, err
	}

	due := make([]db.Habit, 0, len(habits))
	for i := range habits {
		if habits[i].IsActive && IsDueOn(&habits[i], date) {
			due = append(due, habits[i])
		}
	}
	return due, nil
}

// DueToday 返回今天待办的活跃习惯
func (s *HabitService) DueToday() ([]db.Habit, error) {
	return s.DueOn(s.now())
}

// PendingReasons 重新推导当前所有待说明的漏掉日期
func (s *HabitService) PendingReasons() ([]PendingReason, error) {
	habits, err := s.load()
	if err != nil {
		return nil, err
	}
	return FindPendingReasons(habits, s.now()), nil
}

// TotalPledged 返回全部习惯的押金累计
func (s *HabitService) TotalPledged() (float64, error) {
	habits, err := s.load()
	if err != nil {
		return 0, err
	}

	var total float64
	for i := range habits {
		total += habits[i].TotalPledged
	}
	return total, nil
}

// Reset 清空全部数据，仅供显式重置动作使用
func (s *HabitService) Reset() error {
	return s.store.ClearAll()
}

// load 读取集合并执行取消请求清扫；有变化时先写回再返回
func (s *HabitService) load() ([]db.Habit, error) {
	habits, err := s.store.LoadHabits()
	if err != nil {
		return nil, err
	}

	if sweepCancellations(habits, s.now()) {
		if err := s.persist(habits, nil); err != nil {
			return nil, err
		}
	}
	return habits, nil
}

// persist 在单个事务内写回集合、追加扣款并重新发布档案聚合，
// 保证扣款记录与习惯字段更新不会只落地一半
func (s *HabitService) persist(habits []db.Habit, payment *db.Payment) error {
	return s.store.Transaction(func(tx *store.Store) error {
		if payment != nil {
			if err := tx.AddPayment(payment); err != nil {
				return err
			}
		}
		if err := tx.SaveHabits(habits); err != nil {
			return err
		}
		return publishProfile(tx, habits, s.now())
	})
}

func findHabit(habits []db.Habit, publicID string) *db.Habit {
	for i := range habits {
		if habits[i].PublicID == publicID {
			return &habits[i]
		}
	}
	return nil
}

func validateHabitInput(input HabitInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return ErrHabitTitleRequired
	}

	if input.PledgeAmount < 0 {
		return ErrInvalidPledge
	}

	frequency := strings.TrimSpace(strings.ToLower(input.Frequency))
	switch frequency {
	case db.FrequencyDaily, db.FrequencyWeekly, db.FrequencyMonthly, db.FrequencyCustom:
		return nil
	default:
		return fmt.Errorf("%w: unsupported frequency %s", ErrInvalidFrequency, input.Frequency)
	}
}
