package db

import (
	"time"

	"gorm.io/gorm"
)

// 习惯频率取值
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyCustom  = "custom"
)

// 单日状态取值：同一天在一个习惯上只允许存在一条记录，
// 由 habit_id + date 唯一索引从结构上保证"完成/缺席/待说明"三者互斥
const (
	DayCompleted = "completed"
	DayMissed    = "missed"
	DayPending   = "pending"
)

// 缺席原因分类（闭集），other 需要补充自定义文本
const (
	ReasonStressed   = "stressed"
	ReasonDistracted = "distracted"
	ReasonNoTime     = "no_time"
	ReasonSick       = "sick"
	ReasonEmergency  = "emergency"
	ReasonOther      = "other"
)

// Habit 定义了习惯模型
// Frequency 支持 daily/weekly/monthly/custom；custom 通过下方描述符字段配置，
// 每个习惯只允许一个描述符字段生效（求值优先级见 service 层）
// PledgeAmount 为单次缺席的押金，TotalPledged 只增不减（删除习惯除外）
// CancellationRequestedAt 非空表示处于取消冷静期
type Habit struct {
	gorm.Model
	PublicID    string `gorm:"uniqueIndex;size:36"`
	Title       string `gorm:"not null"`
	Description string
	Frequency   string `gorm:"default:daily"`

	// custom 频率描述符
	DaysOfWeek    string // 逗号分隔的星期序号，周日为 0，例如 "1,3,5"
	IntervalDays  int    // 每 N 天一次
	TimesPerWeek  int    // 每周 N 次
	TimesPerMonth int    // 每月 N 次
	PeriodTimes   int    // 滚动窗口内 N 次
	PeriodDays    int    // 滚动窗口天数 M

	PledgeAmount float64
	TotalPledged float64
	IsActive     bool `gorm:"default:true"`
	Streak       int

	LastCompleted           *time.Time
	CancellationRequestedAt *time.Time

	Days []HabitDay `gorm:"constraint:OnDelete:CASCADE"`
}

// HabitDay 记录习惯单日的解决状态
// Habit + Date 采用唯一索引，保证同一天最多一条状态；原因字段仅在 missed 时填写
type HabitDay struct {
	gorm.Model
	HabitID        uint   `gorm:"index;index:idx_habit_day_unique,unique"`
	Date           string `gorm:"size:10;index:idx_habit_day_unique,unique"`
	Status         string
	ReasonCategory string
	ReasonText     string
	ReasonAt       *time.Time
}

// TableName 重写确保唯一索引作用到 habit_id + date
func (HabitDay) TableName() string {
	return "habit_days"
}

// DayStatus 返回指定日期的状态，未记录时返回空串
func (h *Habit) DayStatus(date string) string {
	for i := range h.Days {
		if h.Days[i].Date == date {
			return h.Days[i].Status
		}
	}
	return ""
}

// DatesWithStatus 返回处于指定状态的日期列表（派生视图，非主数据）
func (h *Habit) DatesWithStatus(status string) []string {
	dates := make([]string, 0, len(h.Days))
	for i := range h.Days {
		if h.Days[i].Status == status {
			dates = append(dates, h.Days[i].Date)
		}
	}
	return dates
}

// CompletedDates 返回已完成日期
func (h *Habit) CompletedDates() []string {
	return h.DatesWithStatus(DayCompleted)
}

// MissedDates 返回已确认缺席的日期
func (h *Habit) MissedDates() []string {
	return h.DatesWithStatus(DayMissed)
}

// PendingReasonDates 返回等待说明原因的日期
func (h *Habit) PendingReasonDates() []string {
	return h.DatesWithStatus(DayPending)
}

// ValidReasonCategory 校验缺席原因是否属于闭集
func ValidReasonCategory(category string) bool {
	switch category {
	case ReasonStressed, ReasonDistracted, ReasonNoTime, ReasonSick, ReasonEmergency, ReasonOther:
		return true
	default:
		return false
	}
}
