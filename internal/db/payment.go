package db

import (
	"time"

	"gorm.io/gorm"
)

// 扣款记录状态：引擎只记录扣款意图，不对接真实支付网关
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment 记录单次缺席触发的押金扣款
// 与习惯的字段更新在同一事务内落库，删除习惯时保留作为历史账目
type Payment struct {
	gorm.Model
	PublicID       string `gorm:"uniqueIndex;size:36"`
	HabitID        string `gorm:"index;size:36"`
	Amount         float64
	Date           time.Time
	Reason         string
	ReasonCategory string
	Status         string `gorm:"default:pending"`
}
