package service

import (
	"time"

	"github.com/pledgelog/internal/db"
)

// CoolingOffDays 是取消请求与真正停用之间的固定冷静期。
// 押了钱的承诺不允许一时冲动说放弃就放弃。
const CoolingOffDays = 7

// applyCancellationRequest 记录取消请求时间，进入冷静期。
// 已处于冷静期时返回 false（幂等空操作）。
func applyCancellationRequest(habit *db.Habit, now time.Time) bool {
	if habit.CancellationRequestedAt != nil {
		return false
	}
	requestedAt := now
	habit.CancellationRequestedAt = &requestedAt
	return true
}

// applyCancellationReversal 撤回取消请求，习惯回到正常活跃状态
func applyCancellationReversal(habit *db.Habit) bool {
	if habit.CancellationRequestedAt == nil {
		return false
	}
	habit.CancellationRequestedAt = nil
	return true
}

// sweepCancellations 批量处理到期的取消请求：冷静期满 7 天的习惯停用并清除标记。
// 设计为每次加载集合时执行一次，返回是否有任何习惯发生变化。
func sweepCancellations(habits []db.Habit, now time.Time) bool {
	changed := false
	for i := range habits {
		requestedAt := habits[i].CancellationRequestedAt
		if requestedAt == nil {
			continue
		}
		if now.Sub(*requestedAt) >= CoolingOffDays*24*time.Hour {
			habits[i].IsActive = false
			habits[i].CancellationRequestedAt = nil
			changed = true
		}
	}
	return changed
}

// CancellationDaysRemaining 返回距离习惯被正式取消还剩的天数（向上取整，最小为 0）。
// 不在冷静期内时返回 nil，仅供展示层使用。
func CancellationDaysRemaining(habit *db.Habit, now time.Time) *int {
	requestedAt := habit.CancellationRequestedAt
	if requestedAt == nil {
		return nil
	}

	deadline := requestedAt.Add(CoolingOffDays * 24 * time.Hour)
	remaining := deadline.Sub(now)

	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	if days < 0 {
		days = 0
	}
	return &days
}
