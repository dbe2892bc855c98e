package service

import (
	"time"

	"github.com/pledgelog/internal/db"
)

// MissReason 描述一次缺席的原因：闭集分类 + 可选自定义文本
type MissReason struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// findOrCreateDay 返回指定日期的状态记录，不存在时追加一条空记录
func findOrCreateDay(habit *db.Habit, date string) *db.HabitDay {
	for i := range habit.Days {
		if habit.Days[i].Date == date {
			return &habit.Days[i]
		}
	}
	habit.Days = append(habit.Days, db.HabitDay{HabitID: habit.ID, Date: date})
	return &habit.Days[len(habit.Days)-1]
}

// applyCompletion 把指定日期记为完成并重算连胜。
// 当天已完成时返回 false（幂等空操作）；当天若先前被记为缺席或待说明，
// 完成记录覆盖旧状态（后到的完成永远胜出），但已产生的押金累计不回退。
func applyCompletion(habit *db.Habit, date string, now time.Time) bool {
	day := findOrCreateDay(habit, date)
	if day.Status == db.DayCompleted {
		return false
	}

	day.Status = db.DayCompleted
	day.ReasonCategory = ""
	day.ReasonText = ""
	day.ReasonAt = nil

	habit.Streak = CalculateStreak(habit.CompletedDates())
	completedAt := now
	habit.LastCompleted = &completedAt
	return true
}

// applyDeferredMiss 把指定日期记为"待说明"，账务与连胜的后果推迟到原因补交时。
// 已完成、已待说明或已结清（带原因的缺席）的日期不做任何变更。
func applyDeferredMiss(habit *db.Habit, date string) bool {
	day := findOrCreateDay(habit, date)
	switch day.Status {
	case db.DayPending, db.DayCompleted, db.DayMissed:
		return false
	}
	day.Status = db.DayPending
	return true
}

// applyFinalizedMiss 把指定日期落为带原因的缺席：累计押金、清零连胜。
// 同一日期重复提交原因时返回 false，保证一次缺席最多产生一笔扣款。
// 返回 true 时调用方必须在同一事务内追加对应的 Payment 记录。
func applyFinalizedMiss(habit *db.Habit, date string, reason MissReason, now time.Time) bool {
	day := findOrCreateDay(habit, date)
	if day.Status == db.DayMissed {
		return false
	}

	reasonAt := now
	day.Status = db.DayMissed
	day.ReasonCategory = reason.Category
	day.ReasonText = reason.Text
	day.ReasonAt = &reasonAt

	habit.TotalPledged += habit.PledgeAmount
	habit.Streak = 0
	return true
}
