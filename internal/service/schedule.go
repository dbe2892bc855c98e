package service

import (
	"sort"
	"strings"
	"time"

	"github.com/pledgelog/internal/db"
)

const dateFormat = "2006-01-02"

// PendingReason 表示某个习惯存在一条"漏掉且尚未说明原因"的日期
// 该结构不落库，每次从习惯自身的历史重新推导，保证重复计算结果一致
type PendingReason struct {
	HabitID    string `json:"habit_id"`
	HabitTitle string `json:"habit_title"`
	Date       string `json:"date"`
}

// recurrence 把扁平存储的频率字段归一成带标签的单一变体，
// 求值时只看 kind，消除"多个可选字段同时生效"的歧义。
// custom 描述符若配置了多个字段，按 interval → 每周 → 每月 → 滚动窗口 → 星期集合
// 的优先级只取第一个生效的。
type recurrence struct {
	kind     recurrenceKind
	interval int
	target   int
	window   int
	weekdays map[time.Weekday]bool
}

type recurrenceKind int

const (
	recurNone recurrenceKind = iota
	recurDaily
	recurWeekly
	recurMonthly
	recurInterval
	recurPerWeek
	recurPerMonth
	recurInPeriod
	recurWeekdays
)

func recurrenceOf(habit *db.Habit) recurrence {
	switch habit.Frequency {
	case db.FrequencyDaily:
		return recurrence{kind: recurDaily}
	case db.FrequencyWeekly:
		return recurrence{kind: recurWeekly}
	case db.FrequencyMonthly:
		return recurrence{kind: recurMonthly}
	case db.FrequencyCustom:
		switch {
		case habit.IntervalDays > 0:
			return recurrence{kind: recurInterval, interval: habit.IntervalDays}
		case habit.TimesPerWeek > 0:
			return recurrence{kind: recurPerWeek, target: habit.TimesPerWeek}
		case habit.TimesPerMonth > 0:
			return recurrence{kind: recurPerMonth, target: habit.TimesPerMonth}
		case habit.PeriodTimes > 0 && habit.PeriodDays > 0:
			return recurrence{kind: recurInPeriod, target: habit.PeriodTimes, window: habit.PeriodDays}
		default:
			if days := parseWeekdaySet(habit.DaysOfWeek); len(days) > 0 {
				return recurrence{kind: recurWeekdays, weekdays: days}
			}
			return recurrence{kind: recurNone}
		}
	default:
		return recurrence{kind: recurNone}
	}
}

func parseWeekdaySet(raw string) map[time.Weekday]bool {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// 星期序号与原始数据一致：周日为 0
		if part >= "0" && part <= "6" && len(part) == 1 {
			days[time.Weekday(part[0]-'0')] = true
		}
	}
	return days
}

// IsDueOn 判断习惯在指定日历日是否待办。
// 纯函数：同一天已有任何状态记录（完成/缺席/待说明）即不再待办；
// 早于创建日的日期一律不待办。
// monthly 的锚定日在短月不存在时直接跳过该月（不向月末收拢）。
func IsDueOn(habit *db.Habit, date time.Time) bool {
	day := dateOnly(date)
	created := dateOnly(habit.CreatedAt)

	if day.Before(created) {
		return false
	}
	if habit.DayStatus(formatDate(day)) != "" {
		return false
	}

	switch rec := recurrenceOf(habit); rec.kind {
	case recurDaily:
		return true
	case recurWeekly:
		return day.Weekday() == created.Weekday()
	case recurMonthly:
		return day.Day() == created.Day()
	case recurInterval:
		return daysBetween(created, day)%rec.interval == 0
	case recurPerWeek:
		start, end := weekBounds(day)
		return countCompletedBetween(habit, start, end) < rec.target
	case recurPerMonth:
		start, end := monthBounds(day)
		return countCompletedBetween(habit, start, end) < rec.target
	case recurInPeriod:
		start := day.AddDate(0, 0, -(rec.window - 1))
		return countCompletedBetween(habit, start, day) < rec.target
	case recurWeekdays:
		return rec.weekdays[day.Weekday()]
	default:
		return false
	}
}

// CalculateStreak 计算连续完成天数：按日期倒序，相邻两天间隔恰为一天则累加。
// 刻意不感知频率配置，周更习惯的连胜通常不会超过 1，这是源产品的既定口径。
func CalculateStreak(completedDates []string) int {
	if len(completedDates) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(completedDates))
	dates := make([]time.Time, 0, len(completedDates))
	for _, raw := range completedDates {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		parsed, err := parseDate(raw)
		if err != nil {
			continue
		}
		dates = append(dates, parsed)
	}
	if len(dates) == 0 {
		return 0
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	streak := 1
	for i := 1; i < len(dates); i++ {
		if daysBetween(dates[i], dates[i-1]) != 1 {
			break
		}
		streak++
	}
	return streak
}

// FindPendingReasons 扫描全部活跃习惯，找出"本该有结果却没有记录"的历史日期。
// daily 只看昨天；weekly/monthly 看最近一个已经过去的周期边界（周日/上月末）；
// custom 星期集合回看最近 7 天。结果不持久化，随算随取。
func FindPendingReasons(habits []db.Habit, today time.Time) []PendingReason {
	day := dateOnly(today)
	pending := make([]PendingReason, 0)

	for i := range habits {
		habit := &habits[i]
		if !habit.IsActive {
			continue
		}

		for _, candidate := range slipCandidates(habit, day) {
			if slipped(habit, candidate) {
				pending = append(pending, PendingReason{
					HabitID:    habit.PublicID,
					HabitTitle: habit.Title,
					Date:       formatDate(candidate),
				})
			}
		}
	}

	return pending
}

func slipCandidates(habit *db.Habit, today time.Time) []time.Time {
	switch rec := recurrenceOf(habit); rec.kind {
	case recurDaily:
		return []time.Time{today.AddDate(0, 0, -1)}
	case recurWeekly:
		// 最近一个已经过去的周日
		offset := int(today.Weekday())
		if offset == 0 {
			offset = 7
		}
		return []time.Time{today.AddDate(0, 0, -offset)}
	case recurMonthly:
		// 上一个月的最后一天
		start, _ := monthBounds(today)
		return []time.Time{start.AddDate(0, 0, -1)}
	case recurWeekdays:
		candidates := make([]time.Time, 0, 7)
		for i := 7; i >= 1; i-- {
			candidate := today.AddDate(0, 0, -i)
			if rec.weekdays[candidate.Weekday()] {
				candidates = append(candidates, candidate)
			}
		}
		return candidates
	default:
		return nil
	}
}

// slipped 判断历史日期是否属于漏掉：未完成、未确认缺席，且不早于创建日。
// 该检查与 IsDueOn 的"当日已解决"排除逻辑相互独立，因为这里处理的是过去的日期。
func slipped(habit *db.Habit, date time.Time) bool {
	if date.Before(dateOnly(habit.CreatedAt)) {
		return false
	}
	switch habit.DayStatus(formatDate(date)) {
	case db.DayCompleted, db.DayMissed:
		return false
	default:
		return true
	}
}

func countCompletedBetween(habit *db.Habit, start, end time.Time) int {
	count := 0
	for i := range habit.Days {
		if habit.Days[i].Status != db.DayCompleted {
			continue
		}
		parsed, err := parseDate(habit.Days[i].Date)
		if err != nil {
			continue
		}
		if !parsed.Before(start) && !parsed.After(end) {
			count++
		}
	}
	return count
}

// --- 日历辅助：所有运算基于 UTC 零点，只关心年月日，不受时区偏移影响 ---

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateFormat, raw, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

// weekBounds 返回包含 day 的自然周（周日开始）首末两天
func weekBounds(day time.Time) (time.Time, time.Time) {
	start := day.AddDate(0, 0, -int(day.Weekday()))
	return start, start.AddDate(0, 0, 6)
}

// monthBounds 返回包含 day 的自然月首末两天
func monthBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}
