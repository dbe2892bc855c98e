package service

import (
	"time"

	"github.com/pledgelog/internal/db"
)

// EnsureSampleData 在集合为空时写入一组演示习惯，便于首次启动时有数据可看。
// 集合非空则不做任何事。
func (s *HabitService) EnsureSampleData() error {
	habits, err := s.store.LoadHabits()
	if err != nil {
		return err
	}
	if len(habits) > 0 {
		return nil
	}
	return s.persist(s.sampleHabits(), nil)
}

// sampleHabits 构造演示数据集：两个每日习惯（带交错的完成/缺席记录）和一个每周习惯
func (s *HabitService) sampleHabits() []db.Habit {
	now := s.now()
	today := dateOnly(now)
	daysAgo := func(n int) string {
		return formatDate(today.AddDate(0, 0, -n))
	}

	exercise := db.Habit{
		PublicID:     s.newID(),
		Title:        "Morning Exercise",
		Description:  "Do 30 minutes of cardio or strength training",
		Frequency:    db.FrequencyDaily,
		PledgeAmount: 5,
		TotalPledged: 10,
		IsActive:     true,
		Streak:       3,
	}
	exercise.CreatedAt = now.AddDate(0, 0, -7)
	for _, n := range []int{6, 5, 3, 2, 1} {
		exercise.Days = append(exercise.Days, db.HabitDay{Date: daysAgo(n), Status: db.DayCompleted})
	}
	for _, n := range []int{7, 4} {
		exercise.Days = append(exercise.Days, sampleMiss(daysAgo(n), now))
	}

	reading := db.Habit{
		PublicID:     s.newID(),
		Title:        "Read for 20 minutes",
		Description:  "Read books, articles, or educational content",
		Frequency:    db.FrequencyDaily,
		PledgeAmount: 3,
		TotalPledged: 6,
		IsActive:     true,
		Streak:       2,
	}
	reading.CreatedAt = now.AddDate(0, 0, -5)
	for _, n := range []int{4, 2, 1} {
		reading.Days = append(reading.Days, db.HabitDay{Date: daysAgo(n), Status: db.DayCompleted})
	}
	for _, n := range []int{5, 3} {
		reading.Days = append(reading.Days, sampleMiss(daysAgo(n), now))
	}

	mealPrep := db.Habit{
		PublicID:     s.newID(),
		Title:        "Weekly Meal Prep",
		Description:  "Prepare healthy meals for the week",
		Frequency:    db.FrequencyWeekly,
		PledgeAmount: 10,
		TotalPledged: 10,
		IsActive:     true,
		Streak:       1,
	}
	mealPrep.CreatedAt = now.AddDate(0, 0, -14)
	mealPrep.Days = append(mealPrep.Days,
		db.HabitDay{Date: daysAgo(7), Status: db.DayCompleted},
		sampleMiss(daysAgo(14), now),
	)

	return []db.Habit{exercise, reading, mealPrep}
}

func sampleMiss(date string, now time.Time) db.HabitDay {
	reasonAt := now
	return db.HabitDay{
		Date:           date,
		Status:         db.DayMissed,
		ReasonCategory: db.ReasonNoTime,
		ReasonAt:       &reasonAt,
	}
}
