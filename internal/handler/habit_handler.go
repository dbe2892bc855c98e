package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pledgelog/internal/db"
	"github.com/pledgelog/internal/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const dateFormat = "2006-01-02"

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type habitPayload struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Frequency     string  `json:"frequency"`
	DaysOfWeek    string  `json:"days_of_week"`
	IntervalDays  int     `json:"interval_days"`
	TimesPerWeek  int     `json:"times_per_week"`
	TimesPerMonth int     `json:"times_per_month"`
	PeriodTimes   int     `json:"period_times"`
	PeriodDays    int     `json:"period_days"`
	PledgeAmount  float64 `json:"pledge_amount"`
}

type missPayload struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

type reasonPayload struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// ListHabits 返回习惯列表 JSON，支持 active=true 过滤
func (a *API) ListHabits(c *gin.Context) {
	var habits []db.Habit
	var err error

	if c.Query("active") == "true" {
		habits, err = a.habits.ActiveHabits()
	} else {
		habits, err = a.habits.List()
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for i := range habits {
		items = append(items, a.habitToPayload(&habits[i]))
	}
	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// GetHabit 返回单个习惯详情，描述以净化后的 HTML 一并返回
func (a *API) GetHabit(c *gin.Context) {
	habit, err := a.habits.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrHabitNotFound) {
			respondError(c, http.StatusNotFound, "习惯不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "加载习惯失败")
		return
	}

	payload := a.habitToPayload(habit)
	payload["description_html"] = renderDescription(habit.Description)
	c.JSON(http.StatusOK, gin.H{"habit": payload})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Create(service.HabitInput{
		Title:         payload.Title,
		Description:   payload.Description,
		Frequency:     payload.Frequency,
		DaysOfWeek:    payload.DaysOfWeek,
		IntervalDays:  payload.IntervalDays,
		TimesPerWeek:  payload.TimesPerWeek,
		TimesPerMonth: payload.TimesPerMonth,
		PeriodTimes:   payload.PeriodTimes,
		PeriodDays:    payload.PeriodDays,
		PledgeAmount:  payload.PledgeAmount,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": a.habitToPayload(habit)})
}

// DeleteHabit 删除习惯，历史账单保留
func (a *API) DeleteHabit(c *gin.Context) {
	if err := a.habits.Delete(c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, "删除习惯失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CompleteHabit 把今天记为完成
func (a *API) CompleteHabit(c *gin.Context) {
	if err := a.habits.Complete(c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, "打卡失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": true})
}

// MissHabit 把今天记为缺席；请求体携带原因时立即结清，否则挂为待说明
func (a *API) MissHabit(c *gin.Context) {
	var reason *service.MissReason
	if c.Request.ContentLength > 0 {
		var payload missPayload
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
		if strings.TrimSpace(payload.Category) != "" {
			reason = &service.MissReason{Category: payload.Category, Text: payload.Text}
		}
	}

	if err := a.habits.MarkMissed(c.Param("id"), reason); err != nil {
		handleHabitError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"missed": true})
}

// ProvideMissReason 为历史日期补交缺席原因
func (a *API) ProvideMissReason(c *gin.Context) {
	var payload reasonPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	if payload.Date == "" {
		respondError(c, http.StatusBadRequest, "请选择日期")
		return
	}

	err := a.habits.ProvideReason(c.Param("id"), payload.Date, service.MissReason{
		Category: payload.Category,
		Text:     payload.Text,
	})
	if err != nil {
		handleHabitError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

// RequestCancellation 发起取消请求，进入冷静期
func (a *API) RequestCancellation(c *gin.Context) {
	if err := a.habits.RequestCancellation(c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, "取消请求失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requested": true})
}

// CancelCancellationRequest 撤回取消请求
func (a *API) CancelCancellationRequest(c *gin.Context) {
	if err := a.habits.CancelCancellationRequest(c.Param("id")); err != nil {
		respondError(c, http.StatusInternalServerError, "撤回取消请求失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverted": true})
}

// ListDueHabits 返回指定日期（默认今天）待办的习惯
func (a *API) ListDueHabits(c *gin.Context) {
	date := time.Now()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.ParseInLocation(dateFormat, raw, time.UTC)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的日期")
			return
		}
		date = parsed
	}

	habits, err := a.habits.DueOn(date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取待办习惯失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for i := range habits {
		items = append(items, a.habitToPayload(&habits[i]))
	}
	c.JSON(http.StatusOK, gin.H{"date": date.Format(dateFormat), "habits": items})
}

// ListPendingReasons 返回所有待说明的漏掉日期
func (a *API) ListPendingReasons(c *gin.Context) {
	pending, err := a.habits.PendingReasons()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取待说明日期失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending_reasons": pending})
}

// GetSummary 返回首页汇总：押金累计、活跃习惯数、账单汇总
func (a *API) GetSummary(c *gin.Context) {
	totalPledged, err := a.habits.TotalPledged()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取汇总失败")
		return
	}

	active, err := a.habits.ActiveHabits()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取汇总失败")
		return
	}

	payments, err := a.payments.Summary()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取汇总失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_pledged": totalPledged,
		"active_habits": len(active),
		"payments":      payments,
	})
}

func (a *API) habitToPayload(habit *db.Habit) gin.H {
	missReasons := gin.H{}
	for i := range habit.Days {
		day := &habit.Days[i]
		if day.Status != db.DayMissed || day.ReasonCategory == "" {
			continue
		}
		entry := gin.H{"category": day.ReasonCategory, "text": day.ReasonText}
		if day.ReasonAt != nil {
			entry["timestamp"] = day.ReasonAt.Format(time.RFC3339)
		}
		missReasons[day.Date] = entry
	}

	item := gin.H{
		"id":                   habit.PublicID,
		"title":                habit.Title,
		"description":          habit.Description,
		"frequency":            habit.Frequency,
		"pledge_amount":        habit.PledgeAmount,
		"total_pledged":        habit.TotalPledged,
		"is_active":            habit.IsActive,
		"streak":               habit.Streak,
		"created_at":           habit.CreatedAt.Format(time.RFC3339),
		"completed_dates":      habit.CompletedDates(),
		"missed_dates":         habit.MissedDates(),
		"pending_reason_dates": habit.PendingReasonDates(),
		"miss_reasons":         missReasons,
	}

	if habit.Frequency == db.FrequencyCustom {
		item["days_of_week"] = habit.DaysOfWeek
		item["interval_days"] = habit.IntervalDays
		item["times_per_week"] = habit.TimesPerWeek
		item["times_per_month"] = habit.TimesPerMonth
		item["period_times"] = habit.PeriodTimes
		item["period_days"] = habit.PeriodDays
	}

	if habit.LastCompleted != nil {
		item["last_completed"] = habit.LastCompleted.Format(time.RFC3339)
	}

	if habit.CancellationRequestedAt != nil {
		item["cancellation_requested_at"] = habit.CancellationRequestedAt.Format(time.RFC3339)
		if days := a.habits.DaysUntilCancellation(habit); days != nil {
			item["cancellation_days_remaining"] = *days
		}
	}

	return item
}

func renderDescription(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return sanitizer.Sanitize(buf.String())
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitTitleRequired):
		respondError(c, http.StatusBadRequest, "习惯标题不能为空")
	case errors.Is(err, service.ErrInvalidPledge):
		respondError(c, http.StatusBadRequest, "押金不能为负数")
	case errors.Is(err, service.ErrInvalidFrequency):
		respondError(c, http.StatusBadRequest, "频率配置无效")
	case errors.Is(err, service.ErrInvalidReason):
		respondError(c, http.StatusBadRequest, "缺席原因分类无效")
	case errors.Is(err, service.ErrInvalidDate):
		respondError(c, http.StatusBadRequest, "无效的日期")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
