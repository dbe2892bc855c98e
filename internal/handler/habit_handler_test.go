package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pledgelog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*API, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Profile{}, &db.Habit{}, &db.HabitDay{}, &db.Payment{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	api := NewAPI(gdb)
	if err := api.Habits().Reset(); err != nil {
		t.Fatalf("failed to reset test database: %v", err)
	}

	return api, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func createHabitViaAPI(t *testing.T, api *API, payload map[string]any) string {
	t.Helper()

	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/habits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	api.CreateHabit(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Habit struct {
			ID string `json:"id"`
		} `json:"habit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Habit.ID == "" {
		t.Fatal("expected habit id in response")
	}
	return resp.Habit.ID
}

func TestCreateHabitValidation(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	payload := map[string]any{"title": "  ", "frequency": "daily"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/habits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	api.CreateHabit(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestCompleteHabitAndGetDetail(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	id := createHabitViaAPI(t, api, map[string]any{
		"title":         "晨跑",
		"description":   "**每天** 30 分钟",
		"frequency":     "daily",
		"pledge_amount": 5,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/habits/"+id+"/complete", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.CompleteHabit(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/habits/"+id, nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.GetHabit(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Habit struct {
			Streak          int      `json:"streak"`
			CompletedDates  []string `json:"completed_dates"`
			DescriptionHTML string   `json:"description_html"`
		} `json:"habit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Habit.Streak != 1 || len(resp.Habit.CompletedDates) != 1 {
		t.Fatalf("unexpected habit state: %+v", resp.Habit)
	}
	if !strings.Contains(resp.Habit.DescriptionHTML, "<strong>") {
		t.Fatalf("expected rendered markdown description, got %q", resp.Habit.DescriptionHTML)
	}
}

func TestGetHabitNotFound(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/habits/missing", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: "missing"}}

	api.GetHabit(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestMissHabitWithReasonCreatesPayment(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	id := createHabitViaAPI(t, api, map[string]any{
		"title":         "晨跑",
		"frequency":     "daily",
		"pledge_amount": 5,
	})

	payload := map[string]any{"category": db.ReasonSick, "text": "感冒了"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/habits/"+id+"/miss", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.MissHabit(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.DB.Model(&db.Payment{}).Where("habit_id = ?", id).Count(&count).Error; err != nil {
		t.Fatalf("failed to count payments: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 payment, got %d", count)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/payments", nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = req

	api.ListPayments(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Payments []struct {
			Amount   float64 `json:"amount"`
			Status   string  `json:"status"`
			Category string  `json:"reason_category"`
		} `json:"payments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Payments) != 1 {
		t.Fatalf("expected 1 payment in response, got %d", len(resp.Payments))
	}
	if resp.Payments[0].Amount != 5 || resp.Payments[0].Status != db.PaymentPending {
		t.Fatalf("unexpected payment payload: %+v", resp.Payments[0])
	}
}

func TestMissHabitWithoutBodyDefersCharge(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	id := createHabitViaAPI(t, api, map[string]any{
		"title":         "晨跑",
		"frequency":     "daily",
		"pledge_amount": 5,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/habits/"+id+"/miss", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.MissHabit(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var count int64
	if err := db.DB.Model(&db.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no payments for deferred miss, got %d", count)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/habits/"+id, nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.GetHabit(c)

	var resp struct {
		Habit struct {
			PendingReasonDates []string `json:"pending_reason_dates"`
		} `json:"habit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Habit.PendingReasonDates) != 1 {
		t.Fatalf("expected 1 pending reason date, got %v", resp.Habit.PendingReasonDates)
	}
}

func TestRequestCancellationExposesCountdown(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	id := createHabitViaAPI(t, api, map[string]any{
		"title":         "晨跑",
		"frequency":     "daily",
		"pledge_amount": 5,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/habits/"+id+"/cancellation", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.RequestCancellation(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/habits/"+id, nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.GetHabit(c)

	var resp struct {
		Habit struct {
			IsActive                  bool   `json:"is_active"`
			CancellationRequestedAt   string `json:"cancellation_requested_at"`
			CancellationDaysRemaining int    `json:"cancellation_days_remaining"`
		} `json:"habit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Habit.IsActive || resp.Habit.CancellationRequestedAt == "" {
		t.Fatalf("expected habit in cooling-off period: %+v", resp.Habit)
	}
	if resp.Habit.CancellationDaysRemaining != 7 {
		t.Fatalf("expected 7 days remaining, got %d", resp.Habit.CancellationDaysRemaining)
	}
}

func TestGetSummaryAggregates(t *testing.T) {
	api, cleanup := setupTestDB(t)
	defer cleanup()

	id := createHabitViaAPI(t, api, map[string]any{
		"title":         "晨跑",
		"frequency":     "daily",
		"pledge_amount": 5,
	})

	payload := map[string]any{"category": db.ReasonNoTime}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/habits/"+id+"/miss", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{gin.Param{Key: "id", Value: id}}

	api.MissHabit(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = req

	api.GetSummary(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		TotalPledged float64 `json:"total_pledged"`
		ActiveHabits int     `json:"active_habits"`
		Payments     struct {
			Count        int     `json:"count"`
			TotalAmount  float64 `json:"total_amount"`
			PendingCount int     `json:"pending_count"`
		} `json:"payments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalPledged != 5 || resp.ActiveHabits != 1 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
	if resp.Payments.Count != 1 || resp.Payments.TotalAmount != 5 || resp.Payments.PendingCount != 1 {
		t.Fatalf("unexpected payment summary: %+v", resp.Payments)
	}
}
