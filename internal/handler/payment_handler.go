package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListPayments 按时间倒序返回全部扣款记录
func (a *API) ListPayments(c *gin.Context) {
	payments, err := a.payments.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取账单失败")
		return
	}

	items := make([]gin.H, 0, len(payments))
	for i := range payments {
		payment := &payments[i]
		items = append(items, gin.H{
			"id":              payment.PublicID,
			"habit_id":        payment.HabitID,
			"amount":          payment.Amount,
			"date":            payment.Date.Format(time.RFC3339),
			"reason":          payment.Reason,
			"reason_category": payment.ReasonCategory,
			"status":          payment.Status,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": items})
}
