package service

import (
	"github.com/pledgelog/internal/db"
	"github.com/pledgelog/internal/store"
)

// PaymentService 提供账单查询，账单本身只由缺席结清流程追加
type PaymentService struct {
	store *store.Store
}

// PaymentSummary 汇总账单数据
type PaymentSummary struct {
	Count        int     `json:"count"`
	TotalAmount  float64 `json:"total_amount"`
	PendingCount int     `json:"pending_count"`
}

// NewPaymentService 构造 PaymentService
func NewPaymentService(s *store.Store) *PaymentService {
	return &PaymentService{store: s}
}

// List 按时间倒序返回全部扣款记录
func (s *PaymentService) List() ([]db.Payment, error) {
	return s.store.LoadPayments()
}

// Summary 返回账单汇总
func (s *PaymentService) Summary() (*PaymentSummary, error) {
	payments, err := s.store.LoadPayments()
	if err != nil {
		return nil, err
	}

	summary := &PaymentSummary{Count: len(payments)}
	for i := range payments {
		summary.TotalAmount += payments[i].Amount
		if payments[i].Status == db.PaymentPending {
			summary.PendingCount++
		}
	}
	return summary, nil
}
