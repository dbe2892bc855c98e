package handler

import (
	"github.com/pledgelog/internal/service"
	"github.com/pledgelog/internal/store"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	habits   *service.HabitService
	payments *service.PaymentService
	profiles *service.ProfileService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB) *API {
	st := store.NewStore(gdb)

	return &API{
		habits:   service.NewHabitService(st),
		payments: service.NewPaymentService(st),
		profiles: service.NewProfileService(st),
	}
}

// Habits exposes the habit service for startup tasks (seeding).
func (a *API) Habits() *service.HabitService {
	return a.habits
}
