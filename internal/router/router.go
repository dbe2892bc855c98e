package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/pledgelog/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("pledgelog_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 引擎查询与变更接口
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/habits", api.ListHabits)
		apiGroup.GET("/habits/due", api.ListDueHabits)
		apiGroup.GET("/habits/:id", api.GetHabit)
		apiGroup.POST("/habits", api.CreateHabit)
		apiGroup.DELETE("/habits/:id", api.DeleteHabit)

		apiGroup.POST("/habits/:id/complete", api.CompleteHabit)
		apiGroup.POST("/habits/:id/miss", api.MissHabit)
		apiGroup.POST("/habits/:id/reason", api.ProvideMissReason)
		apiGroup.POST("/habits/:id/cancellation", api.RequestCancellation)
		apiGroup.DELETE("/habits/:id/cancellation", api.CancelCancellationRequest)

		apiGroup.GET("/pending-reasons", api.ListPendingReasons)
		apiGroup.GET("/payments", api.ListPayments)
		apiGroup.GET("/summary", api.GetSummary)
		apiGroup.GET("/profile", api.GetProfile)
		apiGroup.PUT("/profile", api.UpdateProfile)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", handler.Login)
		admin.GET("/logout", handler.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.POST("/api/reset", api.ResetData)
		}
	}

	return r
}
