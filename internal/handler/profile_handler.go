package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type profilePayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GetProfile 返回用户档案及冗余聚合字段
func (a *API) GetProfile(c *gin.Context) {
	profile, err := a.profiles.Get()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取档案失败")
		return
	}
	if profile == nil {
		respondError(c, http.StatusNotFound, "档案不存在")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": gin.H{
		"name":          profile.Name,
		"email":         profile.Email,
		"total_pledged": profile.TotalPledged,
		"total_charged": profile.TotalCharged,
		"active_habits": profile.ActiveHabits,
		"joined_at":     profile.JoinedAt.Format(time.RFC3339),
	}})
}

// UpdateProfile 更新档案基础信息
func (a *API) UpdateProfile(c *gin.Context) {
	var payload profilePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	profile, err := a.profiles.Update(payload.Name, payload.Email)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "更新档案失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": gin.H{
		"name":  profile.Name,
		"email": profile.Email,
	}})
}
