// Package http 监听器管理的 HTTP 接入层
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/ordernotify/internal/listener/application"
)

// ListenerHandler 提供运营侧的监听器管理接口。
// start/stop/restart 只是把命令广播到总线，实际生效由各监听进程自行处理。
type ListenerHandler struct {
	commander *application.Commander
	registry  *application.Registry
}

// NewListenerHandler 创建监听器管理 handler
func NewListenerHandler(commander *application.Commander, registry *application.Registry) *ListenerHandler {
	return &ListenerHandler{commander: commander, registry: registry}
}

// RegisterRoutes 注册路由
func (h *ListenerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/listeners/:user_id/start", h.Start)
	rg.POST("/listeners/:user_id/stop", h.Stop)
	rg.POST("/listeners/:user_id/restart", h.Restart)
	rg.GET("/listeners/:user_id", h.Status)
}

// Start 广播 START 命令
func (h *ListenerHandler) Start(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	if err := h.commander.StartListeners(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish command"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"user_id": userID, "command": "START"})
}

// Stop 广播 STOP 命令
func (h *ListenerHandler) Stop(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	if err := h.commander.StopListeners(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish command"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"user_id": userID, "command": "STOP"})
}

// Restart 广播 RESTART 命令
func (h *ListenerHandler) Restart(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	if err := h.commander.RestartListeners(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish command"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"user_id": userID, "command": "RESTART"})
}

// Status 查询用户在本进程内是否有活跃监听
func (h *ListenerHandler) Status(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"active":  h.registry.HasListener(userID),
	})
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}
