package handlers

import (
	"net/http"

	"screamlink/internal/middleware"
	"screamlink/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	users *services.UserService
}

func NewNotificationHandler(users *services.UserService) *NotificationHandler {
	return &NotificationHandler{users: users}
}

// MarkRead expects a JSON array of notification ids.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var ids []string
	if !bindJSON(c, &ids) {
		return
	}
	if err := h.users.MarkNotificationsRead(c.Request.Context(), middleware.CurrentUser(c).Handle, ids); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked read"})
}
