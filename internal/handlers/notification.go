package handlers

import (
	"github.com/gin-gonic/gin"

	"studyarchive/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List 我的通知
func (h *NotificationHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)
	result, err := h.notifications.List(c.Request.Context(), identity(c), page, perPage)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), identity(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.notifications.MarkAllRead(c.Request.Context(), identity(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), identity(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
