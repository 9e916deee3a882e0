package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetNotifications returns the caller's inbox, newest first.
func GetNotifications(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.Query("unread_only"))
	notifications, err := engine.GetInbox(c.Request.Context(), username, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
		"total":         len(notifications),
	})
}

// GetNotificationCounter returns the totals shown next to the inbox bell.
func GetNotificationCounter(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	summary, err := engine.InboxSummary(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "counter": summary})
}

// MarkNotificationRead flips one notification to read.
func MarkNotificationRead(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	if err := engine.MarkRead(c.Request.Context(), username, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead flips the whole inbox to read.
func MarkAllNotificationsRead(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	if err := engine.MarkAllRead(c.Request.Context(), username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
