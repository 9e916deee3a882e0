package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AddCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// AddComment appends a comment to a submission's thread.
func AddComment(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment body is required"})
		return
	}

	comment, err := engine.AddComment(c.Request.Context(), username, c.Param("id"), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "comment": comment})
}

// GetComments returns a submission's comment thread.
func GetComments(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	comments, err := engine.GetComments(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"comments": comments,
		"total":    len(comments),
	})
}
