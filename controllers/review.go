// controllers/review.go - team leader and admin decisions
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RejectRequest struct {
	Reason string `json:"reason"`
}

// TeamLeaderApprove forwards a pending submission to the admin stage.
func TeamLeaderApprove(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	sub, err := engine.TLApprove(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
		"message":    "Submission forwarded to admin",
	})
}

// TeamLeaderReject terminates a submission at the team-leader stage.
func TeamLeaderReject(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub, err := engine.TLReject(c.Request.Context(), username, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
		"message":    "Submission rejected",
	})
}

// AdminApprove renders the final decision and triggers placement.
func AdminApprove(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	sub, err := engine.AdminApprove(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"submission":        sub,
		"placement_outcome": sub.PlacementOutcome,
		"message":           "Submission approved",
	})
}

// AdminReject terminates a submission at the admin stage.
func AdminReject(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub, err := engine.AdminReject(c.Request.Context(), username, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
		"message":    "Submission rejected",
	})
}

// GetPlacementRequests lists the open manual-placement requests.
func GetPlacementRequests(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	requests, err := engine.ListPlacementRequests(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"requests": requests,
		"total":    len(requests),
	})
}

// GetArchive returns one archive kind scoped to the caller's visibility.
func GetArchive(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	records, err := engine.ListArchive(c.Request.Context(), username, c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"records": records,
		"total":   len(records),
	})
}
