// controllers/submission.go
package controllers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"file-approval-api/models"
	"file-approval-api/utils"
)

// ===================== SUBMISSION MANAGEMENT =====================

type CreateSubmissionRequest struct {
	UploadPath  string   `json:"upload_path" binding:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// CreateSubmission enters an uploaded file into the approval queue.
func CreateSubmission(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub, err := engine.Submit(c.Request.Context(), username, req.UploadPath, req.Description, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"submission": sub,
	})
}

// GetSubmissions returns the role-scoped listing plus its stat-card counts.
func GetSubmissions(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	var filter models.SubmissionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
		return
	}

	submissions, counts, err := engine.List(c.Request.Context(), username, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"submissions": submissions,
		"counts":      counts,
		"total":       len(submissions),
		"degraded":    engine.Degraded(),
	})
}

// GetSubmission returns a specific submission, live or archived.
func GetSubmission(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	sub, err := engine.Get(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "submission": sub})
}

// WithdrawSubmission pulls the caller's own pending submission out of the queue.
func WithdrawSubmission(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	sub, err := engine.Withdraw(c.Request.Context(), username, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
		"message":    "Submission withdrawn",
	})
}

// UploadFile stores a multipart upload under the caller's upload directory so a
// subsequent submit can reference it.
func UploadFile(c *gin.Context) {
	username, ok := currentUsername(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	filename := utils.BaseFilename(file.Filename)
	if err := utils.ValidateFilename(filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "BAD_INPUT"})
		return
	}

	dir := paths.UploadDir(username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Upload directory unavailable"})
		return
	}

	target := filepath.Join(dir, filename)
	if err := c.SaveUploadedFile(file, target); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"upload_path": target,
		"size_bytes":  file.Size,
	})
}
