package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"file-approval-api/services"
	"file-approval-api/storage"
)

// Package-level collaborators, wired once at startup.
var (
	engine   *services.ApprovalEngine
	identity services.IdentityProvider
	paths    *storage.PathResolver
)

// Init wires the handlers to the approval engine and its path resolver.
func Init(e *services.ApprovalEngine, id services.IdentityProvider, p *storage.PathResolver) {
	engine = e
	identity = id
	paths = p
}

// currentUsername pulls the authenticated actor out of the request context.
func currentUsername(c *gin.Context) (string, bool) {
	value, exists := c.Get("username")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return "", false
	}
	username, ok := value.(string)
	if !ok || username == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user context"})
		return "", false
	}
	return username, true
}

// respondError translates an engine error onto the HTTP response.
func respondError(c *gin.Context, err error) {
	svcErr := services.AsServiceError(err)
	c.JSON(svcErr.Status, gin.H{"error": svcErr.Message, "code": svcErr.Code})
}
