package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"file-approval-api/controllers"
	"file-approval-api/middleware"
	"file-approval-api/models"
)

// SetupRoutes registers the API surface the panels talk to.
func SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/login", controllers.Login)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/profile", controllers.GetProfile)

		protected.POST("/files/upload", controllers.UploadFile)

		protected.POST("/submissions", controllers.CreateSubmission)
		protected.GET("/submissions", controllers.GetSubmissions)
		protected.GET("/submissions/:id", controllers.GetSubmission)
		protected.POST("/submissions/:id/withdraw", controllers.WithdrawSubmission)

		protected.GET("/submissions/:id/comments", controllers.GetComments)
		protected.POST("/submissions/:id/comments", controllers.AddComment)

		protected.GET("/archive/:kind", controllers.GetArchive)

		protected.GET("/notifications", controllers.GetNotifications)
		protected.GET("/notifications/counter", controllers.GetNotificationCounter)
		protected.PUT("/notifications/:id/read", controllers.MarkNotificationRead)
		protected.PUT("/notifications/read-all", controllers.MarkAllNotificationsRead)

		teamLeader := protected.Group("/teamleader")
		teamLeader.Use(middleware.RequireRole(models.RoleTeamLeader))
		{
			teamLeader.POST("/submissions/:id/approve", controllers.TeamLeaderApprove)
			teamLeader.POST("/submissions/:id/reject", controllers.TeamLeaderReject)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/submissions/:id/approve", controllers.AdminApprove)
			admin.POST("/submissions/:id/reject", controllers.AdminReject)
			admin.GET("/placement-requests", controllers.GetPlacementRequests)
		}
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
}
