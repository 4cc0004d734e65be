package routes

import (
	"journal-workflow-api/controllers"
	"journal-workflow-api/middleware"
	"journal-workflow-api/models"
	"journal-workflow-api/services"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, engine *services.WorkflowEngine, identity middleware.IdentityProvider) {
	manuscripts := controllers.NewManuscriptController(engine)
	assignments := controllers.NewAssignmentController(engine)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": engine.Settings().Name + " workflow API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(identity))
		{
			ms := protected.Group("/manuscripts")
			{
				// Authors create and submit; editors and authors list
				ms.POST("", middleware.RequireRole(models.RoleAuthor), manuscripts.Create)
				ms.GET("", manuscripts.List)
				ms.GET("/:id", manuscripts.Get)
				ms.POST("/:id/files/:role", middleware.RequireRole(models.RoleAuthor), manuscripts.UploadFile)
				ms.GET("/:id/files/:role", manuscripts.DownloadFile)
				ms.POST("/:id/submit", middleware.RequireRole(models.RoleAuthor), manuscripts.Submit)

				// Review round management
				ms.POST("/:id/assignments", middleware.RequireRole(models.RoleEditor), assignments.Assign)
				ms.GET("/:id/assignments", assignments.ListActive)

				// Only editors decide and publish
				ms.POST("/:id/decision", middleware.RequireRole(models.RoleEditor), manuscripts.Decide)
				ms.POST("/:id/publish", middleware.RequireRole(models.RoleEditor), manuscripts.Publish)
			}

			as := protected.Group("/assignments")
			{
				as.GET("/mine", middleware.RequireRole(models.RoleReviewer), assignments.Mine)
				as.POST("/:id/respond", middleware.RequireRole(models.RoleReviewer), assignments.Respond)
				as.POST("/:id/review", middleware.RequireRole(models.RoleReviewer), assignments.SubmitReview)
				as.POST("/:id/withdraw", middleware.RequireRole(models.RoleEditor), assignments.Withdraw)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Endpoint not found"})
	})
}
