package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yigit/transcriptgpa/internal/app/controllers"
	"github.com/yigit/transcriptgpa/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	transcriptController *controllers.TranscriptController,
	prerequisiteController *controllers.PrerequisiteController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	v1.GET("/prerequisites", prerequisiteController.ListPrerequisites)
	v1.POST("/transcripts", transcriptController.CreateSession)

	// --- Session routes: the bearer token must belong to :id ---
	session := v1.Group("/transcripts/:id")
	session.Use(authMiddleware.SessionAuth("id"))
	{
		session.GET("", transcriptController.GetSession)
		session.DELETE("", transcriptController.DeleteSession)
		session.GET("/sources", transcriptController.GetSources)
		session.GET("/evaluation", transcriptController.GetEvaluation)
		session.GET("/export", transcriptController.Export)
		session.GET("/report", transcriptController.Report)

		records := session.Group("/records")
		{
			records.POST("", transcriptController.AddRecord)
			records.PUT("/:index", transcriptController.UpdateRecord)
			records.DELETE("/:index", transcriptController.DeleteRecord)
		}

		matches := session.Group("/matches/:requirementId")
		{
			matches.PUT("", transcriptController.ConfirmMatch)
			matches.DELETE("", transcriptController.ClearMatch)
			matches.GET("/suggestions", transcriptController.GetSuggestions)
		}
	}
}
