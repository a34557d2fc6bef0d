package api

import (
	"net/http"

	"alcyxob/exercise-catalog/internal/auth"
	"alcyxob/exercise-catalog/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires the catalog endpoints. Every exercise route sits
// behind the access gate; only /ping is open.
func SetupRoutes(
	router *gin.Engine,
	verifier *auth.Verifier,
	exerciseService service.ExerciseService,
) {
	exerciseHandler := NewExerciseHandler(exerciseService)
	authMiddleware := AuthMiddleware(verifier)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	exercises := router.Group("/api/v1/exercises")
	exercises.Use(authMiddleware)
	{
		// List all active exercises and create new ones
		exercises.GET("/all/", exerciseHandler.ListExercises)
		exercises.POST("/all/", exerciseHandler.CreateExercise)

		// Search by name substring
		exercises.GET("/search/", exerciseHandler.SearchByName)

		// Set-filters over the enumerated attributes
		exercises.GET("/muscle-group/", exerciseHandler.FilterByMuscleGroup)
		exercises.GET("/difficulty/", exerciseHandler.FilterByDifficulty)
		exercises.GET("/equipment/", exerciseHandler.FilterByEquipment)

		// Fetch, update or soft-delete by ID
		exercises.GET("/:id/", exerciseHandler.GetExercise)
		exercises.PUT("/:id/", exerciseHandler.UpdateExercise)
		exercises.PATCH("/:id/", exerciseHandler.UpdateExercise)
		exercises.DELETE("/:id/", exerciseHandler.DeleteExercise)
	}
}
