package router

import (
	"net/http"

	"github.com/alm9/grades-escolares-api/internal/server/handlers"
	"github.com/alm9/grades-escolares-api/internal/server/middleware"
	"github.com/gin-gonic/gin"
)

// New wires handlers and middleware into an HTTP router. Files under
// staticDir are served at /public when staticDir is not empty.
func New(handler *handlers.Handler, mw *middleware.Manager, staticDir string) http.Handler {
	router := gin.New()
	router.Use(mw.RequestLog(), mw.Recovery(), mw.CORS())

	router.GET("/health", handler.Health)

	if staticDir != "" {
		router.Static("/public", staticDir)
	}

	v1 := router.Group("/api/v1")
	v1.Use(mw.RateLimit())
	{
		grades := v1.Group("/grades")
		{
			grades.GET("", handler.ListGrades)
			grades.POST("", handler.CreateGrade)
			grades.PUT("", handler.UpdateGrade)
			grades.GET("/:id", handler.GetGrade)
			grades.PUT("/:id", handler.UpdateGrade)
			grades.DELETE("/:id", handler.DeleteGrade)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/total/:student/:subject", handler.GetTotal)
			reports.GET("/average/:subject/:type", handler.GetAverage)
			reports.GET("/top/:subject/:type", handler.GetTop)
		}
	}

	return router
}
