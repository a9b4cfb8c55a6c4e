package server

import (
	"net/http"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, a *app.App) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	if a.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	}

	apiRoutes := e.Group("/api")

	// Chat
	apiRoutes.POST("/process", routes.ProcessHandler)

	// Knowledge base
	apiRoutes.POST("/upload", routes.UploadHandler)
	apiRoutes.GET("/knowledge-base", routes.GetKnowledgeBaseHandler)
	apiRoutes.DELETE("/knowledge-base/:filename", routes.DeleteKnowledgeFileHandler)
}
