package server

import (
	"github.com/labstack/echo/v4"

	"github.com/datapeak/backend/internal/server/middleware"
	"github.com/datapeak/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Dataset routes
	apiRoutes.GET("/datasets", routes.GetDatasetsHandler)
	apiRoutes.POST("/datasets", routes.CreateDatasetHandler)

	// Knowledge graph routes
	apiRoutes.POST("/knowledge-graph", routes.BuildKnowledgeGraphHandler)

	// Knowledge base routes
	apiRoutes.POST("/knowledge", routes.CreateKnowledgeEntryHandler)
	apiRoutes.POST("/knowledge-search", routes.SearchKnowledgeHandler)
}
