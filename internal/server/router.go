package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/taoyanli0808/husky/internal/handlers"
)

type RouterConfig struct {
	RequireHandler   *handlers.RequireHandler
	TaskHandler      *handlers.TaskHandler
	PointHandler     *handlers.PointHandler
	TestcaseHandler  *handlers.TestcaseHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	AllowOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/search", cfg.KnowledgeHandler.Search)

	v1 := router.Group("/api/v1")
	{
		file := v1.Group("/file")
		file.POST("/upload", cfg.RequireHandler.Upload)

		require := v1.Group("/require")
		require.POST("/search", cfg.RequireHandler.Search)
		require.POST("/update", cfg.RequireHandler.Update)
		require.POST("/delete", cfg.RequireHandler.Delete)

		task := v1.Group("/task")
		task.GET("/search", cfg.TaskHandler.Search)
		task.GET("/status", cfg.TaskHandler.Status)
		task.POST("/cancel", cfg.TaskHandler.Cancel)

		point := v1.Group("/point")
		point.POST("/analysis", cfg.PointHandler.Analysis)
		point.POST("/search", cfg.PointHandler.Search)
		point.POST("/update", cfg.PointHandler.Update)
		point.POST("/delete", cfg.PointHandler.Delete)

		testcase := v1.Group("/testcase")
		testcase.POST("/analysis", cfg.TestcaseHandler.Analysis)
		testcase.POST("/search", cfg.TestcaseHandler.Search)
		testcase.POST("/update", cfg.TestcaseHandler.Update)
		testcase.POST("/delete", cfg.TestcaseHandler.Delete)
	}

	return router
}
