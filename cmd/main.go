package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/taoyanli0808/husky/internal/db"
	"github.com/taoyanli0808/husky/internal/handlers"
	"github.com/taoyanli0808/husky/internal/logger"
	"github.com/taoyanli0808/husky/internal/repos"
	"github.com/taoyanli0808/husky/internal/server"
	"github.com/taoyanli0808/husky/internal/services"
	"github.com/taoyanli0808/husky/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "5000", log)
	workers := utils.GetEnvAsInt("ANALYSIS_WORKERS", 2, log)
	queueSize := utils.GetEnvAsInt("ANALYSIS_QUEUE_SIZE", 16, log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	requirementRepo := repos.NewRequirementRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)
	pointRepo := repos.NewPointRepo(thePG, log)
	testcaseRepo := repos.NewTestcaseRepo(thePG, log)
	chunkRepo := repos.NewDocumentChunkRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	llmClient, err := services.NewLLMClient(log)
	if err != nil {
		log.Error("Could not init LLMClient", "error", err)
		os.Exit(1)
	}
	taskCache, err := services.NewTaskStatusCache(log)
	if err != nil {
		log.Warn("Task status cache disabled", "error", err)
	}
	materializer := services.NewResultMaterializer(thePG, log, pointRepo, testcaseRepo)
	knowledgeService := services.NewKnowledgeService(thePG, log, chunkRepo, llmClient)
	requirementService := services.NewRequirementService(thePG, log, requirementRepo, llmClient, knowledgeService)
	analysisService := services.NewAnalysisService(
		thePG,
		log,
		requirementRepo,
		taskRepo,
		pointRepo,
		llmClient,
		materializer,
		taskCache,
		workers,
		queueSize,
	)
	analysisService.StartWorkers(context.Background())

	// Handlers
	log.Info("Setting up Handlers from main...")
	requireHandler := handlers.NewRequireHandler(log, requirementService)
	taskHandler := handlers.NewTaskHandler(log, taskRepo, analysisService)
	pointHandler := handlers.NewPointHandler(log, pointRepo, analysisService)
	testcaseHandler := handlers.NewTestcaseHandler(log, testcaseRepo, analysisService)
	knowledgeHandler := handlers.NewKnowledgeHandler(log, knowledgeService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		RequireHandler:   requireHandler,
		TaskHandler:      taskHandler,
		PointHandler:     pointHandler,
		TestcaseHandler:  testcaseHandler,
		KnowledgeHandler: knowledgeHandler,
		AllowOrigins:     allowOrigins,
	})

	log.Info("Starting HTTP server...", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("HTTP server exited", "error", err)
		os.Exit(1)
	}
}
