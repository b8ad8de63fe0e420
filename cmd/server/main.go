package main

import (
	"github.com/gin-gonic/gin"
	"github.com/onboardhq/task-engine/internal/config"
	"github.com/onboardhq/task-engine/internal/database"
	"github.com/onboardhq/task-engine/internal/handlers"
	"github.com/onboardhq/task-engine/internal/logger"
	"github.com/onboardhq/task-engine/internal/middleware"
	"github.com/onboardhq/task-engine/internal/repository"
	"github.com/onboardhq/task-engine/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Build logger
	log := logger.Build(cfg.LogLevel)
	defer log.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.MigrateDatabase(database.GetDB()); err != nil {
		log.Fatal("failed to add indexes", zap.Error(err))
	}

	// Initialize AI service when configured
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Wire repository, service and handlers
	taskRepo := repository.NewTaskRepository(database.GetDB())
	taskService := services.NewTaskService(taskRepo, aiService)
	taskHandler := handlers.NewTaskHandler(taskService)

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task engine is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		tasks := api.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/recommendations", taskHandler.RecommendTasks)
			tasks.GET("/stats", taskHandler.GetTaskStats)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.POST("/:id/complete", taskHandler.CompleteTask)
			tasks.POST("/:id/claim", taskHandler.ClaimTask)
		}
	}

	// Start server
	log.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
