package main

import (
	"context"
	"os"

	"github.com/careertrack/careertrack/internal/auth"
	"github.com/careertrack/careertrack/internal/database"
	"github.com/careertrack/careertrack/internal/handlers"
	"github.com/careertrack/careertrack/internal/jobsearch"
	"github.com/careertrack/careertrack/internal/logger"
	"github.com/careertrack/careertrack/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func main() {
	logger.Init()
	log := logger.Get()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, relying on process environment")
	}

	db := database.Connect()

	llmService := services.NewLLMService()
	appService := services.NewApplicationService(db)
	userService := services.NewUserService(db)
	matcherService := services.NewMatcherService(db)

	// Gmail watcher is optional; without credentials the tracker still
	// works, statuses just have to be moved by hand.
	log.Info().Msg("Initializing Gmail client")
	httpClient := auth.GetGmailClient()

	var gmailService *gmail.Service
	if httpClient != nil {
		var err error
		gmailService, err = gmail.NewService(context.Background(), option.WithHTTPClient(httpClient))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create Gmail service")
		} else {
			log.Info().Msg("Gmail service connected")
		}
	}

	emailService := services.NewEmailService(db, llmService, gmailService, matcherService, appService)
	emailService.StartWatcher()

	aggregator := jobsearch.NewAggregator(
		jobsearch.NewAdzunaSource(os.Getenv("ADZUNA_APP_ID"), os.Getenv("ADZUNA_APP_KEY")),
	)

	appHandler := handlers.NewApplicationHandler(appService)
	jobHandler := handlers.NewJobHandler(aggregator, llmService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true // For development only
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-User-Email"}
	r.Use(cors.New(config))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		api.GET("/jobs/search", jobHandler.SearchJobs)
		api.GET("/jobs/sources", jobHandler.JobSources)
		api.POST("/jobs/extract", jobHandler.ExtractJob)

		authed := api.Group("")
		authed.Use(handlers.AuthRequired(userService))
		{
			authed.POST("/applications", appHandler.CreateApplication)
			authed.GET("/applications", appHandler.ListApplications)
			authed.GET("/applications/:id", appHandler.GetApplication)
			authed.POST("/applications/steps/:stepId/complete", appHandler.CompleteStep)
			authed.POST("/applications/:id/submit", appHandler.SubmitApplication)
			authed.GET("/interview-processes", appHandler.ListInterviewProcesses)
			authed.GET("/dashboard/stats", appHandler.DashboardStats)
		}
	}

	addr := ":" + envOr("PORT", "8080")
	log.Info().Str("addr", addr).Msg("Server starting")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
