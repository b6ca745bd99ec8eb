package database

import (
	"fmt"
	"os"

	"github.com/careertrack/careertrack/internal/logger"
	"github.com/careertrack/careertrack/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() *gorm.DB {
	log := logger.Get()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "careertrack"),
		envOr("DB_PORT", "5432"),
		envOr("DB_SSLMODE", "disable"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	log.Info().Msg("Database connection established")

	log.Info().Msg("Running migrations")
	err = DB.AutoMigrate(
		&models.User{},
		&models.Application{},
		&models.ApplicationStep{},
		&models.InterviewProcess{},
		&models.ProcessedEmail{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	return DB
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
