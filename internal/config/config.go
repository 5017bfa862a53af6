package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port           string
	DatabaseURL    string
	CatalogBaseURL string
	DataDir        string
	DownloadStepMS int
	LogLevel       string
}

// Load reads configuration from .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	stepMS, err := strconv.Atoi(getEnv("DOWNLOAD_STEP_MS", "100"))
	if err != nil || stepMS < 1 {
		stepMS = 100
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CatalogBaseURL: getEnv("SAAVN_API_BASE", "https://saavn.dev/api"),
		DataDir:        getEnv("DATA_DIR", "data"),
		DownloadStepMS: stepMS,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
