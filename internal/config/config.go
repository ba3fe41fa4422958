package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"philcali.me/todos/internal/data"
)

type Config struct {
	Environment     string
	LogLevel        string
	TableName       string
	EndpointURL     string
	Region          string
	PageSize        int
	RequireExisting bool
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}
	return FromEnv()
}

// FromEnv reads the process environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		TableName:       getEnv("DYNAMODB_TABLE", "TodoData"),
		EndpointURL:     getEnv("ENDPOINT_URL", ""),
		Region:          getEnv("AWS_REGION", "us-east-1"),
		PageSize:        getEnvInt("DYNAMODB_PAGE_SIZE", data.DefaultPageSize),
		RequireExisting: getEnvBool("DYNAMODB_REQUIRE_EXISTING", false),
	}
}

func (c *Config) IsLocal() bool {
	return c.EndpointURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.ParseInt(getEnv(key, ""), 10, 32)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return int(value)
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
