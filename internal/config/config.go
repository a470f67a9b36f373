package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// Attendance policy
	Timezone              string
	WorkStartHour         int
	WorkEndHour           int
	AutoClockOutWindowMin int

	// Geofence pipeline
	OfficeRegionPath        string
	MutationDebounceSec     int
	NotificationDebounceSec int
	WorkerCount             int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		Timezone:              getEnvOrDefault("TIMEZONE", "Asia/Jakarta"),
		WorkStartHour:         getEnvAsIntOrDefault("WORK_START_HOUR", 7),
		WorkEndHour:           getEnvAsIntOrDefault("WORK_END_HOUR", 17),
		AutoClockOutWindowMin: getEnvAsIntOrDefault("AUTO_CLOCKOUT_WINDOW_MINUTES", 5),

		OfficeRegionPath:        getEnvOrDefault("OFFICE_REGION_PATH", "config/office.yaml"),
		MutationDebounceSec:     getEnvAsIntOrDefault("MUTATION_DEBOUNCE_SECONDS", 60),
		NotificationDebounceSec: getEnvAsIntOrDefault("NOTIFICATION_DEBOUNCE_SECONDS", 5),
		WorkerCount:             getEnvAsIntOrDefault("WORKER_COUNT", 5),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
