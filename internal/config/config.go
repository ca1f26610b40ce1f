package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Firebase / FCM
	FirebaseProjectID string
	FirebaseCredJSON  string // path to a service account file, empty for ADC

	// Push Notifications
	PushNotificationsEnabled bool

	// NATS (cross-instance room fan-out; empty disables the bridge)
	NatsURL string

	// Local blob storage
	DataDir string

	// Client connection
	ReconnectAttempts int // dial attempts before giving up
	ReconnectDelayMs  int // fixed spacing between attempts

	// Server
	ServerShutdownTimeoutSeconds int

	// Logging
	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Firebase
		FirebaseProjectID: getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
		FirebaseCredJSON:  getEnvOrDefault("FIREBASE_CRED_JSON", ""),

		// Push Notifications
		PushNotificationsEnabled: getEnvAsBool("PUSH_NOTIFICATIONS_ENABLED", true),

		// NATS
		NatsURL: getEnvOrDefault("NATS_URL", ""),

		// Storage
		DataDir: getEnvOrDefault("DATA_DIR", "./data"),

		// Client connection
		ReconnectAttempts: getEnvAsInt("RECONNECT_ATTEMPTS", 5),
		ReconnectDelayMs:  getEnvAsInt("RECONNECT_DELAY_MS", 1000),

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as bool, using default %t: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}
