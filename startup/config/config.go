package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// file | redis | mongo | memory
	StoreBackend string
	DataFile     string
	RedisHost    string
	RedisPort    string
	MongoHost    string
	MongoPort    string

	// local | remote
	AuthMode        string
	AuthServiceHost string
	AuthServicePort string
	SecretKey       string
	TokenTTL        time.Duration

	// local | remote
	PropertyMode        string
	PropertyServiceHost string
	PropertyServicePort string

	JaegerAddress string
	LogPath       string
}

func NewConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		StoreBackend:        envOr("STORE_BACKEND", "file"),
		DataFile:            envOr("STORE_DATA_FILE", "./data/mtaaspace.json"),
		RedisHost:           os.Getenv("STORE_CACHE_HOST"),
		RedisPort:           os.Getenv("STORE_CACHE_PORT"),
		MongoHost:           os.Getenv("STORE_DB_HOST"),
		MongoPort:           os.Getenv("STORE_DB_PORT"),
		AuthMode:            envOr("AUTH_MODE", "local"),
		AuthServiceHost:     os.Getenv("AUTH_SERVICE_HOST"),
		AuthServicePort:     os.Getenv("AUTH_SERVICE_PORT"),
		SecretKey:           envOr("SECRET_KEY", "dev-secret"),
		TokenTTL:            envDuration("TOKEN_TTL_MINUTES", 60),
		PropertyMode:        envOr("PROPERTY_MODE", "local"),
		PropertyServiceHost: os.Getenv("PROPERTY_SERVICE_HOST"),
		PropertyServicePort: os.Getenv("PROPERTY_SERVICE_PORT"),
		JaegerAddress:       os.Getenv("JAEGER_ADDRESS"),
		LogPath:             os.Getenv("LOG_PATH"),
	}
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envDuration(name string, fallbackMinutes int) time.Duration {
	if value := os.Getenv(name); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
		log.Printf("invalid %s, using %d minutes", name, fallbackMinutes)
	}
	return time.Duration(fallbackMinutes) * time.Minute
}
