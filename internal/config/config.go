package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds environment-based settings.
type Config struct {
	Environment    string
	ServerAddress  string
	JWTSecret      string
	DatabaseURL    string
	MigrationsPath string
	RedisAddress   string
	RedisUsername  string
	RedisPassword  string
	MQTTBrokerURL  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	jwt := os.Getenv("JWT_SECRET")
	if jwt == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}
	migrations := os.Getenv("MIGRATIONS_PATH")
	if migrations == "" {
		migrations = "./migrations"
	}
	broker := os.Getenv("MQTT_BROKER_URL")
	if broker == "" {
		broker = "tcp://0.0.0.0:1883"
	}

	return &Config{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  addr,
		JWTSecret:      jwt,
		DatabaseURL:    dbURL,
		MigrationsPath: migrations,
		RedisAddress:   os.Getenv("REDIS_ADDRESS"),
		RedisUsername:  os.Getenv("REDIS_USERNAME"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MQTTBrokerURL:  broker,
	}, nil
}
