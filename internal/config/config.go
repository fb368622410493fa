// Package config loads runtime configuration from environment variables.
// Required values halt startup when missing; optional ones fall back to a
// sensible default so a local run needs only the database and JWT settings.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds every runtime setting. One field per environment variable.
type Config struct {
	Env            string // APP_ENV: dev, test or prod
	Port           string // APP_PORT
	PublicBaseURL  string // PUBLIC_BASE_URL: prefix for shareable links (QR codes, external-assessment invitations)
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int
	UploadDir      string // UPLOAD_DIR: root directory for evidence files
	RabbitMQURL    string // RABBITMQ_URL: empty disables notifications
	RateLimitPerMin int   // RATE_LIMIT_PER_MIN: anonymous-endpoint budget per client IP
}

// Load reads the environment and returns a Config. Missing required
// variables are fatal.
func Load() Config {
	return Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		PublicBaseURL:   optional("PUBLIC_BASE_URL", "http://localhost:"+os.Getenv("APP_PORT")),
		DBUser:          must("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          must("DB_HOST"),
		DBPort:          must("DB_PORT"),
		DBName:          must("DB_NAME"),
		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:  mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:      mustInt("BCRYPT_COST"),
		UploadDir:       optional("UPLOAD_DIR", "uploads"),
		RabbitMQURL:     os.Getenv("RABBITMQ_URL"),
		RateLimitPerMin: optionalInt("RATE_LIMIT_PER_MIN", 30),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func optional(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func optionalInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
