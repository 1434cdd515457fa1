// Package config loads application configuration from environment
// variables. A .env file in the working directory is honoured when
// present so local development does not need exported variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// durations and costs.
type Config struct {
	Env            string  // application environment (e.g. "dev", "prod")
	Port           string  // HTTP port to listen on
	DBUser         string  // database username
	DBPass         string  // database password (optional)
	DBHost         string  // database host address
	DBPort         string  // database port number
	DBName         string  // database name
	JWTSecret      string  // secret used to sign JWTs
	AccessTTLMin   int     // access token time-to-live in minutes
	RefreshTTLDays int     // refresh token time-to-live in days
	BcryptCost     int     // bcrypt cost for password hashing
	AdminEmail     string  // seeded administrator account email
	AdminPassword  string  // seeded administrator account password
}

// Load reads configuration values from the environment (after loading a
// .env file if one exists) and returns a Config. Missing required
// variables cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // absent .env is fine in deployed environments
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		AdminEmail:     getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:  getenv("ADMIN_PASSWORD", ""),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer. If conversion fails, the application logs a fatal error and
// exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
