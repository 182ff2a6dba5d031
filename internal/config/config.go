package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env            string
	Host           string
	Port           string
	AuthUsername   string
	AuthPassword   string
	ExportPassword string
	AllowedOrigins []string
	RosterPath     string
	LedgerPath     string
	RosterTTL      time.Duration
	RateLimitMax   int
	RateLimitSpan  time.Duration
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	env := getEnv("ENVIRONMENT", "development")

	// Production desks see one operator; development gets headroom for frontend dev servers.
	defaultLimit := 300
	if env == "production" {
		defaultLimit = 60
	}

	return App{
		Env:            env,
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8000"),
		AuthUsername:   getEnv("AUTH_USERNAME", "admin"),
		AuthPassword:   getEnv("AUTH_PASSWORD", "password123"),
		ExportPassword: getEnv("EXPORT_PASSWORD", ""),
		AllowedOrigins: splitEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		RosterPath:     getEnv("STUDENT_DATA_FILE", "data/student_data.csv"),
		LedgerPath:     getEnv("ATTENDANCE_FILE", "data/attendance.csv"),
		RosterTTL:      durationEnv("ROSTER_CACHE_TTL", 5*time.Minute),
		RateLimitMax:   intEnv("RATE_LIMIT_MAX", defaultLimit),
		RateLimitSpan:  durationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
	}
}

// IsProduction reports whether the service runs with production hardening.
func (a App) IsProduction() bool {
	return a.Env == "production"
}

// Addr returns the host:port listen address.
func (a App) Addr() string {
	return a.Host + ":" + a.Port
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
