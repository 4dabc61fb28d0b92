package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration, loaded once at startup.
type Config struct {
	Port string

	// GoogleAPIKey is the Gemini credential. Required; startup fails without it.
	GoogleAPIKey string

	// PrimaryModel and FallbackModel name the two inference targets.
	// The fallback is only used when the primary exhausts its retries
	// on quota/rate-limit failures.
	PrimaryModel  string
	FallbackModel string

	// PrimaryMaxAttempts and FallbackMaxAttempts are the retry ceilings
	// per endpoint. The fallback ceiling is deliberately smaller: by the
	// time we reach it we have already burned the primary's budget.
	PrimaryMaxAttempts  int
	FallbackMaxAttempts int

	DBPath          string
	ScannedImageDir string
	AdminKey        string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("ignoring invalid %s=%q, using %d", k, v, def)
	}
	return def
}

// Load reads configuration from the environment. A missing GOOGLE_API_KEY
// is a fatal configuration error: no request can succeed without it.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		GoogleAPIKey:  mustEnv("GOOGLE_API_KEY"),
		PrimaryModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		FallbackModel: getEnv("GEMINI_FALLBACK_MODEL", "gemini-1.5-flash-8b"),

		PrimaryMaxAttempts:  getEnvInt("GEMINI_MAX_ATTEMPTS", 4),
		FallbackMaxAttempts: getEnvInt("GEMINI_FALLBACK_MAX_ATTEMPTS", 2),

		DBPath:          getEnv("DB_PATH", "./data/mashgiach.db"),
		ScannedImageDir: getEnv("SCANNED_IMAGES_DIR", "./data/scanned_images"),
		AdminKey:        os.Getenv("ADMIN_KEY"),
	}
}
