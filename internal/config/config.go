package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"dinepos/internal/domain"
)

type Config struct {
	DatabaseURL         string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	MenuCacheTTLSeconds int
	Restaurant          domain.ReceiptHeader
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("MENU_CACHE_TTL_SECONDS", "300"))
	if err != nil || ttl < 1 {
		ttl = 300
	}

	cfg := Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             redisDB,
		MenuCacheTTLSeconds: ttl,
		Restaurant: domain.ReceiptHeader{
			Name:    getEnv("RESTAURANT_NAME", "ANNALAKSHMI PURE VEG"),
			Address: getEnv("RESTAURANT_ADDRESS", "Arts College Road, Coimbatore"),
			Phone:   getEnv("RESTAURANT_PHONE", "+91 98765 43210"),
			GSTIN:   strings.TrimSpace(getEnv("RESTAURANT_GSTIN", "33ABCDE1234F1Z5")),
		},
	}

	return cfg
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
