package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the bot-level settings read from the environment. Settings
// for the download providers live in pkg/fetcher and are loaded separately.
type Config struct {
	DiscordToken  string
	DatabaseURL   string
	CommandPrefix string
	OwnerID       string

	// LeaveChimePath is an optional local audio file played before the bot
	// disconnects after going idle.
	LeaveChimePath string

	// LeaveGrace is how long the bot stays connected after the queue drains.
	LeaveGrace time.Duration

	// AloneThreshold is how long the bot tolerates being alone in a voice
	// channel before leaving.
	AloneThreshold time.Duration

	HealthCheckPort int
}

// LoadConfig reads configuration from environment variables. godotenv is
// expected to have populated the environment from .env already.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DiscordToken:    os.Getenv("DISCORD_BOT_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CommandPrefix:   getEnvString("COMMAND_PREFIX", "!"),
		OwnerID:         os.Getenv("OWNER_ID"),
		LeaveChimePath:  os.Getenv("LEAVE_CHIME_PATH"),
		LeaveGrace:      getEnvDuration("LEAVE_GRACE_SECONDS", 10*time.Second),
		AloneThreshold:  getEnvDuration("ALONE_THRESHOLD_SECONDS", 30*time.Second),
		HealthCheckPort: getEnvInt("HEALTH_CHECK_PORT", 8080),
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
