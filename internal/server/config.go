package server

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const defaultTokenURL = "https://discord.com/api/oauth2/token"

type Config struct {
	Port          int
	TurnTimeout   time.Duration // idle turn before the watchdog advances
	SweepInterval time.Duration // turn-timeout sampling tick
	PingInterval  time.Duration // transport-level ping cadence
	PongTimeout   time.Duration // no pong within this window means eviction

	DiscordClientID     string
	DiscordClientSecret string
	TokenURL            string
}

func LoadConfig() Config {
	return Config{
		Port:          envInt("PORT", 8080),
		TurnTimeout:   envSeconds("TURN_TIMEOUT_SECONDS", 30),
		SweepInterval: envSeconds("SWEEP_INTERVAL_SECONDS", 1),
		PingInterval:  envSeconds("PING_INTERVAL_SECONDS", 15),
		PongTimeout:   envSeconds("PONG_TIMEOUT_SECONDS", 45),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		TokenURL:            envString("DISCORD_TOKEN_URL", defaultTokenURL),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
