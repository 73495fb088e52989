// Package config provides configuration management for the dashboard.
// It loads environment variables (and an optional .env file) and exposes them
// as a single Config value.
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the dashboard
type Config struct {
	// Discord OAuth
	DiscordClientID     string
	DiscordClientSecret string
	OAuthRedirectURL    string
	PublicURL           string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	AdminUserIDs  []string

	// MongoDB
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Redis
	RedisAddr     string
	RedisPassword string

	// External APIs
	YouTubeAPIKey string

	// Web Server
	Port               string
	AllowedHosts       []string
	RateLimitPerMinute int

	// Read models and background jobs
	StatsCacheTTL        time.Duration
	StatsStaleAfter      time.Duration
	PremiumSweepInterval time.Duration

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	port := getEnv("PORT", "3000")

	cfg = &Config{
		DiscordClientID:     getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
		OAuthRedirectURL:    getEnv("OAUTH_REDIRECT_URL", "http://localhost:"+port+"/api/auth/callback"),
		PublicURL:           getEnv("PUBLIC_URL", "http://localhost:"+port),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		AdminUserIDs:  getEnvList("ADMIN_USER_IDS"),

		MongoDBURL: getEnv("mongodbUrl", "mongodb://localhost:27017"),
		DBName:     getEnv("dbName", "PancyBot"),

		MQTTHost:     getEnv("MQTT_Host", ""),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),

		Port:               port,
		AllowedHosts:       getEnvList("ALLOWED_HOSTS"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),

		StatsCacheTTL:        getEnvDuration("STATS_CACHE_TTL", 30*time.Second),
		StatsStaleAfter:      getEnvDuration("STATS_STALE_AFTER", 15*time.Minute),
		PremiumSweepInterval: getEnvDuration("PREMIUM_SWEEP_INTERVAL", time.Hour),

		Environment: getEnv("enviroment", "dev"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blank entries
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDuration parses a Go duration ("30s", "1h"), falling back on parse errors
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// UsesMemoryStore reports whether the dashboard should run against the
// in-memory document store instead of MongoDB.
func (c *Config) UsesMemoryStore() bool {
	return strings.HasPrefix(c.MongoDBURL, "memory://")
}

// MQTTEnabled reports whether a broker has been configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTTHost != ""
}
