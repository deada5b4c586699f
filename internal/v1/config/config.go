// Package config validates the process environment into a single Config
// struct, accumulating every validation failure instead of stopping at the
// first, so an operator sees the whole list of what to fix at once.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Config holds validated environment configuration.
type Config struct {
	Port          string
	GoEnv         string
	LogLevel      string
	CORSOrigin    string
	AllowedOrigin []string

	OTPJanitorInterval   string
	PairJanitorInterval  string
	RTCJanitorInterval   string
	VoiceJanitorInterval string

	RateLimitAPIGlobal string
	RateLimitPair      string
	RateLimitRTC       string
	RateLimitVoice     string
	RateLimitWSIP      string
}

// ValidateEnv validates all required environment variables and returns a
// Config object. Returns an error if any required variable is invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
	} else if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got %q)", cfg.Port))
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.CORSOrigin = getEnvOrDefault("CORS_ORIGIN", "*")
	if cfg.CORSOrigin == "*" {
		cfg.AllowedOrigin = []string{"*"}
	} else {
		cfg.AllowedOrigin = strings.Split(cfg.CORSOrigin, ",")
	}

	cfg.OTPJanitorInterval = getEnvOrDefault("OTP_JANITOR_INTERVAL", "60s")
	cfg.PairJanitorInterval = getEnvOrDefault("PAIR_JANITOR_INTERVAL", "60s")
	cfg.RTCJanitorInterval = getEnvOrDefault("RTC_JANITOR_INTERVAL", "60s")
	cfg.VoiceJanitorInterval = getEnvOrDefault("VOICE_JANITOR_INTERVAL", "60s")

	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitPair = getEnvOrDefault("RATE_LIMIT_PAIR", "100-M")
	cfg.RateLimitRTC = getEnvOrDefault("RATE_LIMIT_RTC", "100-M")
	cfg.RateLimitVoice = getEnvOrDefault("RATE_LIMIT_VOICE", "500-M")
	cfg.RateLimitWSIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// LogFields renders the config for startup logging, as a flat set of zap
// fields (there is nothing secret in this config worth redacting).
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("go_env", c.GoEnv),
		zap.String("log_level", c.LogLevel),
		zap.String("cors_origin", c.CORSOrigin),
		zap.String("rate_limit_api_global", c.RateLimitAPIGlobal),
	}
}
