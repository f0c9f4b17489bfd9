package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	// MongoURI empty selects the in-memory storage backend.
	MongoURI string
	MongoDB  string

	// KafkaBrokers empty disables the outbox publisher.
	KafkaBrokers     []string
	KafkaTopicPrefix string

	StripeSecretKey     string
	StripeWebhookSecret string

	Currency           string
	PlatformFeePercent int64

	PayoutDelay             time.Duration
	PayoutSweepInterval     time.Duration
	ReactivateSweepInterval time.Duration
	OutboxPollInterval      time.Duration
	RetryBackoff            []time.Duration

	SessionTTL time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "motorent"),
		KafkaTopicPrefix:    getEnv("KAFKA_TOPIC_PREFIX", ""),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToUpper(getEnv("CURRENCY", "USD")),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	feePercent, err := parseInt64Env("PLATFORM_FEE_PERCENT", 10)
	if err != nil {
		return Config{}, err
	}
	if feePercent < 0 || feePercent > 100 {
		return Config{}, fmt.Errorf("PLATFORM_FEE_PERCENT must be between 0 and 100, got %d", feePercent)
	}
	cfg.PlatformFeePercent = feePercent

	// Payouts are released this long after a host confirms completion.
	payoutDelay, err := parseDurationEnv("PAYOUT_DELAY", 120*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.PayoutDelay = payoutDelay

	sweepInterval, err := parseDurationEnv("PAYOUT_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.PayoutSweepInterval = sweepInterval

	reactivateInterval, err := parseDurationEnv("REACTIVATE_SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.ReactivateSweepInterval = reactivateInterval

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseInt64Env(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return v, nil
}
