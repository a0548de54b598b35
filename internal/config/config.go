package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ct-preinstall/internal/conformity"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	Log struct {
		Level  string
		Format string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	MatrixCacheTTL time.Duration

	Notify struct {
		WebhookURL       string
		DiscordToken     string
		DiscordChannelID string
	}

	// evaluation policy
	PolicyFile    string
	PassThreshold *float64
	SafetyFactor  *float64

	SeedCatalog bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         getEnv("DB_DSN", "sqlite://ct_install.db"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		PolicyFile:    os.Getenv("POLICY_FILE"),
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.Redis.DB = db

	ttl, err := time.ParseDuration(getEnv("MATRIX_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("MATRIX_CACHE_TTL: %w", err)
	}
	cfg.MatrixCacheTTL = ttl

	cfg.Notify.WebhookURL = os.Getenv("NOTIFY_WEBHOOK_URL")
	cfg.Notify.DiscordToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.Notify.DiscordChannelID = os.Getenv("DISCORD_CHANNEL_ID")
	if (cfg.Notify.DiscordToken == "") != (cfg.Notify.DiscordChannelID == "") {
		return nil, errors.New("DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}

	if cfg.PassThreshold, err = getFloat("PASS_THRESHOLD"); err != nil {
		return nil, err
	}
	if cfg.SafetyFactor, err = getFloat("SAFETY_FACTOR"); err != nil {
		return nil, err
	}

	cfg.SeedCatalog, err = strconv.ParseBool(getEnv("SEED_CATALOG", "true"))
	if err != nil {
		return nil, fmt.Errorf("SEED_CATALOG: %w", err)
	}

	return cfg, nil
}

// Policy resolves the evaluation policy: defaults, then POLICY_FILE, then
// PASS_THRESHOLD / SAFETY_FACTOR.
func (c *Config) Policy() (conformity.Policy, error) {
	p := conformity.DefaultPolicy()
	if c.PolicyFile != "" {
		var err error
		if p, err = conformity.LoadPolicy(c.PolicyFile); err != nil {
			return conformity.Policy{}, err
		}
	}
	if c.PassThreshold != nil {
		p.PassThreshold = *c.PassThreshold
	}
	if c.SafetyFactor != nil {
		p.SafetyFactor = *c.SafetyFactor
	}
	if err := p.Validate(); err != nil {
		return conformity.Policy{}, err
	}
	return p, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getFloat(key string) (*float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &v, nil
}
