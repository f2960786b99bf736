package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sync modes.
const (
	ModeInline = "inline"
	ModeQueue  = "queue"
)

// Config holds all configuration for the application.
type Config struct {
	// Odoo
	OdooURL             string
	OdooDatabase        string
	OdooUsername        string
	OdooPassword        string
	OdooModel           string
	OdooExternalIDField string
	OdooTimeout         time.Duration

	// Clerk webhook
	WebhookSecret    string
	WebhookTolerance time.Duration

	// Sync
	SyncMode       string
	UpsertOnCreate bool

	// Optional infrastructure; empty disables the component.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	DeliveryTTL   time.Duration
	RabbitMQURL   string

	// API
	APIPort  string
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		OdooURL:             normalizeURL(os.Getenv("ODOO_URL")),
		OdooDatabase:        os.Getenv("ODOO_DATABASE"),
		OdooUsername:        os.Getenv("ODOO_USERNAME"),
		OdooPassword:        os.Getenv("ODOO_PASSWORD"),
		OdooModel:           getEnv("ODOO_MODEL", "res.partner"),
		OdooExternalIDField: getEnv("ODOO_EXTERNAL_ID_FIELD", "clerk_user_id"),
		OdooTimeout:         getDuration("ODOO_TIMEOUT", 15*time.Second),

		WebhookSecret:    os.Getenv("CLERK_WEBHOOK_SECRET"),
		WebhookTolerance: getDuration("WEBHOOK_TOLERANCE", 5*time.Minute),

		SyncMode:       strings.ToLower(getEnv("SYNC_MODE", ModeInline)),
		UpsertOnCreate: getBool("SYNC_UPSERT_ON_CREATE", true),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DeliveryTTL:   getDuration("DELIVERY_TTL", 24*time.Hour),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),

		APIPort:  getEnv("API_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ValidateOdoo reports every missing Odoo setting at once.
func (c *Config) ValidateOdoo() error {
	var missing []string
	for key, v := range map[string]string{
		"ODOO_URL":      c.OdooURL,
		"ODOO_DATABASE": c.OdooDatabase,
		"ODOO_USERNAME": c.OdooUsername,
		"ODOO_PASSWORD": c.OdooPassword,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	return missingErr(missing)
}

// Validate checks everything the webhook service needs to start.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateOdoo(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.WebhookSecret) == "" {
		errs = append(errs, missingErr([]string{"CLERK_WEBHOOK_SECRET"}))
	}
	switch c.SyncMode {
	case ModeInline:
	case ModeQueue:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("config: SYNC_MODE=queue requires RABBITMQ_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown SYNC_MODE %q", c.SyncMode))
	}
	return errors.Join(errs...)
}

func missingErr(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return fmt.Errorf("config: missing required environment variables: %s", strings.Join(keys, ", "))
}

// normalizeURL adds a scheme to bare hosts such as "mycompany.odoo.com".
func normalizeURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return raw
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
