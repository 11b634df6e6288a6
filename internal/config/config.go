package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Port string
		URL  string
		Env  string
	}
	Database struct {
		URL string
	}
	Redis struct {
		URL string
	}
	Firebase struct {
		CredentialsPath string
	}
	Payment struct {
		Gateway          string
		AllowedCountries []string
		Midtrans         struct {
			ServerKey    string
			ClientKey    string
			IsProduction bool
		}
		Stripe struct {
			SecretKey     string
			WebhookSecret string
		}
	}
	SMTP struct {
		Host string
		Port string
		User string
		Pass string
		From string
	}
	Pricing struct {
		CatalogPath string
	}
	Worker struct {
		Interval time.Duration
	}
	Admin struct {
		APIKey string
	}
}

// Load reads an optional .env file at path and builds the configuration from
// the environment. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.URL = strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/")
	cfg.App.Env = getEnv("ENV", "development")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Firebase.CredentialsPath = getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json")

	cfg.Payment.Gateway = strings.ToLower(getEnv("PAYMENT_GATEWAY", "midtrans"))
	cfg.Payment.AllowedCountries = splitList(getEnv("SHIPPING_ALLOWED_COUNTRIES", "DE,US,NG"))
	cfg.Payment.Midtrans.ServerKey = os.Getenv("MIDTRANS_SERVER_KEY")
	cfg.Payment.Midtrans.ClientKey = os.Getenv("MIDTRANS_CLIENT_KEY")
	cfg.Payment.Midtrans.IsProduction = getEnvBool("MIDTRANS_IS_PRODUCTION", false)
	cfg.Payment.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Payment.Stripe.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.Port = getEnv("SMTP_PORT", "587")
	cfg.SMTP.User = os.Getenv("SMTP_USER")
	cfg.SMTP.Pass = os.Getenv("SMTP_PASS")
	cfg.SMTP.From = os.Getenv("EMAIL_FROM")

	cfg.Pricing.CatalogPath = os.Getenv("PRICING_CATALOG_PATH")

	cfg.Admin.APIKey = os.Getenv("ADMIN_API_KEY")

	interval, err := time.ParseDuration(getEnv("WORKER_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_INTERVAL: %w", err)
	}
	cfg.Worker.Interval = interval

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	switch c.Payment.Gateway {
	case "midtrans":
		if c.Payment.Midtrans.ServerKey == "" {
			problems = append(problems, "MIDTRANS_SERVER_KEY is required for the midtrans gateway")
		}
	case "stripe":
		if c.Payment.Stripe.SecretKey == "" {
			problems = append(problems, "STRIPE_SECRET_KEY is required for the stripe gateway")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported PAYMENT_GATEWAY %q", c.Payment.Gateway))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
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

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
