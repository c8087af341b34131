package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const DATE_FORMAT = "2006-01-02"

const (
	ENV_LOCAL      = "local"
	ENV_TEST       = "test"
	ENV_PRODUCTION = "production"
)

const (
	STORE_POSTGRES = "postgres"
	STORE_MEMORY   = "memory"
)

type App struct {
	APIEnv string `envconfig:"API_ENV" default:"local"`
	Port   string `envconfig:"PORT" default:"9090"`
	// Host of the frontend, used for checkout redirects and CORS
	AppHost         string `envconfig:"APP_HOST" default:"http://localhost:3000"`
	MaintenanceMode bool   `envconfig:"MAINTENANCE_MODE" default:"false"`
	LogFile         string `envconfig:"LOG_FILE"`

	// DB
	StoreDriver      string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     string `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"rentals"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSLMODE" default:"disable"`
	DatabaseTimezone string `envconfig:"DATABASE_TIMEZONE" default:"UTC"`

	RedisURL string `envconfig:"REDIS_HOST"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	// Payments
	StripeSecretKey       string        `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string        `envconfig:"STRIPE_WEBHOOK_SECRET"`
	AllowUnsignedWebhooks bool          `envconfig:"WEBHOOK_ALLOW_UNSIGNED" default:"false"`
	WebhookDedupeTTL      time.Duration `envconfig:"WEBHOOK_DEDUPE_TTL" default:"24h"`
	Currency              string        `envconfig:"CHECKOUT_CURRENCY" default:"usd"`
	CheckoutTTL           time.Duration `envconfig:"CHECKOUT_TTL" default:"30m"`
	PendingSweepInterval  time.Duration `envconfig:"PENDING_SWEEP_INTERVAL" default:"10m"`

	// SMTP
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@rentals.local"`
}

// Load reads the .env file in local mode and then processes the environment.
func Load() (*App, error) {
	if os.Getenv("API_ENV") == ENV_LOCAL {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("[Config] could not load .env: %s\n", err.Error())
		}
	}
	var c App
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *App) Validate() error {
	if c.StoreDriver != STORE_POSTGRES && c.StoreDriver != STORE_MEMORY {
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.IsProd() {
		if c.StripeWebhookSecret == "" {
			return errors.New("STRIPE_WEBHOOK_SECRET is required in production")
		}
		if c.AllowUnsignedWebhooks {
			return errors.New("WEBHOOK_ALLOW_UNSIGNED cannot be enabled in production")
		}
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required in production")
		}
	}
	// stripe rejects checkout sessions that expire sooner than 30 minutes
	if c.CheckoutTTL < 30*time.Minute || c.CheckoutTTL > 24*time.Hour {
		return fmt.Errorf("CHECKOUT_TTL must be between 30m and 24h, got %s", c.CheckoutTTL)
	}
	if c.PendingSweepInterval <= 0 {
		return errors.New("PENDING_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *App) IsProd() bool {
	return c.APIEnv == ENV_PRODUCTION
}

func (c *App) GetDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DatabaseHost, c.DatabaseUser, c.DatabasePassword, c.DatabaseName, c.DatabasePort, c.DatabaseSSLMode, c.DatabaseTimezone)
}
