package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const EnvProduction = "production"

type Config struct {
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	Port           string   `env:"PORT" envDefault:"5000"`
	BaseURL        string   `env:"BASE_URL"`     // Prefix for generated short URLs, defaults to http://localhost:<PORT>
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	DatabaseURL    string   `env:"DATABASE_URL"` // Empty selects the in-memory store
	RedisURL       string   `env:"REDIS_URL"`    // Optional, QR images are not cached without it

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTTTL       time.Duration `env:"JWT_TTL" envDefault:"720h"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	RateLimitRPS           float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst         int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitAuthRPS       float64 `env:"RATE_LIMIT_AUTH_RPS" envDefault:"5"`
	RateLimitAuthBurst     int     `env:"RATE_LIMIT_AUTH_BURST" envDefault:"10"`
	RateLimitShortenRPS    float64 `env:"RATE_LIMIT_SHORTEN_RPS" envDefault:"2"`
	RateLimitShortenBurst  int     `env:"RATE_LIMIT_SHORTEN_BURST" envDefault:"5"`
	RateLimitRedirectRPS   float64 `env:"RATE_LIMIT_REDIRECT_RPS" envDefault:"30"`
	RateLimitRedirectBurst int     `env:"RATE_LIMIT_REDIRECT_BURST" envDefault:"60"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.applyDefaultValues()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaultValues() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.Port
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if len(c.AllowedOrigins) == 0 && c.FrontendURL != "" {
		c.AllowedOrigins = []string{c.FrontendURL}
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port cannot be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET cannot be empty")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
