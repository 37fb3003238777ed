package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the engine's runtime configuration, read from the
// environment. A local .env file is loaded first when present.
type Config struct {
	DBSource    string `env:"DB_SOURCE,required"`
	Port        string `env:"SERVER_PORT" envDefault:"8080"`
	Env         string `env:"ENVIRONMENT" envDefault:"development"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:"catalog.yaml"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	AdminToken  string `env:"ADMIN_TOKEN"`

	Timezone         string        `env:"TIMEZONE" envDefault:"Europe/Paris"`
	DailyDrawCount   int           `env:"DAILY_DRAW_COUNT" envDefault:"3"`
	WeeklyTradeLimit int           `env:"WEEKLY_TRADE_LIMIT" envDefault:"3"`
	TradeTTL         time.Duration `env:"TRADE_TTL" envDefault:"24h"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

func Load() (*Config, error) {
	// Variables may come from the shell or a deployment env instead.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Location resolves the configured timezone, the anchor for daily and
// weekly rollovers.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
