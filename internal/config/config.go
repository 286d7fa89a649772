// Package config holds the operator CLI's environment defaults.
package config

import (
	"github.com/caarlos0/env/v11"
)

const DefaultRelayURL = "http://localhost:8080/payments/webhook"

// Config seeds relayctl flag defaults. Flags always win.
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"LEDGER_SQLITE_PATH"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	RelayURL      string `env:"RELAY_URL" envDefault:"http://localhost:8080/payments/webhook"`
}

func Read() (Config, error) {
	return env.ParseAs[Config]()
}
