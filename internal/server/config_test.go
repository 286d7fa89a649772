package server

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/payrelay/internal/bus"
	appenv "github.com/garrettladley/payrelay/internal/env"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRETS", "whsec_old,whsec_new")
	t.Setenv("STRIPE_SUCCESS_URL", "https://shop.example/success")
	t.Setenv("STRIPE_CANCEL_URL", "https://shop.example/cancel")
	t.Setenv("BUS_URLS", "nats://a:4222,nats://b:4222")
}

func TestReadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if diff := cmp.Diff([]string{"whsec_old", "whsec_new"}, cfg.Stripe.WebhookSecrets); diff != "" {
		t.Errorf("WebhookSecrets mismatch (-want +got):\n%s", diff)
	}
	if cfg.Stripe.Tolerance != 5*time.Minute {
		t.Errorf("Tolerance = %v, want 5m", cfg.Stripe.Tolerance)
	}
	if cfg.Bus.Driver != bus.DriverNATS {
		t.Errorf("Bus.Driver = %q, want %q", cfg.Bus.Driver, bus.DriverNATS)
	}
	if cfg.Ledger.Driver != LedgerMemory {
		t.Errorf("Ledger.Driver = %q, want %q", cfg.Ledger.Driver, LedgerMemory)
	}
	if cfg.Ledger.Retention != 72*time.Hour {
		t.Errorf("Ledger.Retention = %v, want 72h", cfg.Ledger.Retention)
	}
	if cfg.Bus.DeadLetterTopic != "payment.malformed" {
		t.Errorf("Bus.DeadLetterTopic = %q, want %q", cfg.Bus.DeadLetterTopic, "payment.malformed")
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
}

func TestReadConfigMissingSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STRIPE_WEBHOOK_SECRETS", "")

	if _, err := ReadConfig(); err == nil {
		t.Error("ReadConfig() error = nil, want missing secret error")
	}
}

func TestReadConfigUnknownEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "prod")

	if _, err := ReadConfig(); err == nil {
		t.Error("ReadConfig() error = nil, want unknown environment error")
	}
}

func TestReadConfigRedisClientName(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if cfg.Redis.ClientName != "payrelay" {
		t.Errorf("Redis.ClientName = %q, want %q", cfg.Redis.ClientName, "payrelay")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := Config{
		Stripe: Stripe{Tolerance: 5 * time.Minute},
		Bus:    Bus{Driver: bus.DriverMemory},
		Ledger: Ledger{Driver: LedgerMemory, LockTimeout: time.Second},
		Relay:  Relay{Timeout: 2 * time.Second},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "memory everything", mutate: func(*Config) {}},
		{name: "postgres without url", mutate: func(c *Config) { c.Ledger.Driver = LedgerPostgres }, wantErr: true},
		{name: "postgres with url", mutate: func(c *Config) {
			c.Ledger.Driver = LedgerPostgres
			c.Database.URL = "postgres://localhost/payrelay"
		}},
		{name: "redis without url", mutate: func(c *Config) { c.Ledger.Driver = LedgerRedis }, wantErr: true},
		{name: "redis lease outlives relay", mutate: func(c *Config) {
			c.Ledger.Driver = LedgerRedis
			c.Redis.URL = "redis://localhost:6379"
			c.Ledger.LockLease = 30 * time.Second
		}},
		{name: "redis lease shorter than relay", mutate: func(c *Config) {
			c.Ledger.Driver = LedgerRedis
			c.Redis.URL = "redis://localhost:6379"
			c.Ledger.LockLease = time.Second
		}, wantErr: true},
		{name: "unknown ledger", mutate: func(c *Config) { c.Ledger.Driver = "etcd" }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Bus.Driver = bus.DriverKafka }, wantErr: true},
		{name: "production memory ledger", mutate: func(c *Config) {
			c.Env = appenv.Production
			c.Bus.Driver = bus.DriverNATS
			c.Bus.URLs = []string{"nats://localhost:4222"}
		}, wantErr: true},
		{name: "production durable stack", mutate: func(c *Config) {
			c.Env = appenv.Production
			c.Ledger.Driver = LedgerSQLite
			c.Bus.Driver = bus.DriverNATS
			c.Bus.URLs = []string{"nats://localhost:4222"}
		}},
		{name: "production memory bus", mutate: func(c *Config) {
			c.Env = appenv.Production
			c.Ledger.Driver = LedgerSQLite
		}, wantErr: true},
		{name: "zero tolerance", mutate: func(c *Config) { c.Stripe.Tolerance = 0 }, wantErr: true},
		{name: "negative tolerance", mutate: func(c *Config) { c.Stripe.Tolerance = -time.Second }, wantErr: true},
		{name: "lock timeout exceeds relay timeout", mutate: func(c *Config) { c.Ledger.LockTimeout = time.Minute }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBusNATSSubjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deadLetter string
		want       []string
	}{
		{name: "default dead letter", deadLetter: "payment.malformed", want: []string{"payment.>"}},
		{name: "dead letter disabled", deadLetter: "", want: []string{"payment.>"}},
		{name: "dead letter outside payments", deadLetter: "ops.deadletter", want: []string{"payment.>", "ops.deadletter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Bus{DeadLetterTopic: tt.deadLetter}.NATSSubjects()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NATSSubjects() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
