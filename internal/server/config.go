package server

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/garrettladley/payrelay/internal/bus"
	appenv "github.com/garrettladley/payrelay/internal/env"
	xredis "github.com/garrettladley/payrelay/internal/redis"
)

const paymentSubjects = "payment.>"

type LedgerDriver string

const (
	LedgerMemory   LedgerDriver = "memory"
	LedgerSQLite   LedgerDriver = "sqlite"
	LedgerRedis    LedgerDriver = "redis"
	LedgerPostgres LedgerDriver = "postgres"
)

type Config struct {
	Port      string             `env:"PORT" envDefault:"8080"`
	Env       appenv.Environment `env:"ENV" envDefault:"development"`
	Stripe    Stripe             `envPrefix:"STRIPE_"`
	Bus       Bus                `envPrefix:"BUS_"`
	Ledger    Ledger             `envPrefix:"LEDGER_"`
	Relay     Relay              `envPrefix:"RELAY_"`
	Database  Database           `envPrefix:"DATABASE_"`
	Redis     xredis.Config      `envPrefix:"REDIS_"`
	RateLimit RateLimit          `envPrefix:"RATE_"`
}

type Stripe struct {
	SecretKey      string        `env:"SECRET_KEY,required,notEmpty"`
	WebhookSecrets []string      `env:"WEBHOOK_SECRETS,required,notEmpty" envSeparator:","`
	SuccessURL     string        `env:"SUCCESS_URL,required,notEmpty"`
	CancelURL      string        `env:"CANCEL_URL,required,notEmpty"`
	Tolerance      time.Duration `env:"TOLERANCE" envDefault:"5m"`
}

type Bus struct {
	Driver            bus.Driver `env:"DRIVER" envDefault:"nats"`
	URLs              []string   `env:"URLS" envSeparator:","`
	DeadLetterTopic   string     `env:"DEADLETTER_TOPIC" envDefault:"payment.malformed"`
	NATSStream        string     `env:"NATS_STREAM" envDefault:"PAYMENTS"`
	RabbitMQExchange  string     `env:"RABBITMQ_EXCHANGE" envDefault:"payments"`
	RedisStreamPrefix string     `env:"REDIS_STREAM_PREFIX" envDefault:"payrelay:"`
	RedisMaxLen       int64      `env:"REDIS_MAXLEN" envDefault:"100000"`
}

type Ledger struct {
	Driver        LedgerDriver  `env:"DRIVER" envDefault:"memory"`
	Retention     time.Duration `env:"RETENTION" envDefault:"72h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	LockTimeout   time.Duration `env:"LOCK_TIMEOUT" envDefault:"10s"`
	LockLease     time.Duration `env:"LOCK_LEASE" envDefault:"30s"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"payrelay.db"`
}

type Relay struct {
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type Database struct {
	URL string `env:"URL"`
}

type RateLimit struct {
	Limit float64 `env:"LIMIT" envDefault:"10"`
	Burst int     `env:"BURST" envDefault:"20"`
}

// NATSSubjects are the subjects captured by the relay's stream: every payment
// topic plus the dead-letter topic when it lives outside payment.*.
func (b Bus) NATSSubjects() []string {
	subjects := []string{paymentSubjects}
	if dl := strings.TrimSpace(b.DeadLetterTopic); dl != "" && !strings.HasPrefix(dl, "payment.") {
		subjects = append(subjects, dl)
	}
	return subjects
}

func (c Config) Validate() error {
	var errs []error
	switch c.Ledger.Driver {
	case LedgerMemory, LedgerSQLite:
	case LedgerRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis ledger"))
		}
		// a lease that expires mid-relay lets a redelivery publish a second copy
		if c.Ledger.LockLease <= c.Relay.Timeout {
			errs = append(errs, errors.New("LEDGER_LOCK_LEASE must be longer than RELAY_TIMEOUT"))
		}
	case LedgerPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres ledger"))
		}
	default:
		errs = append(errs, errors.New("LEDGER_DRIVER must be one of memory, sqlite, redis, postgres"))
	}
	if c.Bus.Driver != bus.DriverMemory && len(c.Bus.URLs) == 0 {
		errs = append(errs, errors.New("BUS_URLS is required for the "+string(c.Bus.Driver)+" bus"))
	}
	if c.Env.IsProduction() {
		// both lose state on restart, which turns a redelivery into a duplicate or a lost event
		if c.Ledger.Driver == LedgerMemory {
			errs = append(errs, errors.New("LEDGER_DRIVER=memory is not allowed in production"))
		}
		if c.Bus.Driver == bus.DriverMemory {
			errs = append(errs, errors.New("BUS_DRIVER=memory is not allowed in production"))
		}
	}
	if c.Stripe.Tolerance <= 0 {
		errs = append(errs, errors.New("STRIPE_TOLERANCE must be positive"))
	}
	if c.Ledger.LockTimeout >= c.Relay.Timeout {
		errs = append(errs, errors.New("LEDGER_LOCK_TIMEOUT must be shorter than RELAY_TIMEOUT"))
	}
	return errors.Join(errs...)
}

func ReadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
