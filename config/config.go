package config

import (
	"flag"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultServerAddress    = ":8080"
	defaultDatabaseDSN      = ""
	defaultLogLevel         = "debug"
	defaultDebounceQuiet    = 300 * time.Millisecond
	defaultTargetStage      = "ready-for-delivery"
	defaultReconcileTimeout = 10 * time.Second
	defaultSweepInterval    = 5 * time.Minute
)

type Config struct {
	ServerAddr       string
	DatabaseDSN      string
	LogLevel         string
	DebounceQuiet    time.Duration
	TargetStage      string
	ReconcileTimeout time.Duration
	SweepInterval    time.Duration
	WebhookTokenKey  string
	NATSAddr         string
	RedisAddr        string
}

var (
	once      sync.Once
	singleton *Config
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		cfg := Config{}

		// initialize flags
		flag.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "order sync server address")
		flag.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "order sync database DSN")
		flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
		flag.DurationVar(&cfg.DebounceQuiet, "q", defaultDebounceQuiet, "dispatcher quiet period")
		flag.StringVar(&cfg.TargetStage, "target-stage", defaultTargetStage, "stage applied by the reconciler on match")
		flag.DurationVar(&cfg.ReconcileTimeout, "reconcile-timeout", defaultReconcileTimeout, "timeout for one external event")
		flag.DurationVar(&cfg.SweepInterval, "sweep", defaultSweepInterval, "periodic view refresh interval")
		flag.StringVar(&cfg.WebhookTokenKey, "webhook-key", "", "hex-encoded webhook token key")
		flag.StringVar(&cfg.NATSAddr, "nats", "", "NATS address for the realtime relay, empty disables it")
		flag.StringVar(&cfg.RedisAddr, "redis", "", "redis address for the view cache, empty uses in-memory cache")

		flag.Parse()

		// if environment variable is set, then using it
		if runAddrEnv := os.Getenv("RUN_ADDRESS"); runAddrEnv != "" {
			cfg.ServerAddr = runAddrEnv
		}
		if dsnEnv := os.Getenv("DATABASE_URI"); dsnEnv != "" {
			cfg.DatabaseDSN = dsnEnv
		}
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			cfg.LogLevel = logLevelEnv
		}
		if quietEnv := os.Getenv("DEBOUNCE_QUIET_MS"); quietEnv != "" {
			if ms, err := strconv.Atoi(quietEnv); err == nil {
				cfg.DebounceQuiet = time.Duration(ms) * time.Millisecond
			}
		}
		if stageEnv := os.Getenv("RECONCILE_TARGET_STAGE"); stageEnv != "" {
			cfg.TargetStage = stageEnv
		}
		if keyEnv := os.Getenv("WEBHOOK_TOKEN_KEY"); keyEnv != "" {
			cfg.WebhookTokenKey = keyEnv
		}
		if natsEnv := os.Getenv("NATS_ADDRESS"); natsEnv != "" {
			cfg.NATSAddr = natsEnv
		}
		if redisEnv := os.Getenv("REDIS_ADDRESS"); redisEnv != "" {
			cfg.RedisAddr = redisEnv
		}

		singleton = &cfg
	})

	return singleton, nil
}
