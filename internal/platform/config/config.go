package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. VERITAS_SERVER_ADDR.
const EnvPrefix = "VERITAS"

// Config is the full process configuration.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Registry RegistryConfig
	Scan     ScanConfig
	Drift    DriftConfig
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	AdminToken      string
	ShutdownTimeout time.Duration
}

// PostgresConfig points at the primary database. An empty DSN runs every
// store in memory.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig configures the drift dedupe guard. An empty URL falls back to
// the in-process guard.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers           []string
	TopicPrefix       string
	Partitions        int32
	ReplicationFactor int16
	RelayInterval     time.Duration
	RelayBatchSize    int
}

// RegistryConfig configures the registry gateway sources and the record cache.
type RegistryConfig struct {
	PrimaryURL    string
	SecondaryURL  string
	RatePerSecond float64
	RateBurst     int
	Timeout       time.Duration
	CacheTTL      time.Duration
}

// ScanConfig bounds scan execution.
type ScanConfig struct {
	Timeout      time.Duration
	CheckTimeout time.Duration
}

// DriftConfig tunes drift ingestion.
type DriftConfig struct {
	DedupWindow time.Duration
	StaleAfter  time.Duration
}

// SetDefaults registers every key with its default so environment variables
// resolve through AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic_prefix", "veritas")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.relay_interval", time.Second)
	v.SetDefault("kafka.relay_batch_size", 100)

	v.SetDefault("registry.primary_url", "")
	v.SetDefault("registry.secondary_url", "")
	v.SetDefault("registry.rate_per_second", 10.0)
	v.SetDefault("registry.rate_burst", 5)
	v.SetDefault("registry.timeout", 10*time.Second)
	v.SetDefault("registry.cache_ttl", 6*time.Hour)

	v.SetDefault("scan.timeout", 60*time.Second)
	v.SetDefault("scan.check_timeout", 15*time.Second)

	v.SetDefault("drift.dedup_window", time.Hour)
	v.SetDefault("drift.stale_after", 48*time.Hour)

	v.SetDefault("log_level", "info")
}

// NewViper returns a viper instance reading VERITAS_* variables, with
// defaults registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load builds a Config from v. A config file, when one was read into v,
// takes lower precedence than environment variables.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			AdminToken:      v.GetString("server.admin_token"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Postgres: PostgresConfig{
			DSN:          v.GetString("postgres.dsn"),
			MaxOpenConns: v.GetInt("postgres.max_open_conns"),
			MaxIdleConns: v.GetInt("postgres.max_idle_conns"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(v.GetString("kafka.brokers")),
			TopicPrefix:       v.GetString("kafka.topic_prefix"),
			Partitions:        v.GetInt32("kafka.partitions"),
			ReplicationFactor: int16(v.GetInt("kafka.replication_factor")),
			RelayInterval:     v.GetDuration("kafka.relay_interval"),
			RelayBatchSize:    v.GetInt("kafka.relay_batch_size"),
		},
		Registry: RegistryConfig{
			PrimaryURL:    v.GetString("registry.primary_url"),
			SecondaryURL:  v.GetString("registry.secondary_url"),
			RatePerSecond: v.GetFloat64("registry.rate_per_second"),
			RateBurst:     v.GetInt("registry.rate_burst"),
			Timeout:       v.GetDuration("registry.timeout"),
			CacheTTL:      v.GetDuration("registry.cache_ttl"),
		},
		Scan: ScanConfig{
			Timeout:      v.GetDuration("scan.timeout"),
			CheckTimeout: v.GetDuration("scan.check_timeout"),
		},
		Drift: DriftConfig{
			DedupWindow: v.GetDuration("drift.dedup_window"),
			StaleAfter:  v.GetDuration("drift.stale_after"),
		},
		LogLevel: v.GetString("log_level"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Scan.CheckTimeout <= 0 || c.Scan.Timeout <= 0 {
		errs = append(errs, errors.New("scan timeouts must be positive"))
	}
	if c.Scan.CheckTimeout > c.Scan.Timeout {
		errs = append(errs, fmt.Errorf("scan.check_timeout %s exceeds scan.timeout %s", c.Scan.CheckTimeout, c.Scan.Timeout))
	}
	if c.Drift.DedupWindow <= 0 {
		errs = append(errs, errors.New("drift.dedup_window must be positive"))
	}
	if c.Registry.RatePerSecond <= 0 {
		errs = append(errs, errors.New("registry.rate_per_second must be positive"))
	}
	return errors.Join(errs...)
}

// RegistryConfigured reports whether at least the primary registry source is set.
func (c Config) RegistryConfigured() bool {
	return c.Registry.PrimaryURL != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
