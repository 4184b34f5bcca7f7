package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. PERSONVAULT_DATABASE_URL.
const EnvPrefix = "PERSONVAULT"

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the top-level service configuration.
type Config struct {
	Server   Server         `mapstructure:"server"`
	Storage  string         `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Person   PersonConfig   `mapstructure:"person"`
	Log      LogConfig      `mapstructure:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `mapstructure:"addr"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig selects the SQL driver and pool limits. Driver is
// "postgres" (lib/pq) or "pgx" (pgx stdlib).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	TxTimeout       time.Duration `mapstructure:"tx_timeout"`
	ApplySchema     bool          `mapstructure:"apply_schema"`
}

// RedisConfig configures the history cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	HistoryTTL   time.Duration `mapstructure:"history_ttl"`
}

// KafkaConfig configures the outbox publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	ClientID          string   `mapstructure:"client_id"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
}

// OutboxConfig tunes the relay worker.
type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// PersonConfig holds domain defaults.
type PersonConfig struct {
	DefaultAuthor   string `mapstructure:"default_author"`
	DefaultReason   string `mapstructure:"default_reason"`
	ConflictRetries int    `mapstructure:"conflict_retries"`
	MaxSearchLimit  int    `mapstructure:"max_search_limit"`
}

// LogConfig selects the slog handler. Format is "json" or "text".
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("storage", StoragePostgres)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.tx_timeout", 5*time.Second)
	v.SetDefault("database.apply_schema", false)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.history_ttl", time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "personvault.person-events")
	v.SetDefault("kafka.client_id", "personvault")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("person.default_author", "system")
	v.SetDefault("person.default_reason", "API person creation")
	v.SetDefault("person.conflict_retries", 2)
	v.SetDefault("person.max_search_limit", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// SetupEnv maps nested keys to PERSONVAULT_SECTION_KEY variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	// Comma-separated broker lists arrive as one element from the environment.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate collects every configuration error.
func (c *Config) Validate() []error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres storage"))
		}
		if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
			errs = append(errs, fmt.Errorf("database.driver %q must be postgres or pgx", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage %q must be %s or %s", c.Storage, StoragePostgres, StorageMemory))
	}
	if c.Person.ConflictRetries < 0 {
		errs = append(errs, errors.New("person.conflict_retries must not be negative"))
	}
	if c.Person.MaxSearchLimit <= 0 {
		errs = append(errs, errors.New("person.max_search_limit must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	return errs
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for part := range strings.SplitSeq(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
