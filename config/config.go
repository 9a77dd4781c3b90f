package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	TLS     TLSConfig     `yaml:"tls"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Tracing TracingConfig `yaml:"tracing"`
	Feed    FeedConfig    `yaml:"feed"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// TLSConfig is optional; with no CertFile both servers listen in plaintext.
type TLSConfig struct {
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	CACertFile string `yaml:"ca_cert_file"`
}

func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type StoreConfig struct {
	// Driver is "sqlite" or "cassandra".
	Driver         string `yaml:"driver"`
	SQLitePath     string `yaml:"sqlite_path"`
	SQLitePoolSize int    `yaml:"sqlite_pool_size"`
	CassandraHost  string `yaml:"cassandra_host"`
	CassandraPort  string `yaml:"cassandra_port"`
	Keyspace       string `yaml:"keyspace"`
}

type RedisConfig struct {
	Host       string        `yaml:"host"`
	Port       string        `yaml:"port"`
	ProfileTTL time.Duration `yaml:"profile_ttl"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct {
	SecretKey string `yaml:"secret_key"`
}

type TracingConfig struct {
	ServiceName    string `yaml:"service_name"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
}

type FeedConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            "0.0.0.0:8000",
			ShutdownTimeout: 10 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr: "0.0.0.0:9001",
		},
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "feed.db",
			Keyspace:   "tweet_database",
		},
		Redis: RedisConfig{
			ProfileTTL: 30 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "feed",
		},
		Feed: FeedConfig{
			DefaultLimit: 10,
			MaxLimit:     50,
		},
	}
}

// Load reads the YAML file at path (if any) over the defaults, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Store.Driver, "STORE")
	setString(&c.Store.SQLitePath, "SQLITE_PATH")
	setString(&c.Store.CassandraHost, "DB")
	setString(&c.Store.CassandraPort, "DBPORT")
	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Port, "REDIS_PORT")
	setString(&c.Auth.SecretKey, "SECRET_KEY")
	setString(&c.TLS.CertFile, "CERT")
	setString(&c.TLS.KeyFile, "KEY")
	setString(&c.TLS.CACertFile, "CA_CERT")
	setString(&c.Tracing.JaegerEndpoint, "JAEGER_ENDPOINT")

	if v := os.Getenv("FEED_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FEED_PAGE_SIZE: %w", err)
		}
		c.Feed.DefaultLimit = n
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite store")
		}
	case "cassandra":
		if c.Store.CassandraHost == "" || c.Store.CassandraPort == "" {
			return fmt.Errorf("cassandra host and port are required (set DB and DBPORT)")
		}
		if c.Store.Keyspace == "" {
			return fmt.Errorf("store.keyspace is required for the cassandra store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth secret key is required (set SECRET_KEY env var or config)")
	}

	if c.Feed.DefaultLimit <= 0 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return fmt.Errorf("feed limits must satisfy 0 < default_limit <= max_limit")
	}

	return nil
}
