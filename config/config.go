package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "10s" or "2m", or from plain numbers interpreted as seconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n float64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value on line %d", value.Line)
}

// BrokerConfig holds the RabbitMQ connection and publication settings.
type BrokerConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	VHost            string `yaml:"vhost"`
	Exchange         string `yaml:"exchange"`
	RoutingKeyPrefix string `yaml:"routing_key_prefix"`
}

// URL builds the AMQP connection URL.
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(b.User), url.QueryEscape(b.Password),
		b.Host, b.Port, url.PathEscape(b.VHost))
}

// RedisConfig holds the optional Redis-backed dedupe store settings.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// LoggingConfig holds the logging sink settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// CrawlConfig holds crawl behavior defaults shared by all sites.
type CrawlConfig struct {
	// Skip and Limit bound the ordered list of discovered menu links.
	// Limit <= 0 means unbounded.
	Skip  int `yaml:"skip"`
	Limit int `yaml:"limit"`
	// Concurrency bounds in-flight fetches per crawl session.
	Concurrency int      `yaml:"concurrency"`
	Delay       Duration `yaml:"delay"`
	Timeout     Duration `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	// BuildDir is where run artifacts are written
	// (build/<site>/<timestamp>/<site>.json).
	BuildDir string `yaml:"build_dir"`
}

// Config represents the application configuration
type Config struct {
	Environment  string        `yaml:"environment"`
	Broker       BrokerConfig  `yaml:"rabbitmq"`
	Redis        RedisConfig   `yaml:"redis"`
	MemcacheAddr string        `yaml:"memcache_addr"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	Logging      LoggingConfig `yaml:"logging"`
	Crawl        CrawlConfig   `yaml:"crawl"`
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() Config {
	return Config{
		Environment: "development",
		Broker: BrokerConfig{
			Host:             "localhost",
			Port:             5672,
			User:             "guest",
			Password:         "guest",
			VHost:            "/",
			Exchange:         "motorciclye",
			RoutingKeyPrefix: "motorciclye",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		MemcacheAddr: "",
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 10,
		},
		Crawl: CrawlConfig{
			Concurrency: 4,
			Delay:       Duration(time.Second),
			Timeout:     Duration(30 * time.Second),
			Retries:     2,
			BuildDir:    "build",
		},
	}
}

// Load reads the configuration file at path (when it exists) over the
// defaults and then applies environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	c.Environment = getEnv("PARTSWORKER_ENVIRONMENT", c.Environment)

	c.Broker.Host = getEnv("RABBITMQ_HOST", c.Broker.Host)
	c.Broker.Port = getEnvInt("RABBITMQ_PORT", c.Broker.Port)
	c.Broker.User = getEnv("RABBITMQ_USER", c.Broker.User)
	c.Broker.Password = getEnv("RABBITMQ_PASSWORD", c.Broker.Password)
	c.Broker.VHost = getEnv("RABBITMQ_VHOST", c.Broker.VHost)
	c.Broker.Exchange = getEnv("RABBITMQ_EXCHANGE", c.Broker.Exchange)
	c.Broker.RoutingKeyPrefix = getEnv("RABBITMQ_ROUTING_KEY_PREFIX", c.Broker.RoutingKeyPrefix)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	if v := os.Getenv("REDIS_DEDUPE"); v != "" {
		c.Redis.Enabled = v == "1" || v == "true"
	}

	c.MemcacheAddr = getEnv("MEMCACHE_ADDR", c.MemcacheAddr)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.File = getEnv("LOG_FILE", c.Logging.File)

	c.Crawl.Skip = getEnvInt("CRAWL_SKIP", c.Crawl.Skip)
	c.Crawl.Limit = getEnvInt("CRAWL_LIMIT", c.Crawl.Limit)
	c.Crawl.Concurrency = getEnvInt("CRAWL_CONCURRENCY", c.Crawl.Concurrency)
	c.Crawl.BuildDir = getEnv("CRAWL_BUILD_DIR", c.Crawl.BuildDir)
	if v := os.Getenv("CRAWL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Crawl.Timeout = Duration(time.Duration(n) * time.Second)
		}
	}
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	if c.Broker.Host == "" {
		return fmt.Errorf("rabbitmq host must not be empty")
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("rabbitmq port %d out of range", c.Broker.Port)
	}
	if c.Broker.Exchange == "" {
		return fmt.Errorf("rabbitmq exchange must not be empty")
	}
	if c.Broker.RoutingKeyPrefix == "" {
		return fmt.Errorf("routing key prefix must not be empty")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis dedupe enabled but no address configured")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl concurrency must be positive")
	}
	if c.Crawl.Skip < 0 {
		return fmt.Errorf("crawl skip must not be negative")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
