// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Data, Search, Domains, Server, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Domain names for the tabular corpora.
const (
	DomainResource = "resource"
	DomainLanguage = "language"
	DomainCategory = "category"
)

// Config is the top-level application configuration.
type Config struct {
	Data     DataConfig              `yaml:"data"`
	Search   SearchConfig            `yaml:"search"`
	Domains  map[string]DomainConfig `yaml:"domains"`
	Server   ServerConfig            `yaml:"server"`
	Postgres PostgresConfig          `yaml:"postgres"`
	Kafka    KafkaConfig             `yaml:"kafka"`
	Redis    RedisConfig             `yaml:"redis"`
	Logging  LoggingConfig           `yaml:"logging"`
	Metrics  MetricsConfig           `yaml:"metrics"`
}

// DataConfig points at the tabular files and the content corpus.
type DataConfig struct {
	Dir          string `yaml:"dir"`
	ContentIndex string `yaml:"contentIndex"`
	ContentDir   string `yaml:"contentDir"`
}

// BM25Config holds the ranking constants passed to the scorer.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// SearchConfig controls result caps, the content character budget and score
// display precision.
type SearchConfig struct {
	DefaultLimit      int        `yaml:"defaultLimit"`
	ContentLimit      int        `yaml:"contentLimit"`
	MaxResults        int        `yaml:"maxResults"`
	ContentCharBudget int        `yaml:"contentCharBudget"`
	ScorePrecision    int        `yaml:"scorePrecision"`
	BM25              BM25Config `yaml:"bm25"`
}

// DomainConfig describes one tabular corpus: the file it lives in, the
// fields joined into search text and the fields presented in results.
// Keywords opt the domain into auto-detection for queries that name no
// domain; none are set by default, so such queries search resources.
type DomainConfig struct {
	File         string   `yaml:"file"`
	SearchFields []string `yaml:"searchFields"`
	OutputFields []string `yaml:"outputFields"`
	Keywords     []string `yaml:"keywords"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	// RateLimit is the number of requests each client may make per minute;
	// 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	SSLMode          string        `yaml:"sslMode"`
	MaxOpenConns     int           `yaml:"maxOpenConns"`
	MaxIdleConns     int           `yaml:"maxIdleConns"`
	ConnMaxLifetime  time.Duration `yaml:"connMaxLifetime"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	FromBeginning bool          `yaml:"fromBeginning"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
	Topics        KafkaTopics   `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	LocalSize int           `yaml:"localSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Domains named in the file replace the defaults for that domain
// only; unnamed domains keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		defaults := cfg.Domains
		cfg.Domains = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		for name, d := range defaults {
			if _, ok := cfg.Domains[name]; !ok {
				if cfg.Domains == nil {
					cfg.Domains = make(map[string]DomainConfig, len(defaults))
				}
				cfg.Domains[name] = d
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. Used when no config file is given.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// Validate rejects configurations the ranking pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Search.BM25.K1 < 0 {
		return fmt.Errorf("search.bm25.k1 must be non-negative, got %v", c.Search.BM25.K1)
	}
	if c.Search.BM25.B < 0 || c.Search.BM25.B > 1 {
		return fmt.Errorf("search.bm25.b must be within [0, 1], got %v", c.Search.BM25.B)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.ContentLimit <= 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.Search.ContentCharBudget <= 0 {
		return fmt.Errorf("search.contentCharBudget must be positive, got %d", c.Search.ContentCharBudget)
	}
	for name, d := range c.Domains {
		if len(d.SearchFields) == 0 {
			return fmt.Errorf("domain %q has no searchFields", name)
		}
		if d.File == "" {
			return fmt.Errorf("domain %q has no file", name)
		}
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:          "data",
			ContentIndex: "data/content/index.json",
			ContentDir:   "data/content",
		},
		Search: SearchConfig{
			DefaultLimit:      5,
			ContentLimit:      3,
			MaxResults:        50,
			ContentCharBudget: 3000,
			ScorePrecision:    3,
			BM25: BM25Config{
				K1: 1.5,
				B:  0.75,
			},
		},
		Domains: map[string]DomainConfig{
			DomainResource: {
				File:         "resources.csv",
				SearchFields: []string{"Title", "Language", "Keywords", "Summary", "Category", "Subcategory"},
				OutputFields: []string{"Title", "Language", "Domain", "Authority", "URL", "Keywords", "Summary"},
			},
			DomainLanguage: {
				File:         "languages.csv",
				SearchFields: []string{"Language", "Domain", "Keywords", "Top Resources"},
				OutputFields: []string{"Language", "Domain", "Resource Count", "Top Resources", "Top URLs", "Keywords"},
			},
			DomainCategory: {
				File:         "categories.csv",
				SearchFields: []string{"Category", "Languages", "Top Resources"},
				OutputFields: []string{"Category", "Languages", "Resource Count", "Top Resources"},
			},
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       600,
		},
		Postgres: PostgresConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "devguide",
			User:             "devguide",
			Password:         "localdev",
			SSLMode:          "disable",
			MaxOpenConns:     5,
			MaxIdleConns:     2,
			ConnMaxLifetime:  5 * time.Minute,
			SnapshotInterval: time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "devguide-analytics",
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
			Topics: KafkaTopics{
				SearchEvents: "devguide-search-events",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			CacheTTL:  60 * time.Second,
			LocalSize: 512,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DG_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DG_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("DG_CONTENT_INDEX"); v != "" {
		cfg.Data.ContentIndex = v
	}
	if v := os.Getenv("DG_CONTENT_DIR"); v != "" {
		cfg.Data.ContentDir = v
	}
	if v := os.Getenv("DG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DG_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DG_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("DG_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DG_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("DG_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("DG_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DG_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DG_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DG_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
}
