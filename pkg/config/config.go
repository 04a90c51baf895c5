// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Retrieval, Classifier, Pipeline,
// LLM, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	LLM        LLMConfig        `yaml:"llm"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit      float64 `yaml:"rateLimit"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

// PostgresConfig holds PostgreSQL connection parameters. Calibration runs
// and evaluation reports are only persisted when Enabled is set.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Predictions string `yaml:"predictions"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// CacheConfig selects the retrieval result cache: "redis", "memory" or
// "none".
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// RetrievalConfig points at the knowledge source and tunes BM25.
type RetrievalConfig struct {
	CorpusPath  string  `yaml:"corpusPath"`
	TextField   string  `yaml:"textField"`
	K1          float64 `yaml:"k1"`
	B           float64 `yaml:"b"`
	DefaultTopN int     `yaml:"defaultTopN"`
	MaxTopN     int     `yaml:"maxTopN"`
}

// ClassifierConfig describes where the decision threshold comes from.
// Threshold is in the scorer's raw units; when unset the latest persisted
// calibration is used, then CalibrationPath.
type ClassifierConfig struct {
	Threshold       *float64 `yaml:"threshold"`
	Polarity        string   `yaml:"polarity"`
	CalibrationPath string   `yaml:"calibrationPath"`
}

// EvaluationConfig controls the misclassification diagnostics.
type EvaluationConfig struct {
	SampleSize int   `yaml:"sampleSize"`
	Seed       int64 `yaml:"seed"`
}

// PipelineConfig bounds the fan-out to remote collaborators.
type PipelineConfig struct {
	BatchSize         int           `yaml:"batchSize"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"maxAttempts"`
	BreakerThreshold  int           `yaml:"breakerThreshold"`
	BreakerReset      time.Duration `yaml:"breakerReset"`
}

// LLMConfig configures the OpenAI-compatible chat completion endpoint used
// for generation, judging and self-check scoring.
type LLMConfig struct {
	BaseURL     string  `yaml:"baseUrl"`
	APIKey      string  `yaml:"apiKey"`
	Model       string  `yaml:"model"`
	JudgeModel  string  `yaml:"judgeModel"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float32 `yaml:"temperature"`
	TopP        float32 `yaml:"topP"`
	Generations int     `yaml:"generations"`
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
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would silently degrade results.
func (c *Config) Validate() error {
	switch c.Classifier.Polarity {
	case "higher_is_hallucination", "higher_is_confident":
	default:
		return fmt.Errorf("config: classifier.polarity %q must be higher_is_hallucination or higher_is_confident", c.Classifier.Polarity)
	}
	switch c.Cache.Backend {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("config: cache.backend %q must be redis, memory or none", c.Cache.Backend)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rateLimit must not be negative")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("config: pipeline.batchSize must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.RequestsPerSecond < 0 {
		return fmt.Errorf("config: pipeline.requestsPerSecond must not be negative")
	}
	if c.Evaluation.SampleSize < 0 {
		return fmt.Errorf("config: evaluation.sampleSize must not be negative, got %d", c.Evaluation.SampleSize)
	}
	if c.Retrieval.DefaultTopN <= 0 || c.Retrieval.MaxTopN < c.Retrieval.DefaultTopN {
		return fmt.Errorf("config: retrieval.defaultTopN (%d) must be positive and at most maxTopN (%d)",
			c.Retrieval.DefaultTopN, c.Retrieval.MaxTopN)
	}
	if c.LLM.Generations <= 0 {
		return fmt.Errorf("config: llm.generations must be positive, got %d", c.LLM.Generations)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       50,
			RateLimitBurst:  100,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "hallucheck",
			User:            "hallucheck",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "hallucheck-analytics",
			Topics: KafkaTopics{
				Predictions: "hallucheck.predictions",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Cache: CacheConfig{
			Backend: "memory",
			Size:    10000,
			TTL:     10 * time.Minute,
		},
		Retrieval: RetrievalConfig{
			TextField:   "text",
			K1:          1.2,
			B:           0.75,
			DefaultTopN: 1,
			MaxTopN:     50,
		},
		Classifier: ClassifierConfig{
			Polarity: "higher_is_confident",
		},
		Evaluation: EvaluationConfig{
			SampleSize: 5,
			Seed:       42,
		},
		Pipeline: PipelineConfig{
			BatchSize:         10,
			RequestsPerSecond: 5,
			Burst:             10,
			Timeout:           60 * time.Second,
			MaxAttempts:       3,
			BreakerThreshold:  5,
			BreakerReset:      30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			JudgeModel:  "gpt-4-turbo",
			MaxTokens:   256,
			Temperature: 0.6,
			TopP:        0.9,
			Generations: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads HC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HC_SERVER_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = rps
		}
	}
	if v := os.Getenv("HC_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("HC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("HC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("HC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("HC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("HC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("HC_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("HC_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("HC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("HC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("HC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HC_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("HC_CORPUS_PATH"); v != "" {
		cfg.Retrieval.CorpusPath = v
	}
	if v := os.Getenv("HC_CLASSIFIER_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Classifier.Threshold = &f
		}
	}
	if v := os.Getenv("HC_CLASSIFIER_POLARITY"); v != "" {
		cfg.Classifier.Polarity = v
	}
	if v := os.Getenv("HC_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("HC_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("HC_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("HC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
