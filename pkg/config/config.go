// Package config loads the service configuration from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"profanity/pkg/detect"
	"profanity/pkg/index/elastic"
	"profanity/pkg/index/mongo"
	"profanity/pkg/index/postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

// Embedding providers.
const (
	ProviderOpenAI    = "openai"
	ProviderWorkersAI = "workersai"
	ProviderHash      = "hash"
)

// Index backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendElastic  = "elastic"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Server    Server        `toml:"server"`
	Detection detect.Config `toml:"detection"`
	Embedding Embedding     `toml:"embedding"`
	Index     Index         `toml:"index"`
	Kafka     Kafka         `toml:"kafka"`
	Admin     Admin         `toml:"admin"`
}

type Server struct {
	ServiceName string `toml:"serviceName"`
	HTTPAddr    string `toml:"httpAddr"`
	LogLevel    string `toml:"logLevel"`
}

type Embedding struct {
	Provider  string    `toml:"provider"`
	OpenAI    OpenAI    `toml:"openai"`
	WorkersAI WorkersAI `toml:"workersai"`
	Hash      Hash      `toml:"hash"`
}

// OpenAI configures any OpenAI-compatible /embeddings endpoint. The key is
// read from OPENAI_API_KEY.
type OpenAI struct {
	APIKey            string        `toml:"-"`
	BaseURL           string        `toml:"baseURL"`
	Model             string        `toml:"model"`
	Dimensions        int           `toml:"dimensions"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requestsPerSecond"`
	Burst             int           `toml:"burst"`
}

// WorkersAI credentials come from CF_ACCOUNT_ID and CF_API_TOKEN.
type WorkersAI struct {
	AccountID         string        `toml:"-"`
	APIToken          string        `toml:"-"`
	BaseURL           string        `toml:"baseURL"`
	Model             string        `toml:"model"`
	Dimensions        int           `toml:"dimensions"`
	Timeout           time.Duration `toml:"timeout"`
	RequestsPerSecond float64       `toml:"requestsPerSecond"`
	Burst             int           `toml:"burst"`
}

type Hash struct {
	Dimensions int `toml:"dimensions"`
}

type Index struct {
	Backend  string          `toml:"backend"`
	SQLite   SQLite          `toml:"sqlite"`
	Elastic  elastic.Config  `toml:"elastic"`
	Postgres postgres.Config `toml:"postgres"`
	Mongo    mongo.Config    `toml:"mongo"`
}

type SQLite struct {
	Path string `toml:"path"`
}

type Kafka struct {
	Addr  string `toml:"addr"`
	Topic string `toml:"topic"`
	Batch int    `toml:"batch"`
}

// Admin guards the seeding endpoints. The token is read from UPLOAD_TOKEN.
type Admin struct {
	UploadToken string `toml:"-"`
}

// Default returns a configuration that runs offline: hash embeddings and an
// in-memory index.
func Default() Config {
	return Config{
		Server: Server{
			ServiceName: "profanity",
			HTTPAddr:    ":8077",
			LogLevel:    "info",
		},
		Detection: detect.DefaultConfig(),
		Embedding: Embedding{Provider: ProviderHash},
		Index: Index{
			Backend: BackendMemory,
			SQLite:  SQLite{Path: "profanity.db"},
		},
		Kafka: Kafka{Batch: 1},
	}
}

// Load reads .env when present, decodes the TOML file at path over the
// defaults and fills secrets from the environment. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("[config] failed to load .env: %v", err)
	}

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Embedding.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.Embedding.WorkersAI.AccountID, "CF_ACCOUNT_ID")
	setFromEnv(&c.Embedding.WorkersAI.APIToken, "CF_API_TOKEN")
	setFromEnv(&c.Admin.UploadToken, "UPLOAD_TOKEN")

	setFromEnv(&c.Index.Elastic.Password, "ES_PASSWORD")
	setFromEnv(&c.Index.Postgres.Password, "POSTGRES_PASSWORD")
	setFromEnv(&c.Index.Postgres.Host, "POSTGRES_HOST")
	setFromEnv(&c.Index.Postgres.Port, "POSTGRES_PORT")
	setFromEnv(&c.Index.Mongo.URI, "MONGO_URI")
	setFromEnv(&c.Index.Mongo.Pass, "MONGO_PASS")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the provider and backend selection and the settings each
// one requires.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderHash:
	case ProviderWorkersAI:
		if c.Embedding.WorkersAI.AccountID == "" || c.Embedding.WorkersAI.APIToken == "" {
			return fmt.Errorf("%w: workersai requires CF_ACCOUNT_ID and CF_API_TOKEN", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}

	switch c.Index.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Index.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite requires a path", ErrInvalidConfig)
		}
	case BackendElastic:
		if len(c.Index.Elastic.Addresses) == 0 {
			return fmt.Errorf("%w: elastic requires at least one address", ErrInvalidConfig)
		}
	case BackendPostgres:
		if !c.Index.Postgres.IsValid() {
			return fmt.Errorf("%w: postgres: %s", ErrInvalidConfig, c.Index.Postgres)
		}
	case BackendMongo:
		if err := c.Index.Mongo.Validate(); err != nil {
			return fmt.Errorf("%w: mongo: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown index backend %q", ErrInvalidConfig, c.Index.Backend)
	}

	t := c.Detection.DefaultThreshold
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: defaultThreshold %v outside [0, 1]", ErrInvalidConfig, t)
	}

	return nil
}

// SetLogLevel applies a level name (debug, info, warn, error) to the standard
// logger. An unknown name keeps the current level, logs a warning and
// reports false.
func SetLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warnf("[config] unknown log level %q, keeping %s", level, log.GetLevel())
		return false
	}
	return true
}
