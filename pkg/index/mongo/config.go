package mongo

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrConfParamMissing = fmt.Errorf("configuration parameter missing")

const (
	DefaultCollection = "profanity_vectors"
	DefaultIndexName  = "vector_index"
)

type Config struct {
	Host   string `toml:"host"`
	Port   string `toml:"port"`
	DBName string `toml:"dbName"`
	User   string `toml:"user"`
	Pass   string `toml:"pass"`
	// URI overrides the host based connection string, e.g. for mongodb+srv.
	URI string `toml:"uri"`

	Collection string `toml:"collection"`
	// IndexName is the Atlas vector search index on the values field.
	IndexName     string `toml:"indexName"`
	NumCandidates int    `toml:"numCandidates"`
}

// NewConfig reads connection settings from the environment.
func NewConfig() (*Config, error) {
	conf := new(Config)
	conf.URI = os.Getenv("MONGO_URI")
	conf.Host = os.Getenv("MONGO_HOST")
	if conf.Host == "" && conf.URI == "" {
		return nil, fmt.Errorf("%w: MONGO_HOST", ErrConfParamMissing)
	}
	conf.Port = os.Getenv("MONGO_PORT")
	if conf.Port == "" && conf.URI == "" {
		return nil, fmt.Errorf("%w: MONGO_PORT", ErrConfParamMissing)
	}
	conf.DBName = os.Getenv("MONGO_DB_NAME")
	if conf.DBName == "" {
		return nil, fmt.Errorf("%w: MONGO_DB_NAME", ErrConfParamMissing)
	}
	conf.User = os.Getenv("MONGO_USER")
	conf.Pass = os.Getenv("MONGO_PASS")
	conf.Collection = os.Getenv("MONGO_COLLECTION")

	return conf, nil
}

// Validate reports the first missing parameter of a file based config.
func (c *Config) Validate() error {
	if c.URI == "" {
		if c.Host == "" {
			return fmt.Errorf("%w: host", ErrConfParamMissing)
		}
		if c.Port == "" {
			return fmt.Errorf("%w: port", ErrConfParamMissing)
		}
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: dbName", ErrConfParamMissing)
	}
	return nil
}

func (c *Config) conString() string {
	if c.URI != "" {
		return c.URI
	}
	if c.User != "" && c.Pass != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/", c.User, c.Pass, c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s/", c.Host, c.Port)
}

func (c *Config) Options() *options.ClientOptions {
	return options.Client().ApplyURI(c.conString())
}

func (c *Config) collection() string {
	if c.Collection == "" {
		return DefaultCollection
	}
	return c.Collection
}

func (c *Config) indexName() string {
	if c.IndexName == "" {
		return DefaultIndexName
	}
	return c.IndexName
}
