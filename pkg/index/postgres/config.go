package postgres

import (
	"fmt"
	"strings"
)

const (
	DefaultTable      = "profanity_vectors"
	DefaultDimensions = 384
)

type Config struct {
	User     string `toml:"user"`
	Password string `toml:"password"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	DBName   string `toml:"dbName"`

	// Table holds the vectors; Dimensions fixes the vector column size when
	// the table is created.
	Table      string `toml:"table"`
	Dimensions int    `toml:"dimensions"`
}

func (c *Config) ConString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

func (c Config) String() string {
	c.Password = strings.Repeat("*", len([]rune(c.Password)))

	return fmt.Sprintf("%#v", c)
}

func (c *Config) IsValid() bool {
	if c.User == "" || c.Password == "" || c.Host == "" || c.Port == "" || c.DBName == "" {
		return false
	}
	return c.Dimensions >= 0
}

func (c *Config) table() string {
	if c.Table == "" {
		return DefaultTable
	}
	return c.Table
}

func (c *Config) dimensions() int {
	if c.Dimensions == 0 {
		return DefaultDimensions
	}
	return c.Dimensions
}
