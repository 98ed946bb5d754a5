/*
2021 © Postgres.ai
*/

// Package config provides the App configuration.
package config

import (
	"time"

	"github.com/pkg/errors"
)

// Source types.
const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// Config defines an App configuration.
type Config struct {
	App    App    `yaml:"app"`
	Source Source `yaml:"source"`
	Cache  Cache  `yaml:"cache"`
}

// App defines a general application configuration.
type App struct {
	Version string `yaml:"-"`
	Host    string `yaml:"host" env:"VARFETCH_APP_HOST"`
	Port    uint   `yaml:"port" env:"VARFETCH_APP_PORT" env-default:"2500"`
	Debug   bool   `yaml:"debug" env:"VARFETCH_APP_DEBUG"`
}

// Source describes where variable queries are executed.
type Source struct {
	Type       string        `yaml:"type" env:"VARFETCH_SOURCE_TYPE" env-default:"http"`
	ConnString string        `yaml:"connString" env:"VARFETCH_SOURCE_CONN_STRING"`
	URL        string        `yaml:"url" env:"VARFETCH_SOURCE_URL" env-default:"http://localhost:8086"`
	Token      string        `yaml:"token" env:"VARFETCH_SOURCE_TOKEN"`
	Timeout    time.Duration `yaml:"timeout" env:"VARFETCH_SOURCE_TIMEOUT" env-default:"30s"`
}

// Cache describes caching of resolved values.
type Cache struct {
	// Size limits the number of entries. Zero means no limit.
	Size int `yaml:"size" env:"VARFETCH_CACHE_SIZE"`
	// TTL expires entries. Zero means entries never expire.
	TTL time.Duration `yaml:"ttl" env:"VARFETCH_CACHE_TTL"`
	// DisableCoalescing makes every cache miss run its own execution.
	DisableCoalescing bool          `yaml:"disableCoalescing" env:"VARFETCH_CACHE_DISABLE_COALESCING"`
	SnapshotPath      string        `yaml:"snapshotPath" env:"VARFETCH_CACHE_SNAPSHOT_PATH"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval" env:"VARFETCH_CACHE_SNAPSHOT_INTERVAL"`
}

// Bounded reports whether the cache has a size limit or TTL.
func (c Cache) Bounded() bool {
	return c.Size > 0 || c.TTL > 0
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourcePostgres:
		if c.Source.ConnString == "" {
			return errors.New("connection string of the postgres source must not be empty")
		}

	case SourceHTTP:
		if c.Source.URL == "" {
			return errors.New("URL of the http source must not be empty")
		}

	default:
		return errors.Errorf("unknown source type given: %q", c.Source.Type)
	}

	if c.Cache.Size < 0 || c.Cache.TTL < 0 {
		return errors.New("cache size and TTL must not be negative")
	}

	if c.Cache.SnapshotInterval > 0 && c.Cache.SnapshotPath == "" {
		return errors.New("snapshot interval requires a snapshot path")
	}

	return nil
}
