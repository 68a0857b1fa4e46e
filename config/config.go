// Package config selects and builds a backend from a config file and the
// environment. Precedence: environment > file > Defaults.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/memocache/backend"
	bbig "github.com/unkn0wn-root/memocache/backend/bigcache"
	"github.com/unkn0wn-root/memocache/backend/memory"
	bredis "github.com/unkn0wn-root/memocache/backend/redis"
	brist "github.com/unkn0wn-root/memocache/backend/ristretto"
	bsql "github.com/unkn0wn-root/memocache/backend/sql"
)

const (
	Memory    = "memory"
	Redis     = "redis"
	Ristretto = "ristretto"
	Bigcache  = "bigcache"
	SQL       = "sql"
)

var backends = []string{Memory, Redis, Ristretto, Bigcache, SQL}

type Config struct {
	Backend   string `env:"MEMOCACHE_BACKEND" mapstructure:"backend"`
	Namespace string `env:"MEMOCACHE_NAMESPACE" mapstructure:"namespace"`
	// DefaultTTL applies to wrapped operations without their own TTL. 0 = no expiry.
	DefaultTTL time.Duration `env:"MEMOCACHE_DEFAULT_TTL" mapstructure:"default_ttl"`

	// memory
	MaxSize       int           `env:"MEMOCACHE_MAX_SIZE" mapstructure:"max_size"`
	SweepInterval time.Duration `env:"MEMOCACHE_SWEEP_INTERVAL" mapstructure:"sweep_interval"`

	RedisURL           string        `env:"REDIS_URL" mapstructure:"redis_url"`
	SQLDSN             string        `env:"MEMOCACHE_SQL_DSN" mapstructure:"sql_dsn"`
	BigcacheLifeWindow time.Duration `env:"MEMOCACHE_BIGCACHE_LIFE_WINDOW" mapstructure:"bigcache_life_window"`
	RistrettoMaxCost   int64         `env:"MEMOCACHE_RISTRETTO_MAX_COST" mapstructure:"ristretto_max_cost"`
}

func Defaults() Config {
	return Config{
		Backend:            Memory,
		Namespace:          backend.DefaultNamespace,
		DefaultTTL:         2 * time.Minute,
		SweepInterval:      memory.DefaultSweepInterval,
		SQLDSN:             "memocache.db",
		BigcacheLifeWindow: 10 * time.Minute,
		RistrettoMaxCost:   100_000,
	}
}

// ConfigError reports an invalid setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads file (yaml, toml or json; "" = none) over Defaults, then applies
// any environment variables that are set, and validates the result.
func Load(file string) (Config, error) {
	cfg := Defaults()
	if file != "" {
		v := viper.New()
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", file, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load without a file.
func FromEnv() (Config, error) { return Load("") }

func (c Config) Validate() error {
	switch {
	case !slices.Contains(backends, c.Backend):
		return &ConfigError{"backend", fmt.Sprintf("%q is not one of %s", c.Backend, strings.Join(backends, "|"))}
	case c.DefaultTTL < 0:
		return &ConfigError{"default_ttl", "must not be negative"}
	case c.MaxSize < 0:
		return &ConfigError{"max_size", "must not be negative"}
	case c.SweepInterval < 0:
		return &ConfigError{"sweep_interval", "must not be negative"}
	case c.Backend == Redis && c.RedisURL == "":
		return &ConfigError{"redis_url", "required for the redis backend"}
	case c.Backend == SQL && c.SQLDSN == "":
		return &ConfigError{"sql_dsn", "required for the sql backend"}
	case c.Backend == Ristretto && c.RistrettoMaxCost <= 0:
		return &ConfigError{"ristretto_max_cost", "must be positive"}
	}
	return nil
}

// Open builds the configured backend. onErr receives swallowed backend
// failures (nil = discard). The in-process store's sweeper is started.
func Open(c Config, onErr backend.ErrorFunc) (backend.Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var (
		b   backend.Backend
		err error
	)
	switch c.Backend {
	case Memory:
		st := memory.New(memory.Options{
			Namespace:     c.Namespace,
			MaxSize:       c.MaxSize,
			SweepInterval: c.SweepInterval,
		})
		st.Start()
		b = st
	case Redis:
		b, err = bredis.NewFromURL(c.RedisURL, c.Namespace, onErr)
	case Ristretto:
		b, err = brist.New(brist.Config{
			Namespace:   c.Namespace,
			NumCounters: 10 * c.RistrettoMaxCost,
			MaxCost:     c.RistrettoMaxCost,
			BufferItems: 64,
			OnError:     onErr,
		})
	case Bigcache:
		b, err = bbig.New(bbig.Config{
			Namespace:  c.Namespace,
			LifeWindow: c.BigcacheLifeWindow,
			OnError:    onErr,
		})
	case SQL:
		b, err = bsql.OpenSQLite(c.SQLDSN, c.Namespace, onErr)
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %s backend: %w", c.Backend, err)
	}
	return b, nil
}
