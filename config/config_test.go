package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bbig "github.com/unkn0wn-root/memocache/backend/bigcache"
	"github.com/unkn0wn-root/memocache/backend/memory"
	brist "github.com/unkn0wn-root/memocache/backend/ristretto"
	bsql "github.com/unkn0wn-root/memocache/backend/sql"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 2*time.Minute, cfg.DefaultTTL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memocache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"backend: bigcache\nnamespace: from-file\ndefault_ttl: 30s\nmax_size: 10\n"), 0o600))

	t.Setenv("MEMOCACHE_NAMESPACE", "from-env")
	t.Setenv("MEMOCACHE_DEFAULT_TTL", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Bigcache, cfg.Backend)
	assert.Equal(t, "from-env", cfg.Namespace)
	assert.Equal(t, 5*time.Second, cfg.DefaultTTL)
	assert.Equal(t, 10, cfg.MaxSize)
	assert.Equal(t, memory.DefaultSweepInterval, cfg.SweepInterval, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		field  string
	}{
		"unknown backend": {func(c *Config) { c.Backend = "memcached" }, "backend"},
		"negative ttl":    {func(c *Config) { c.DefaultTTL = -time.Second }, "default_ttl"},
		"negative size":   {func(c *Config) { c.MaxSize = -1 }, "max_size"},
		"negative sweep":  {func(c *Config) { c.SweepInterval = -time.Second }, "sweep_interval"},
		"redis no url":    {func(c *Config) { c.Backend = Redis }, "redis_url"},
		"sql no dsn":      {func(c *Config) { c.Backend = SQL; c.SQLDSN = "" }, "sql_dsn"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			var ce *ConfigError
			require.True(t, errors.As(cfg.Validate(), &ce))
			assert.Equal(t, tc.field, ce.Field)
		})
	}
	require.NoError(t, Defaults().Validate())
}

func TestNegativeSweepIntervalFromEnv(t *testing.T) {
	t.Setenv("MEMOCACHE_SWEEP_INTERVAL", "-1s")
	_, err := FromEnv()
	var ce *ConfigError
	require.True(t, errors.As(err, &ce), "err = %v", err)
	assert.Equal(t, "sweep_interval", ce.Field)
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("MEMOCACHE_DEFAULT_TTL", "soon")
	_, err := FromEnv()
	require.Error(t, err)
}

func TestOpenBuildsSelectedBackend(t *testing.T) {
	ctx := context.Background()

	cfg := Defaults()
	b, err := Open(cfg, nil)
	require.NoError(t, err)
	st, ok := b.(*memory.Store)
	require.True(t, ok)
	assert.True(t, st.Running())
	require.NoError(t, b.Close(ctx))

	cfg.Backend = Ristretto
	b, err = Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &brist.Ristretto{}, b)
	require.NoError(t, b.Close(ctx))

	cfg.Backend = Bigcache
	b, err = Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &bbig.Bigcache{}, b)
	require.NoError(t, b.Close(ctx))

	cfg.Backend = SQL
	cfg.SQLDSN = ":memory:"
	b, err = Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &bsql.SQL{}, b)
	b.Set("k", []byte("v"), 0)
	assert.True(t, b.Has("k"))
	require.NoError(t, b.Close(ctx))
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Backend = Redis
	_, err := Open(cfg, nil)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}
