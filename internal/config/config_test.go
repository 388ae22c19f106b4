package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "siteguard.yaml", `
log:
  level: debug
source:
  driver: redis
  redis:
    addr: cache:6379
refresh:
  interval: 45s
scope:
  exclude: [SITE_009]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "redis", cfg.Source.Driver)
	assert.Equal(t, "cache:6379", cfg.Source.Redis.Addr)
	assert.Equal(t, "siteguard:", cfg.Source.Redis.KeyPrefix)
	assert.Equal(t, 45*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, []string{"SITE_009"}, cfg.Scope.Exclude)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "siteguard.json", `{"source":{"driver":"file","file":{"sites_path":"/data/sites.json"}}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Source.Driver)
	assert.Equal(t, "/data/sites.json", cfg.Source.File.SitesPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "empty.yaml", "   "))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "source:\n  driver: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "source.driver")

	_, err = Load(writeFile(t, "kafka.yaml", "source:\n  driver: kafka\n"))
	assert.ErrorContains(t, err, "brokers")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SITEGUARD_SOURCE_DRIVER", "sql")
	t.Setenv("SITEGUARD_SQL_DSN", "postgres://db/siteguard")
	t.Setenv("SITEGUARD_REFRESH_INTERVAL", "2m")
	t.Setenv("SITEGUARD_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sql", cfg.Source.Driver)
	assert.Equal(t, "postgres://db/siteguard", cfg.Source.SQL.DSN)
	assert.Equal(t, 2*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Source.Kafka.Brokers)

	t.Setenv("SITEGUARD_REFRESH_INTERVAL", "soon")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "SITEGUARD_TEST_DOTENV=loaded\n")
	t.Cleanup(func() { os.Unsetenv("SITEGUARD_TEST_DOTENV") })
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("SITEGUARD_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestManagerReloadAndUpdate(t *testing.T) {
	path := writeFile(t, "siteguard.yaml", "log:\n  level: info\n")
	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "info", m.Get().Log.Level)

	next, err := m.Update(func(cfg *Config) { cfg.Log.Level = "warn" })
	require.NoError(t, err)
	assert.Equal(t, "warn", next.Log.Level)
	assert.Equal(t, "warn", m.Get().Log.Level)
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", reloaded.Log.Level)

	_, err = m.Update(func(cfg *Config) { cfg.Source.Driver = "nope" })
	assert.Error(t, err)
	assert.Equal(t, "warn", m.Get().Log.Level)
	reloaded, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http", reloaded.Source.Driver)
}

func TestManagerUpdateKeepsEnvOverridesOffDisk(t *testing.T) {
	t.Setenv("SITEGUARD_HTTP_TOKEN", "s3cr3t-token")
	t.Setenv("SITEGUARD_REDIS_PASSWORD", "redis-pass")
	t.Setenv("SITEGUARD_SQL_DSN", "postgres://user:pw@db/siteguard")
	t.Setenv("SITEGUARD_REFRESH_INTERVAL", "7s")
	path := writeFile(t, "siteguard.yaml", "source:\n  http:\n    base_url: http://upstream:2000\n")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-token", m.Get().Source.HTTP.Token)
	assert.Equal(t, 7*time.Second, m.Get().Refresh.Interval)

	cfg, err := m.Update(func(cfg *Config) { cfg.Scope.Exclude = []string{"SITE_009"} })
	require.NoError(t, err)
	assert.Equal(t, []string{"SITE_009"}, cfg.Scope.Exclude)
	assert.Equal(t, "s3cr3t-token", cfg.Source.HTTP.Token)
	assert.Equal(t, 7*time.Second, cfg.Refresh.Interval)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	written := string(raw)
	assert.NotContains(t, written, "s3cr3t-token")
	assert.NotContains(t, written, "redis-pass")
	assert.NotContains(t, written, "user:pw")
	assert.Contains(t, written, "SITE_009")

	file, err := loadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, file.Refresh.Interval)
	assert.Equal(t, "http://upstream:2000", file.Source.HTTP.BaseURL)
}

func TestManagerWatchAndUpdateConcurrently(t *testing.T) {
	path := writeFile(t, "siteguard.yaml", "log:\n  level: info\n")
	m, err := NewManager(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Watch(ctx, time.Millisecond, nil, nil)
	}()
	for i := 0; i < 50; i++ {
		level := "info"
		if i%2 == 0 {
			level = "debug"
		}
		_, err := m.Update(func(cfg *Config) { cfg.Log.Level = level })
		require.NoError(t, err)
		_, _ = m.NeedsReload()
	}
	cancel()
	<-done
	assert.Equal(t, "info", m.Get().Log.Level)
}

func TestStaticManager(t *testing.T) {
	m := NewStaticManager(DefaultConfig())
	needs, err := m.NeedsReload()
	require.NoError(t, err)
	assert.False(t, needs)
	cfg, err := m.Reload()
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Source.Driver)
}

func TestManagerWatchReloadsChangedFile(t *testing.T) {
	path := writeFile(t, "siteguard.yaml", "scope:\n  exclude: [SITE_001]\n")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("scope:\n  exclude: [SITE_002]\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *Config, 1)
	go m.Watch(ctx, 10*time.Millisecond, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)

	select {
	case cfg := <-reloaded:
		assert.Equal(t, []string{"SITE_002"}, cfg.Scope.Exclude)
		assert.Equal(t, []string{"SITE_002"}, m.Get().Scope.Exclude)
	case <-time.After(2 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestRestartRequired(t *testing.T) {
	prev := DefaultConfig()
	next := prev.Clone()
	next.Scope.Exclude = []string{"SITE_001"}
	next.Refresh.Interval = time.Minute
	next.Log.Level = "debug"
	assert.Empty(t, RestartRequired(prev, next))

	next.Source.HTTP.BaseURL = "http://elsewhere:2000"
	next.API.Addr = ":9000"
	next.Log.Format = "console"
	assert.Equal(t, []string{"source", "api", "log.format"}, RestartRequired(prev, next))
	assert.Nil(t, RestartRequired(nil, next))
}
