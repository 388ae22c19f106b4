package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     LogConfig     `json:"log" yaml:"log"`
	Source  SourceConfig  `json:"source" yaml:"source"`
	Refresh RefreshConfig `json:"refresh" yaml:"refresh"`
	Scope   ScopeConfig   `json:"scope" yaml:"scope"`
	API     APIConfig     `json:"api" yaml:"api"`
	Report  ReportConfig  `json:"report" yaml:"report"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type SourceConfig struct {
	Driver   string      `json:"driver" yaml:"driver"`
	Timezone string      `json:"timezone" yaml:"timezone"`
	HTTP     HTTPConfig  `json:"http" yaml:"http"`
	File     FileConfig  `json:"file" yaml:"file"`
	Redis    RedisConfig `json:"redis" yaml:"redis"`
	Kafka    KafkaConfig `json:"kafka" yaml:"kafka"`
	SQL      SQLConfig   `json:"sql" yaml:"sql"`
}

type HTTPConfig struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	SitesPath  string        `json:"sites_path" yaml:"sites_path"`
	AlertsPath string        `json:"alerts_path" yaml:"alerts_path"`
	Token      string        `json:"token" yaml:"token"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count"`
}

type FileConfig struct {
	SitesPath  string `json:"sites_path" yaml:"sites_path"`
	AlertsPath string `json:"alerts_path" yaml:"alerts_path"`
}

type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

type KafkaConfig struct {
	Brokers     []string      `json:"brokers" yaml:"brokers"`
	Topic       string        `json:"topic" yaml:"topic"`
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`
}

type SQLConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type RefreshConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// ScopeConfig limits which site ids a refresh keeps. Include, when set, is an
// allow list; Exclude always wins.
type ScopeConfig struct {
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type ReportConfig struct {
	Title string `json:"title" yaml:"title"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Source: SourceConfig{
			Driver:   "http",
			Timezone: "UTC",
			HTTP: HTTPConfig{
				BaseURL:    "http://localhost:2000",
				SitesPath:  "/api/sites",
				AlertsPath: "/api/alerts",
				Timeout:    10 * time.Second,
				RetryCount: 3,
			},
			Redis: RedisConfig{Addr: "localhost:6379", KeyPrefix: "siteguard:"},
			Kafka: KafkaConfig{ReadTimeout: 5 * time.Second},
			SQL:   SQLConfig{Driver: "sqlite", DSN: "file:siteguard.db?_pragma=busy_timeout(5000)"},
		},
		Refresh: RefreshConfig{Interval: 30 * time.Second, Timeout: 15 * time.Second},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Report:  ReportConfig{Title: "Site Safety Report"},
	}
}

// Load reads path and applies SITEGUARD_* overrides on top of it.
func Load(path string) (*Config, error) {
	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return effective(file)
}

// loadFile decodes path over the defaults without consulting the
// environment. This is the layer Save writes back.
func loadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	return cfg, nil
}

// effective returns a copy of file with environment overrides applied and
// validated. file itself is not modified.
func effective(file *Config) (*Config, error) {
	cfg := file.Clone()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a copy that shares no slices with c.
func (c *Config) Clone() *Config {
	out := *c
	out.Source.Kafka.Brokers = append([]string(nil), c.Source.Kafka.Brokers...)
	out.Scope.Include = append([]string(nil), c.Scope.Include...)
	out.Scope.Exclude = append([]string(nil), c.Scope.Exclude...)
	return &out
}

// FromEnv builds a config from defaults and SITEGUARD_* variables only.
func FromEnv() (*Config, error) {
	return effective(DefaultConfig())
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Source.Driver == "" {
		cfg.Source.Driver = def.Source.Driver
	}
	cfg.Source.Driver = strings.ToLower(cfg.Source.Driver)
	if cfg.Source.Timezone == "" {
		cfg.Source.Timezone = "UTC"
	}
	if cfg.Source.HTTP.SitesPath == "" {
		cfg.Source.HTTP.SitesPath = def.Source.HTTP.SitesPath
	}
	if cfg.Source.HTTP.Timeout <= 0 {
		cfg.Source.HTTP.Timeout = def.Source.HTTP.Timeout
	}
	if cfg.Source.HTTP.RetryCount < 0 {
		cfg.Source.HTTP.RetryCount = 0
	}
	if cfg.Source.Kafka.ReadTimeout <= 0 {
		cfg.Source.Kafka.ReadTimeout = def.Source.Kafka.ReadTimeout
	}
	if cfg.Source.SQL.Driver == "" {
		cfg.Source.SQL.Driver = def.Source.SQL.Driver
	}
	if cfg.Refresh.Interval <= 0 {
		cfg.Refresh.Interval = def.Refresh.Interval
	}
	if cfg.Refresh.Timeout <= 0 {
		cfg.Refresh.Timeout = def.Refresh.Timeout
	}
	if cfg.Report.Title == "" {
		cfg.Report.Title = def.Report.Title
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	src := cfg.Source
	switch src.Driver {
	case "http":
		if src.HTTP.BaseURL == "" {
			return errors.New("source.http.base_url required when source.driver is http")
		}
	case "file":
		if src.File.SitesPath == "" {
			return errors.New("source.file.sites_path required when source.driver is file")
		}
	case "redis":
		if src.Redis.Addr == "" {
			return errors.New("source.redis.addr required when source.driver is redis")
		}
	case "kafka":
		if len(src.Kafka.Brokers) == 0 || src.Kafka.Topic == "" {
			return errors.New("source.kafka requires brokers, topic")
		}
	case "sql":
		switch strings.ToLower(src.SQL.Driver) {
		case "sqlite", "postgres", "postgresql":
		default:
			return fmt.Errorf("source.sql.driver unsupported: %q", src.SQL.Driver)
		}
	default:
		return fmt.Errorf("source.driver unsupported: %q", src.Driver)
	}
	if cfg.Refresh.Interval < time.Second {
		return fmt.Errorf("refresh.interval must be >= 1s: %s", cfg.Refresh.Interval)
	}
	for _, id := range cfg.Scope.Include {
		if strings.TrimSpace(id) == "" {
			return errors.New("scope.include contains an empty site id")
		}
	}
	return nil
}

// Manager holds two layers: the file layer as decoded from disk and the
// effective config with environment overrides applied. Only the file layer
// is ever written back, so env-only values such as tokens and DSNs stay
// off disk.
type Manager struct {
	path string
	cfg  atomic.Value

	mu      sync.Mutex
	file    *Config
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	file, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := effective(file)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path, file: file}
	m.cfg.Store(cfg)
	if info, err := os.Stat(path); err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps a config that has no backing file.
func NewStaticManager(cfg *Config) *Manager {
	m := &Manager{file: cfg.Clone()}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	file, err := loadFile(m.path)
	if err != nil {
		return nil, err
	}
	cfg, err := effective(file)
	if err != nil {
		return nil, err
	}
	m.file = file
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

// Update applies mutate to a copy of the file layer, validates the result
// with environment overrides applied, saves the file layer and swaps in the
// new effective config.
func (m *Manager) Update(mutate func(*Config)) (*Config, error) {
	if mutate == nil {
		return nil, errors.New("nil update")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.file
	if base == nil {
		base = DefaultConfig()
	}
	file := base.Clone()
	mutate(file)
	cfg, err := effective(file)
	if err != nil {
		return nil, err
	}
	if m.path != "" {
		if err := Save(m.path, file); err != nil {
			return nil, err
		}
		if info, err := os.Stat(m.path); err == nil {
			m.modTime = info.ModTime()
		}
	}
	m.file = file
	m.cfg.Store(cfg)
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return info.ModTime().After(m.modTime), nil
}

// Watch polls the file's mtime every interval and reloads it when it
// changes. onReload receives each new config; onError receives stat and
// parse failures, after which the previous config stays active.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onReload func(*Config), onError func(error)) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cfg, changed, err := m.reloadIfChanged()
		switch {
		case err != nil:
			if onError != nil {
				onError(err)
			}
		case changed && onReload != nil:
			onReload(cfg)
		}
	}
}

func (m *Manager) reloadIfChanged() (*Config, bool, error) {
	needs, err := m.NeedsReload()
	if err != nil || !needs {
		return nil, false, err
	}
	cfg, err := m.Reload()
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// RestartRequired lists the settings that differ between prev and next but
// only take effect at startup: the source, the API listener and the log
// format.
func RestartRequired(prev, next *Config) []string {
	if prev == nil || next == nil {
		return nil
	}
	var out []string
	if !reflect.DeepEqual(prev.Source, next.Source) {
		out = append(out, "source")
	}
	if prev.API != next.API {
		out = append(out, "api")
	}
	if !strings.EqualFold(prev.Log.Format, next.Log.Format) {
		out = append(out, "log.format")
	}
	return out
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
