// Package config holds the bot's application configuration on top of the core config.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
	coredatabase "github.com/m3rciful/pdfbot/core/database"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// FilesConfig controls staging of uploads.
type FilesConfig struct {
	Dir           string        `yaml:"dir" envconfig:"FILES_DIR"`
	MaxSizeMB     int           `yaml:"max_size_mb" envconfig:"FILES_MAX_SIZE_MB"`
	MaxMergeFiles int           `yaml:"max_merge_files" envconfig:"FILES_MAX_MERGE_FILES"`
	MaxImages     int           `yaml:"max_images" envconfig:"FILES_MAX_IMAGES"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"FILES_SWEEP_INTERVAL"`
	SweepAge      time.Duration `yaml:"sweep_age" envconfig:"FILES_SWEEP_AGE"`
}

// MaxSizeBytes converts the size limit.
func (f FilesConfig) MaxSizeBytes() int64 {
	return int64(f.MaxSizeMB) << 20
}

type SessionConfig struct {
	Backend string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	// TTL expires idle sessions and their staged files.
	TTL     time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	LockTTL time.Duration `yaml:"lock_ttl" envconfig:"SESSION_LOCK_TTL"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

type SubscribersConfig struct {
	Backend string `yaml:"backend" envconfig:"SUBSCRIBERS_BACKEND"`
}

// OpsConfig sizes the operation pool and locates external converters.
type OpsConfig struct {
	Workers        int           `yaml:"workers" envconfig:"OPS_WORKERS"`
	QueueSize      int           `yaml:"queue_size" envconfig:"OPS_QUEUE_SIZE"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"OPS_TIMEOUT"`
	GhostscriptBin string        `yaml:"ghostscript_bin" envconfig:"OPS_GHOSTSCRIPT_BIN"`
	LibreOfficeBin string        `yaml:"libreoffice_bin" envconfig:"OPS_LIBREOFFICE_BIN"`
	DPI            float64       `yaml:"dpi" envconfig:"OPS_DPI"`
	JPEGQuality    int           `yaml:"jpeg_quality" envconfig:"OPS_JPEG_QUALITY"`
	MaxRenderPages int           `yaml:"max_render_pages" envconfig:"OPS_MAX_RENDER_PAGES"`
}

type I18nConfig struct {
	DefaultLanguage string `yaml:"default_language" envconfig:"I18N_DEFAULT_LANGUAGE"`
}

type MetricsConfig struct {
	// Listen is the address of the /metrics and /healthz server; empty disables it.
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// AppConfig is the full bot configuration.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Files       FilesConfig         `yaml:"files"`
	Session     SessionConfig       `yaml:"session"`
	Redis       RedisConfig         `yaml:"redis"`
	Database    coredatabase.Config `yaml:"database"`
	Subscribers SubscribersConfig   `yaml:"subscribers"`
	Ops         OpsConfig           `yaml:"ops"`
	I18n        I18nConfig          `yaml:"i18n"`
	Metrics     MetricsConfig       `yaml:"metrics"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads path (YAML, optional) and the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections and fills defaults.
func Normalize(cfg *AppConfig) error {
	f := &cfg.Files
	if f.MaxSizeMB <= 0 {
		f.MaxSizeMB = 50
	}
	if f.MaxMergeFiles <= 0 {
		f.MaxMergeFiles = 20
	}
	if f.MaxImages <= 0 {
		f.MaxImages = 100
	}
	if f.SweepInterval <= 0 {
		f.SweepInterval = time.Hour
	}
	if f.SweepAge <= 0 {
		f.SweepAge = 24 * time.Hour
	}

	s := &cfg.Session
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendMemory
	}
	if s.Backend != BackendMemory && s.Backend != BackendRedis {
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", cfg.Session.Backend)
	}
	if s.TTL <= 0 {
		s.TTL = time.Hour
	}
	if s.LockTTL <= 0 {
		s.LockTTL = 30 * time.Second
	}

	sub := &cfg.Subscribers
	sub.Backend = strings.ToLower(strings.TrimSpace(sub.Backend))
	if sub.Backend == "" {
		sub.Backend = BackendMemory
		if cfg.Database.Enabled() {
			sub.Backend = BackendPostgres
		}
	}
	switch sub.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if !cfg.Database.Enabled() {
			return fmt.Errorf("subscribers.backend postgres requires database.host and database.name")
		}
	default:
		return fmt.Errorf("invalid subscribers.backend %q; allowed: memory, redis, postgres", cfg.Subscribers.Backend)
	}

	if cfg.UsesRedis() && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return fmt.Errorf("redis.addr is required when a redis backend is selected")
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "pdfbot:"
	}

	o := &cfg.Ops
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}

	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
	return nil
}

// UsesRedis reports whether any backend needs a Redis client.
func (c *AppConfig) UsesRedis() bool {
	return c.Session.Backend == BackendRedis || c.Subscribers.Backend == BackendRedis
}

// UsesDatabase reports whether Postgres must be connected and migrated at startup.
func (c *AppConfig) UsesDatabase() bool {
	return c.Subscribers.Backend == BackendPostgres
}
