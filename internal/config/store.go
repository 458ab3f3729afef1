package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// recordKey is the fixed key the configuration record is persisted under.
const recordKey = "serverConfig"

// Store persists a ServerConfig. Load never fails: corrupted or missing
// data yields the documented defaults.
type Store interface {
	Load() ServerConfig
	Save(cfg ServerConfig) error
}

// record is the persisted JSON layout. Durations are stored as
// milliseconds so the file stays language neutral. Unknown keys in the
// file are ignored; missing keys fall back to defaults.
type record struct {
	RunInBackground               *bool  `mapstructure:"runInBackground"`
	RequestHandlerTimeoutMs       *int64 `mapstructure:"requestHandlerTimeoutMs"`
	MaxConcurrentRequests         *int   `mapstructure:"maxConcurrentRequests"`
	MonitorResourceUsage          *bool  `mapstructure:"monitorResourceUsage"`
	ResourceStatsUpdateIntervalMs *int64 `mapstructure:"resourceStatsUpdateIntervalMs"`
	UseForegroundServiceOnMobile  *bool  `mapstructure:"useForegroundServiceOnMobile"`
	RegisterWithSystemTray        *bool  `mapstructure:"registerWithSystemTray"`
}

// toConfig merges the record over the defaults.
func (r record) toConfig() ServerConfig {
	cfg := Default()

	if r.RunInBackground != nil {
		cfg.RunInBackground = *r.RunInBackground
	}

	if r.RequestHandlerTimeoutMs != nil {
		cfg.RequestHandlerTimeout = time.Duration(*r.RequestHandlerTimeoutMs) * time.Millisecond
	}

	if r.MaxConcurrentRequests != nil {
		cfg.MaxConcurrentRequests = *r.MaxConcurrentRequests
	}

	if r.MonitorResourceUsage != nil {
		cfg.MonitorResourceUsage = *r.MonitorResourceUsage
	}

	if r.ResourceStatsUpdateIntervalMs != nil {
		cfg.ResourceStatsUpdateInterval = time.Duration(*r.ResourceStatsUpdateIntervalMs) * time.Millisecond
	}

	if r.UseForegroundServiceOnMobile != nil {
		cfg.UseForegroundServiceOnMobile = *r.UseForegroundServiceOnMobile
	}

	if r.RegisterWithSystemTray != nil {
		cfg.RegisterWithSystemTray = *r.RegisterWithSystemTray
	}

	return cfg
}

// FileStore persists the configuration as a single JSON record in a file.
type FileStore struct {
	path string
	log  *slog.Logger
}

// Compile-time check that *FileStore implements Store.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With("component", "config"),
	}
}

// Load reads the persisted record. Any failure (missing file, malformed
// JSON, invalid values) yields the defaults, never an error.
func (s *FileStore) Load() ServerConfig {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		s.log.Debug("No usable config file, using defaults", "path", s.path, "error", err)

		return Default()
	}

	var rec record
	if err := v.UnmarshalKey(recordKey, &rec); err != nil {
		s.log.Warn("Corrupted config record, using defaults", "path", s.path, "error", err)

		return Default()
	}

	cfg := rec.toConfig()
	if err := cfg.Validate(); err != nil {
		s.log.Warn("Invalid persisted config, using defaults", "error", err)

		return Default()
	}

	return cfg
}

// Save writes the configuration record, replacing any previous one.
func (s *FileStore) Save(cfg ServerConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	v.Set(recordKey, map[string]any{
		"runInBackground":               cfg.RunInBackground,
		"requestHandlerTimeoutMs":       cfg.RequestHandlerTimeout.Milliseconds(),
		"maxConcurrentRequests":         cfg.MaxConcurrentRequests,
		"monitorResourceUsage":          cfg.MonitorResourceUsage,
		"resourceStatsUpdateIntervalMs": cfg.ResourceStatsUpdateInterval.Milliseconds(),
		"useForegroundServiceOnMobile":  cfg.UseForegroundServiceOnMobile,
		"registerWithSystemTray":        cfg.RegisterWithSystemTray,
	})

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	s.log.Debug("Config saved", "path", s.path)

	return nil
}
