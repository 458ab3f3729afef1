// Package config provides the server configuration value and its
// persistence layer.
//
// ServerConfig is an immutable value: edits produce a new value via the
// With* copy methods, never an in-place mutation. Persistence goes
// through the Store interface; corrupted or missing persisted data
// silently yields the documented defaults.
package config

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimeout indicates a non-positive request handler timeout.
	ErrInvalidTimeout = errors.New("request handler timeout must be positive")

	// ErrInvalidInterval indicates a non-positive stats update interval.
	ErrInvalidInterval = errors.New("resource stats update interval must be positive")

	// ErrInvalidConcurrency indicates max concurrent requests below one.
	ErrInvalidConcurrency = errors.New("max concurrent requests must be at least 1")
)

// Default configuration values.
const (
	DefaultRequestHandlerTimeout       = 30 * time.Second
	DefaultMaxConcurrentRequests       = 10
	DefaultResourceStatsUpdateInterval = 5 * time.Second
)

// ServerConfig holds one server instance's configuration.
//
// The value is immutable by convention: replace it wholesale on any
// edit using the With* methods.
type ServerConfig struct {
	RunInBackground              bool
	RequestHandlerTimeout        time.Duration
	MaxConcurrentRequests        int
	MonitorResourceUsage         bool
	ResourceStatsUpdateInterval  time.Duration
	UseForegroundServiceOnMobile bool
	RegisterWithSystemTray       bool
}

// Default returns the documented default configuration.
func Default() ServerConfig {
	return ServerConfig{
		RunInBackground:              true,
		RequestHandlerTimeout:        DefaultRequestHandlerTimeout,
		MaxConcurrentRequests:        DefaultMaxConcurrentRequests,
		MonitorResourceUsage:         true,
		ResourceStatsUpdateInterval:  DefaultResourceStatsUpdateInterval,
		UseForegroundServiceOnMobile: true,
		RegisterWithSystemTray:       false,
	}
}

// Validate checks the configuration invariants: all durations positive,
// concurrency at least one.
func (c ServerConfig) Validate() error {
	if c.RequestHandlerTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.RequestHandlerTimeout)
	}

	if c.ResourceStatsUpdateInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, c.ResourceStatsUpdateInterval)
	}

	if c.MaxConcurrentRequests < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.MaxConcurrentRequests)
	}

	return nil
}

// WithRunInBackground returns a copy with RunInBackground replaced.
func (c ServerConfig) WithRunInBackground(v bool) ServerConfig {
	c.RunInBackground = v

	return c
}

// WithRequestHandlerTimeout returns a copy with RequestHandlerTimeout replaced.
func (c ServerConfig) WithRequestHandlerTimeout(d time.Duration) ServerConfig {
	c.RequestHandlerTimeout = d

	return c
}

// WithMaxConcurrentRequests returns a copy with MaxConcurrentRequests replaced.
func (c ServerConfig) WithMaxConcurrentRequests(n int) ServerConfig {
	c.MaxConcurrentRequests = n

	return c
}

// WithMonitorResourceUsage returns a copy with MonitorResourceUsage replaced.
func (c ServerConfig) WithMonitorResourceUsage(v bool) ServerConfig {
	c.MonitorResourceUsage = v

	return c
}

// WithResourceStatsUpdateInterval returns a copy with
// ResourceStatsUpdateInterval replaced.
func (c ServerConfig) WithResourceStatsUpdateInterval(d time.Duration) ServerConfig {
	c.ResourceStatsUpdateInterval = d

	return c
}

// WithUseForegroundServiceOnMobile returns a copy with
// UseForegroundServiceOnMobile replaced.
func (c ServerConfig) WithUseForegroundServiceOnMobile(v bool) ServerConfig {
	c.UseForegroundServiceOnMobile = v

	return c
}

// WithRegisterWithSystemTray returns a copy with RegisterWithSystemTray replaced.
func (c ServerConfig) WithRegisterWithSystemTray(v bool) ServerConfig {
	c.RegisterWithSystemTray = v

	return c
}
