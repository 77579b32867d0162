// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Keys are flat and snake_case so that SERVHOOKS_<KEY> env vars map 1:1.
//   - New returns a Config populated with defaults; Load layers overrides on top.
//   - Validation errors wrap ErrInvalidConfig, loader errors wrap ErrLoadConfig.
package config

import (
	"runtime"
	"time"
)

// Metadata store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the hook ingress listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of fetch workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the hook delivery id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// LookupBaseURL is the metadata endpoint for resource lookups.
	LookupBaseURL string `koanf:"lookup_base_url"`
	// LookupAPIKey is appended to every lookup as the key parameter.
	LookupAPIKey string `koanf:"lookup_api_key"`
	// LookupTimeoutMS bounds a single lookup call.
	LookupTimeoutMS int `koanf:"lookup_timeout_ms"`
	// LookupRatePerMinute and LookupBurst throttle lookups per channel. Zero disables.
	LookupRatePerMinute float64 `koanf:"lookup_rate_per_minute"`
	LookupBurst         int     `koanf:"lookup_burst"`

	// NotifyDeleteURL receives account deletion notifications. Required.
	NotifyDeleteURL string `koanf:"notify_delete_url"`
	// NotifyTimeoutMS bounds a single deletion notification.
	NotifyTimeoutMS int `koanf:"notify_timeout_ms"`

	// HostControlURL receives host actions (notices, renames, kills).
	// Empty means actions are only logged.
	HostControlURL string `koanf:"host_control_url"`
	// HostTimeoutMS bounds a single host action.
	HostTimeoutMS int `koanf:"host_timeout_ms"`

	// NickServNick is the service identity used for identity notices.
	NickServNick string `koanf:"nickserv_nick"`
	// ManagedChannels maps channel names to the bot assigned to them at startup.
	ManagedChannels map[string]string `koanf:"managed_channels"`

	// GuestPrefix, GuestMaxAttempts and GuestMaxSuffix shape placeholder nicknames.
	GuestPrefix      string `koanf:"guest_prefix"`
	GuestMaxAttempts int    `koanf:"guest_max_attempts"`
	GuestMaxSuffix   int    `koanf:"guest_max_suffix"`
	// NickLen is the host's maximum nickname length in bytes.
	NickLen int `koanf:"nick_len"`

	// MessageLimit caps outbound message lines in bytes.
	MessageLimit int `koanf:"message_limit"`
	// MaxResponseBytes caps bodies read from external endpoints.
	MaxResponseBytes int64 `koanf:"max_response_bytes"`

	// MetadataDriver selects the account metadata store: memory, redis or sqlite.
	MetadataDriver string `koanf:"metadata_driver"`
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	SQLitePath     string `koanf:"sqlite_path"`

	// TraceEnabled turns on the OpenTelemetry stdout exporter.
	TraceEnabled bool `koanf:"trace_enabled"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           1_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		LookupBaseURL:       "https://www.googleapis.com/youtube/v3/videos",
		LookupTimeoutMS:     5_000,
		LookupRatePerMinute: 6,
		LookupBurst:         3,
		NotifyTimeoutMS:     5_000,
		HostTimeoutMS:       5_000,
		NickServNick:        "NickServ",
		ManagedChannels:     map[string]string{},
		GuestPrefix:         "Guest",
		GuestMaxAttempts:    30,
		GuestMaxSuffix:      9_999,
		NickLen:             30,
		MessageLimit:        512,
		MaxResponseBytes:    1 << 20,
		MetadataDriver:      DriverMemory,
	}
}

// LookupTimeout returns the lookup timeout as a duration.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutMS) * time.Millisecond
}

// NotifyTimeout returns the deletion notification timeout as a duration.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutMS) * time.Millisecond
}

// HostTimeout returns the host action timeout as a duration.
func (c *Config) HostTimeout() time.Duration {
	return time.Duration(c.HostTimeoutMS) * time.Millisecond
}
