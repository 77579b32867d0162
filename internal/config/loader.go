package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SERVHOOKS_"
	envConfig  = "SERVHOOKS_CONFIG"
	maxNickLen = 512
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SERVHOOKS_CONFIG is set
//  3. env (prefix SERVHOOKS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SERVHOOKS_QUEUE_SIZE -> queue_size. Underscores are kept so keys stay flat.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.NotifyDeleteURL == "":
		return invalid("notify_delete_url must be set")
	case c.LookupTimeoutMS <= 0 || c.NotifyTimeoutMS <= 0 || c.HostTimeoutMS <= 0:
		return invalid("timeouts must be positive")
	case c.GuestPrefix == "":
		return invalid("guest_prefix must not be empty")
	case c.GuestMaxAttempts < 1:
		return invalid("guest_max_attempts must be at least 1")
	case c.GuestMaxSuffix < 1:
		return invalid("guest_max_suffix must be at least 1")
	case c.NickLen <= len(c.GuestPrefix) || c.NickLen > maxNickLen:
		return invalid("nick_len must leave room for a placeholder suffix")
	case c.MessageLimit < 64:
		return invalid("message_limit must be at least 64")
	case c.LookupRatePerMinute < 0 || c.LookupBurst < 0:
		return invalid("lookup throttle must not be negative")
	}

	if err := checkURL("notify_delete_url", c.NotifyDeleteURL); err != nil {
		return err
	}
	if err := checkURL("lookup_base_url", c.LookupBaseURL); err != nil {
		return err
	}
	if c.HostControlURL != "" {
		if err := checkURL("host_control_url", c.HostControlURL); err != nil {
			return err
		}
	}

	switch c.MetadataDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisAddr == "" {
			return invalid("redis_addr is required for the redis metadata driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path is required for the sqlite metadata driver")
		}
	default:
		return invalid("unknown metadata_driver " + c.MetadataDriver)
	}
	return nil
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(key + " must be an absolute http(s) URL")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
