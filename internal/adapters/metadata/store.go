// Package metadata stores private per-account key/value metadata.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Sentinel errors for this package.
var (
	ErrUnknownDriver = errors.New("unknown metadata driver")
	ErrOpen          = errors.New("open metadata store")
)

// Store keeps string values per account and key. Get reports a missing
// value with ok == false, not an error.
type Store interface {
	Get(ctx context.Context, account, key string) (string, bool, error)
	Set(ctx context.Context, account, key, value string) error
	Delete(ctx context.Context, account, key string) error
	io.Closer
}

// Options selects and configures a driver.
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
}

// Open builds the store named by opts.Driver. An empty driver means memory.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		s, err := NewRedis(ctx, RedisConfig{Addr: opts.RedisAddr, Password: opts.RedisPassword, DB: opts.RedisDB})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
		return s, nil
	case DriverSQLite:
		s, err := NewSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
