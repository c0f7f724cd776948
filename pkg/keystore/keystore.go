// Package keystore persists song session keys outside the protected container.
package keystore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gost/core/logger"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

// Backend names a key store implementation.
type Backend string

const (
	BackendFile    Backend = "file"
	BackendMemory  Backend = "memory"
	BackendRedis   Backend = "redis"
	BackendDerived Backend = "derived"
)

// Store is a drm.KeyStore that holds resources until closed.
type Store interface {
	drm.KeyStore
	Close() error
}

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to the hex song id to form the redis key.
	Prefix string

	// TTL expires stored keys. Zero keeps them forever.
	TTL time.Duration
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend Backend

	// Dir holds the key files of the file backend.
	Dir string

	// Expiration is the memory backend's default expiration. Zero never expires.
	Expiration time.Duration

	Redis RedisOptions

	// MasterKey is the derived backend's master secret.
	MasterKey []byte

	Logger logger.Logger
}

// Open creates the store selected by opts.Backend. An empty backend selects
// the file store.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFile(opts.Dir)
	case BackendMemory:
		return NewMemory(opts.Expiration), nil
	case BackendRedis:
		return NewRedis(ctx, opts.Redis, opts.Logger)
	case BackendDerived:
		return NewDerived(opts.MasterKey)
	default:
		return nil, fmt.Errorf("%w: unknown key store backend %q", drm.ErrInput, opts.Backend)
	}
}
