package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gost/core/logger"
	"github.com/redis/go-redis/v9"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/logging"
)

const (
	defaultRedisPrefix = "drm:key:"
	redisPingTimeout   = 5 * time.Second
)

// Redis stores session keys in a redis server.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

// NewRedis connects to the server in opts and checks it with a ping.
func NewRedis(ctx context.Context, opts RedisOptions, log logger.Logger) (*Redis, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", drm.ErrInput)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", drm.ErrInput, opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	s := &Redis{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
		log:    logging.OrDefault(log).WithFields(map[string]any{"keystore": "redis", "addr": opts.Addr}),
	}
	s.log.Debugf("connected, prefix %q", prefix)
	return s, nil
}

// Locator returns the redis key holding the session key for id.
func (s *Redis) Locator(id drm.SongID) string {
	return s.prefix + id.String()
}

func (s *Redis) Put(ctx context.Context, id drm.SongID, key []byte) error {
	if err := s.client.Set(ctx, s.Locator(id), key, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to store key for %s: %w", drm.ErrInput, id, err)
	}
	s.log.Debugf("stored key for %s", id)
	return nil
}

func (s *Redis) Get(ctx context.Context, id drm.SongID) ([]byte, error) {
	key, err := s.client.Get(ctx, s.Locator(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", drm.ErrKeyNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch key for %s: %w", drm.ErrInput, id, err)
	}
	return key, nil
}

// Delete removes the key for id.
func (s *Redis) Delete(ctx context.Context, id drm.SongID) error {
	if err := s.client.Del(ctx, s.Locator(id)).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete key for %s: %w", drm.ErrInput, id, err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
