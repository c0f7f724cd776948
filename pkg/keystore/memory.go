package keystore

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

// Memory keeps session keys in process, optionally expiring them.
type Memory struct {
	keys *cache.Cache
}

// NewMemory creates a Memory store. Keys expire after expiration unless it
// is zero.
func NewMemory(expiration time.Duration) *Memory {
	if expiration <= 0 {
		return &Memory{keys: cache.New(cache.NoExpiration, 0)}
	}
	return &Memory{keys: cache.New(expiration, expiration)}
}

func (s *Memory) Put(_ context.Context, id drm.SongID, key []byte) error {
	s.keys.Set(id.String(), append([]byte(nil), key...), cache.DefaultExpiration)
	return nil
}

func (s *Memory) Get(_ context.Context, id drm.SongID) ([]byte, error) {
	v, ok := s.keys.Get(id.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", drm.ErrKeyNotFound, id)
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Len returns the number of unexpired keys.
func (s *Memory) Len() int {
	return s.keys.ItemCount()
}

func (s *Memory) Close() error {
	s.keys.Flush()
	return nil
}
