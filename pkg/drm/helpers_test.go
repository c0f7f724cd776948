package drm

import (
	"bytes"
	"context"
	"sync"
)

var (
	testAuthorityKey = bytes.Repeat([]byte{0xA5}, 64)
	testOwnerKey     = bytes.Repeat([]byte{0x0F}, 64)
	testRegions      = RegionTable{"United States": 1, "Japan": 2, "Australia": 3}
)

const testSegmentSize = 64

// memStore is a map-backed KeyStore that records every Put.
type memStore struct {
	mu   sync.Mutex
	keys map[SongID][]byte
	puts int
}

func newMemStore() *memStore {
	return &memStore{keys: map[SongID][]byte{}}
}

func (s *memStore) Put(_ context.Context, id SongID, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[id] = append([]byte(nil), key...)
	s.puts++
	return nil
}

func (s *memStore) Get(_ context.Context, id SongID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), key...), nil
}

func testProtectConfig(store KeyStore) ProtectConfig {
	return ProtectConfig{
		Owner:        "misha",
		OwnerKey:     testOwnerKey,
		AuthorityKey: testAuthorityKey,
		Regions:      []string{"United States", "Japan"},
		RegionTable:  testRegions,
		Len250ms:     8,
		SegmentSize:  testSegmentSize,
		KeyStore:     store,
	}
}

func testUnprotectConfig(store KeyStore) UnprotectConfig {
	return UnprotectConfig{
		AuthorityKey: testAuthorityKey,
		KeyStore:     store,
	}
}

// testSource returns a prefix followed by n body bytes.
func testSource(n int) []byte {
	src := make([]byte, SourcePrefixSize+n)
	copy(src, "RIFF....WAVEfmt ")
	for i := SourcePrefixSize; i < len(src); i++ {
		src[i] = byte(i % 251)
	}
	return src
}

// segmentSpan returns the offset and length of segment i (payload and trailer)
// in a container made with testSegmentSize.
func segmentSpan(i int) (int, int) {
	full := testSegmentSize + TrailerSize
	return HeaderSize + i*full, full
}
