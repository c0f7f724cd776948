package keystore

import (
	"context"
	"crypto/hmac"
	"fmt"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/sessionkey"
)

// Derived stores nothing: every session key is derived from a master secret
// and the song id. Protecting with it requires the derived key, see Key.
type Derived struct {
	master []byte
}

// NewDerived creates a Derived store from a master secret.
func NewDerived(master []byte) (*Derived, error) {
	if len(master) < sessionkey.MinMasterSize {
		return nil, fmt.Errorf("%w: %v", drm.ErrMissingKey, sessionkey.ErrShortMaster)
	}
	return &Derived{master: append([]byte(nil), master...)}, nil
}

// Key returns the session key for id. Pass it as ProtectConfig.SessionKey.
func (s *Derived) Key(id drm.SongID) ([]byte, error) {
	key, err := sessionkey.Derive(s.master, id[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	return key, nil
}

// Put accepts only the key Get would return for id.
func (s *Derived) Put(_ context.Context, id drm.SongID, key []byte) error {
	want, err := s.Key(id)
	if err != nil {
		return err
	}
	defer sessionkey.Zero(want)

	if !hmac.Equal(want, key) {
		return fmt.Errorf("%w: key for %s was not derived from the master secret", drm.ErrInput, id)
	}
	return nil
}

func (s *Derived) Get(_ context.Context, id drm.SongID) ([]byte, error) {
	return s.Key(id)
}

func (s *Derived) Close() error {
	sessionkey.Zero(s.master)
	return nil
}
