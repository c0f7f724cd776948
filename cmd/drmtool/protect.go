package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/keystore"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/receipt"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/wav"
)

// locator is implemented by key stores that can say where a key lives.
type locator interface {
	Locator(id drm.SongID) string
}

func runProtect(ctx context.Context, args []string) error {
	flags, configPath := newFlagSet("protect")
	in := flags.String("in", "", "Song to protect (required)")
	out := flags.String("out", "", "Output container (defaults to <in>.drm)")
	owner := flags.String("owner", "", "Owner user name (required)")
	regions := flags.String("regions", "", "Comma separated region names (required)")
	shared := flags.String("shared", "", "Comma separated users to share with")
	len250ms := flags.Uint("len250ms", 0, "Audio bytes per 250ms (read from the WAV header if zero)")
	segmentSize := flags.Int("segment-size", 0, "Plaintext bytes per segment (config value if zero)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "in", "owner", "regions"); err != nil {
		return err
	}
	if *out == "" {
		*out = *in + ".drm"
	}

	e, err := loadEnv(*configPath)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("%w: %v", drm.ErrInput, err)
	}

	rate := uint32(*len250ms)
	if rate == 0 {
		if rate, err = wav.Len250ms(source); err != nil {
			return fmt.Errorf("%w: -len250ms not given and %v", drm.ErrInput, err)
		}
	}

	regionTable, err := e.regions()
	if err != nil {
		return err
	}
	users, err := e.users()
	if err != nil {
		return err
	}
	ownerKey, ok := users.UserKey(*owner)
	if !ok {
		return fmt.Errorf("%w: %q", drm.ErrUnknownUser, *owner)
	}
	authorityKey, err := e.authorityKey()
	if err != nil {
		return err
	}

	store, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	size := *segmentSize
	if size == 0 {
		size = e.config.SegmentSize
	}

	cfg := drm.ProtectConfig{
		SongID:       drm.NewSongID(),
		Owner:        *owner,
		OwnerKey:     ownerKey,
		AuthorityKey: authorityKey,
		Regions:      splitList(*regions),
		RegionTable:  regionTable,
		SharedUsers:  splitList(*shared),
		Len250ms:     rate,
		SegmentSize:  size,
		KeyStore:     store,
		Logger:       e.log,
	}
	if derived, ok := store.(*keystore.Derived); ok {
		if cfg.SessionKey, err = derived.Key(cfg.SongID); err != nil {
			return err
		}
	}

	var res *drm.Result
	err = writeAtomic(*out, 0o644, func(w io.Writer) error {
		var err error
		res, err = drm.ProtectTo(ctx, w, bytes.NewReader(source), cfg)
		return err
	})
	if err != nil {
		return err
	}

	ref := receipt.KeyRef{Backend: e.config.KeyStore.Backend}
	if l, ok := store.(locator); ok {
		ref.Locator = l.Locator(res.SongID)
	}
	if err := receipt.New(res, *owner, cfg.Regions, ref).Save(receipt.Path(*out)); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}

	e.log.Infof("wrote %s: song %s, %d segments, %d bytes", *out, res.SongID, res.Segments, res.ContainerSize)
	return nil
}
