package main

import (
	"context"
	"fmt"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

func runVerify(ctx context.Context, args []string) error {
	flags, configPath := newFlagSet("verify")
	in := flags.String("in", "", "Protected container (required)")
	workers := flags.Int("workers", 0, "Segments verified in parallel (number of CPUs if zero)")
	ownerVerify := flags.Bool("owner-verify", false, "Also verify the owner signature")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "in"); err != nil {
		return err
	}

	e, err := loadEnv(*configPath)
	if err != nil {
		return err
	}

	f, err := openInput(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	authorityKey, err := e.authorityKey()
	if err != nil {
		return err
	}
	opts := drm.VerifyOptions{
		AuthorityKey: authorityKey,
		Workers:      *workers,
		Logger:       e.log,
	}

	if *ownerVerify {
		h, err := readHeader(f)
		if err != nil {
			return err
		}
		users, err := e.users()
		if err != nil {
			return err
		}
		key, ok := users.UserKey(h.Owner.String())
		if !ok {
			return fmt.Errorf("%w: owner %q", drm.ErrUnknownUser, h.Owner)
		}
		opts.OwnerKey = key
	}

	h, err := drm.VerifyContainer(ctx, f, info.Size(), opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s: ok, song %s, %d segments\n", *in, h.SongID, h.NrSegments)
	return nil
}
