package main

import (
	"context"
	"fmt"
	"io"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/receipt"
)

func runShare(ctx context.Context, args []string) error {
	flags, configPath := newFlagSet("share")
	in := flags.String("in", "", "Protected container (required)")
	out := flags.String("out", "", "Shared container (defaults to replacing -in)")
	user := flags.String("user", "", "User to share with (required)")
	pin := flags.String("pin", "", "Owner PIN (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "in", "user", "pin"); err != nil {
		return err
	}
	if *out == "" {
		*out = *in
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

	h, err := readHeader(f)
	if err != nil {
		return err
	}

	users, err := e.users()
	if err != nil {
		return err
	}
	if _, ok := users.UserKey(*user); !ok {
		return fmt.Errorf("%w: %q", drm.ErrUnknownUser, *user)
	}
	ownerKey, err := users.Login(h.Owner.String(), *pin)
	if err != nil {
		return fmt.Errorf("%w: %v", drm.ErrNotOwner, err)
	}

	authorityKey, err := e.authorityKey()
	if err != nil {
		return err
	}

	var shared *drm.Header
	err = writeAtomic(*out, 0o644, func(w io.Writer) error {
		var err error
		shared, err = drm.ShareContainer(w, f, *user, authorityKey, ownerKey)
		return err
	})
	if err != nil {
		return err
	}

	// The body is unchanged, so the receipt of the source still applies
	if *out != *in && fileExists(receipt.Path(*in)) {
		r, err := receipt.Load(receipt.Path(*in))
		if err != nil {
			return err
		}
		if err := r.Save(receipt.Path(*out)); err != nil {
			return err
		}
	}

	e.log.Infof("shared %s with %s, now shared with %v", shared.SongID, *user, shared.SharedWith())
	return nil
}
