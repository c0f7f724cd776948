package main

import (
	"context"
	"fmt"
	"io"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/receipt"
)

func runUnprotect(ctx context.Context, args []string) error {
	flags, configPath := newFlagSet("unprotect")
	in := flags.String("in", "", "Protected container (required)")
	out := flags.String("out", "", "Recovered song (required)")
	receiptPath := flags.String("receipt", "", "Receipt with the body length (defaults to <in>.receipt.yaml if present)")
	preview := flags.Bool("preview", false, "Recover only the 30 second preview")
	ownerVerify := flags.Bool("owner-verify", false, "Also verify the owner signature")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "in", "out"); err != nil {
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

	h, err := readHeader(f)
	if err != nil {
		return err
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

	cfg := drm.UnprotectConfig{
		AuthorityKey: authorityKey,
		KeyStore:     store,
		Preview:      *preview,
		Logger:       e.log,
	}

	if *ownerVerify {
		users, err := e.users()
		if err != nil {
			return err
		}
		key, ok := users.UserKey(h.Owner.String())
		if !ok {
			return fmt.Errorf("%w: owner %q", drm.ErrUnknownUser, h.Owner)
		}
		cfg.OwnerKey = key
	}

	path := *receiptPath
	if path == "" && fileExists(receipt.Path(*in)) {
		path = receipt.Path(*in)
	}
	if path != "" {
		r, err := receipt.Load(path)
		if err != nil {
			return err
		}
		if !r.Matches(h) {
			return fmt.Errorf("%w: receipt %s is for song %s", drm.ErrInput, path, r.SongID)
		}
		cfg.BodyLength = r.Layout.BodyLength
	} else {
		e.log.Warnf("no receipt for %s, output keeps the terminal padding", *in)
	}

	var n int64
	err = writeAtomic(*out, 0o644, func(w io.Writer) error {
		var err error
		n, err = drm.UnprotectTo(ctx, w, f, cfg)
		return err
	})
	if err != nil {
		return err
	}

	e.log.Infof("wrote %s: %d bytes", *out, n)
	return nil
}
