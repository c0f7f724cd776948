package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

func runKeygen(_ context.Context, args []string) error {
	flags, _ := newFlagSet("keygen")
	out := flags.String("out", "", "Key file to create (required)")
	size := flags.Int("size", crypto.SignatureSize, "Key size in bytes")
	force := flags.Bool("force", false, "Overwrite an existing key file")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "out"); err != nil {
		return err
	}
	if *size < crypto.SessionKeySize {
		return fmt.Errorf("%w: keys must be at least %d bytes", drm.ErrInput, crypto.SessionKeySize)
	}

	key := make([]byte, *size)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return err
	}

	mode := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if *force {
		mode = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(*out, mode, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
