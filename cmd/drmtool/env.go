package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gost/core/logger"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/config"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/keystore"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/secrets"
)

// env is what every command resolves from its -config flag.
type env struct {
	config *config.Config
	log    logger.Logger
}

// newFlagSet creates a subcommand flag set carrying the shared -config flag.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	flags := flag.NewFlagSet("drmtool "+name, flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to the drmtool YAML config (defaults apply if empty)")
	return flags, configPath
}

func loadEnv(configPath string) (*env, error) {
	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	return &env{config: c, log: c.Logger()}, nil
}

func (e *env) authorityKey() ([]byte, error) {
	return e.config.AuthorityKey()
}

func (e *env) regions() (drm.RegionTable, error) {
	return secrets.LoadRegions(e.config.Path(e.config.RegionsFile))
}

func (e *env) users() (secrets.Users, error) {
	return secrets.LoadUsers(e.config.Path(e.config.UsersFile))
}

func (e *env) openStore(ctx context.Context) (keystore.Store, error) {
	opts, err := e.config.KeyStoreOptions(e.log)
	if err != nil {
		return nil, err
	}
	return keystore.Open(ctx, opts)
}

// requireFlags fails when any of the named string flags is empty.
func requireFlags(flags *flag.FlagSet, names ...string) error {
	for _, name := range names {
		if f := flags.Lookup(name); f == nil || f.Value.String() == "" {
			return fmt.Errorf("%w: -%s is required", drm.ErrInput, name)
		}
	}
	return nil
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// writeAtomic writes path through a temporary file in the same directory and
// renames it into place only when write succeeds.
func writeAtomic(path string, perm fs.FileMode, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readHeader parses the header at the start of f and rewinds it.
func readHeader(f *os.File) (*drm.Header, error) {
	h, err := drm.ParseHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return h, nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	return f, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
