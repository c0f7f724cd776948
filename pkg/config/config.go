// Package config loads the YAML configuration shared by the drmtool commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gost/core/logger"
	"gopkg.in/yaml.v3"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/keystore"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/logging"
)

// Config is the tool configuration.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	SegmentSize int    `yaml:"segment_size"`

	// AuthorityKeyFile holds the raw content-authority key.
	AuthorityKeyFile string `yaml:"authority_key_file"`

	RegionsFile string `yaml:"regions_file"`
	UsersFile   string `yaml:"users_file"`

	KeyStore KeyStoreConfig `yaml:"keystore"`

	// dir is the directory of the loaded file; relative paths resolve against it.
	dir string
}

// KeyStoreConfig selects where session keys are kept.
type KeyStoreConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	Expiration    time.Duration `yaml:"expiration"`
	MasterKeyFile string        `yaml:"master_key_file"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig configures the redis key store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:         string(logger.InfoLevel),
		SegmentSize:      drm.DefaultSegmentSize,
		AuthorityKeyFile: "secrets/authority.key",
		RegionsFile:      "secrets/regions.json",
		UsersFile:        "secrets/users.json",
		KeyStore: KeyStoreConfig{
			Backend: string(keystore.BackendFile),
			Dir:     "keys",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config: %v", drm.ErrInput, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", drm.ErrFormat, err)
	}
	config.dir = filepath.Dir(path)

	setDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(c *Config) {
	if c.LogLevel == "" {
		c.LogLevel = string(logger.InfoLevel)
	}
	if c.SegmentSize == 0 {
		c.SegmentSize = drm.DefaultSegmentSize
	}
	if c.KeyStore.Backend == "" {
		c.KeyStore.Backend = string(keystore.BackendFile)
	}
	if c.KeyStore.Backend == string(keystore.BackendFile) && c.KeyStore.Dir == "" {
		c.KeyStore.Dir = "keys"
	}
}

// Validate checks the configuration for values no command can use.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", drm.ErrInput, err)
	}
	if c.SegmentSize <= 0 || c.SegmentSize%crypto.BlockSize != 0 {
		return fmt.Errorf("%w: got %d", drm.ErrInvalidSegment, c.SegmentSize)
	}

	switch keystore.Backend(c.KeyStore.Backend) {
	case keystore.BackendFile:
		if c.KeyStore.Dir == "" {
			return fmt.Errorf("%w: keystore.dir is required", drm.ErrInput)
		}
	case keystore.BackendMemory:
	case keystore.BackendRedis:
		if c.KeyStore.Redis.Addr == "" {
			return fmt.Errorf("%w: keystore.redis.addr is required", drm.ErrInput)
		}
	case keystore.BackendDerived:
		if c.KeyStore.MasterKeyFile == "" {
			return fmt.Errorf("%w: keystore.master_key_file is required", drm.ErrInput)
		}
	default:
		return fmt.Errorf("%w: unknown keystore backend %q", drm.ErrInput, c.KeyStore.Backend)
	}

	if c.KeyStore.Expiration < 0 || c.KeyStore.Redis.TTL < 0 {
		return fmt.Errorf("%w: negative key expiration", drm.ErrInput)
	}
	return nil
}

// Path resolves p against the directory of the loaded config file.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Logger creates the tool logger at the configured level.
func (c *Config) Logger() logger.Logger {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logger.InfoLevel
	}
	return logging.New(os.Stderr, level)
}

// AuthorityKey reads the content-authority key.
func (c *Config) AuthorityKey() ([]byte, error) {
	return ReadSecret(c.Path(c.AuthorityKeyFile))
}

// KeyStoreOptions converts the key store section for keystore.Open. The
// derived backend's master key is read here.
func (c *Config) KeyStoreOptions(log logger.Logger) (keystore.Options, error) {
	ks := c.KeyStore
	opts := keystore.Options{
		Backend:    keystore.Backend(ks.Backend),
		Dir:        c.Path(ks.Dir),
		Expiration: ks.Expiration,
		Redis: keystore.RedisOptions{
			Addr:     ks.Redis.Addr,
			Password: ks.Redis.Password,
			DB:       ks.Redis.DB,
			Prefix:   ks.Redis.Prefix,
			TTL:      ks.Redis.TTL,
		},
		Logger: log,
	}

	if opts.Backend == keystore.BackendDerived {
		master, err := ReadSecret(c.Path(ks.MasterKeyFile))
		if err != nil {
			return opts, err
		}
		opts.MasterKey = master
	}
	return opts, nil
}

// ReadSecret reads a raw key file. Empty files are rejected.
func ReadSecret(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: key file path is empty", drm.ErrMissingKey)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key file: %v", drm.ErrInput, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", drm.ErrMissingKey, path)
	}
	return data, nil
}
