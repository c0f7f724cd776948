package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

func TestParseRegions(t *testing.T) {
	table, err := ParseRegions([]byte(`{"United States": 1, "Japan": 2, "Australia": 3}`))
	if err != nil {
		t.Fatalf("ParseRegions failed: %v", err)
	}

	codes, err := table.Encode([]string{"United States", "Japan"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if codes[0] != 1 || codes[1] != 2 || codes[2] != 0 {
		t.Errorf("codes: got %v", codes[:3])
	}
}

func TestParseRegionsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `regions`},
		{"not an object", `[1, 2]`},
		{"negative code", `{"Mars": -1}`},
		{"reserved code", `{"Mars": 0}`},
		{"duplicate code", `{"Japan": 2, "Mars": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRegions([]byte(tt.data)); !errors.Is(err, drm.ErrFormat) {
				t.Errorf("expected a format error, got %v", err)
			}
		})
	}
}

func TestRegionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	table := drm.RegionTable{"United States": 1, "Japan": 2}

	if err := SaveRegions(path, table); err != nil {
		t.Fatalf("SaveRegions failed: %v", err)
	}
	loaded, err := LoadRegions(path)
	if err != nil {
		t.Fatalf("LoadRegions failed: %v", err)
	}
	if len(loaded) != 2 || loaded["Japan"] != 2 {
		t.Errorf("loaded: got %v", loaded)
	}

	if _, err := LoadRegions(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, drm.ErrInput) {
		t.Errorf("expected an input error, got %v", err)
	}
}

func TestProvisionLogin(t *testing.T) {
	users := Users{}

	user, err := users.Provision("misha", "12345678")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if len(user.Salt) != crypto.UserSaltSize || len(user.Key) != crypto.UserKeySize {
		t.Fatalf("salt %d bytes, key %d bytes", len(user.Salt), len(user.Key))
	}

	key, err := users.Login("misha", "12345678")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !bytes.Equal(key, user.Key) {
		t.Error("login key doesn't match the provisioned key")
	}

	signing, ok := users.UserKey("misha")
	if !ok || !bytes.Equal(signing, user.Key) {
		t.Error("UserKey should return the provisioned key")
	}

	other, err := users.Provision("drew", "12345678")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if bytes.Equal(other.Key, user.Key) {
		t.Error("the same PIN should give different keys for different salts")
	}
}

func TestLoginErrors(t *testing.T) {
	users := Users{}
	if _, err := users.Provision("misha", "12345678"); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	_, err := users.Login("misha", "87654321")
	if !errors.Is(err, ErrBadPIN) || !errors.Is(err, drm.ErrAuthentication) {
		t.Errorf("expected ErrBadPIN, got %v", err)
	}

	_, err = users.Login("drew", "12345678")
	if !errors.Is(err, drm.ErrUnknownUser) || !errors.Is(err, drm.ErrLookup) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}

func TestProvisionErrors(t *testing.T) {
	tests := []struct {
		name string
		user string
		pin  string
		want error
	}{
		{"empty name", "", "1234", drm.ErrInput},
		{"empty pin", "misha", "", drm.ErrInput},
		{"long name", "a-name-that-is-too-long", "1234", drm.ErrFieldTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := Users{}
			if _, err := users.Provision(tt.user, tt.pin); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(users) != 0 {
				t.Error("a failed provision should not add a user")
			}
		})
	}
}

func TestUsersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")

	users := Users{}
	if _, err := users.Provision("misha", "12345678"); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if err := SaveUsers(path, users); err != nil {
		t.Fatalf("SaveUsers failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("user table mode: got %v", info.Mode().Perm())
	}

	loaded, err := LoadUsers(path)
	if err != nil {
		t.Fatalf("LoadUsers failed: %v", err)
	}
	if _, err := loaded.Login("misha", "12345678"); err != nil {
		t.Errorf("Login after reload failed: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"misha": {"salt": "AAAA", "key": "AAAA"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadUsers(bad); !errors.Is(err, drm.ErrFormat) {
		t.Errorf("expected a format error, got %v", err)
	}
}
