package secrets

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/crypto"
	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

// ErrBadPIN is returned by Login when the PIN does not match.
var ErrBadPIN = fmt.Errorf("%w: wrong PIN", drm.ErrAuthentication)

// User is a provisioned user. Key is derived from the PIN and doubles as the
// key behind the owner signature of every song the user owns.
type User struct {
	Salt []byte `json:"salt"`
	Key  []byte `json:"key"`
}

// Users maps user names to their provisioned secrets.
// It implements drm.UserKeys.
type Users map[string]User

// UserKey returns the signing key of name.
func (u Users) UserKey(name string) ([]byte, bool) {
	user, ok := u[name]
	if !ok {
		return nil, false
	}
	return user.Key, true
}

// Names returns the provisioned user names, sorted.
func (u Users) Names() []string {
	names := make([]string, 0, len(u))
	for name := range u {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provision creates name with a fresh salt and the key derived from pin,
// replacing any previous entry.
func (u Users) Provision(name, pin string) (User, error) {
	if _, err := drm.NewName(name); err != nil {
		return User{}, err
	}
	if name == "" {
		return User{}, fmt.Errorf("%w: empty user name", drm.ErrInput)
	}
	if pin == "" {
		return User{}, fmt.Errorf("%w: empty PIN", drm.ErrInput)
	}

	salt := make([]byte, crypto.UserSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return User{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	user := User{Salt: salt, Key: crypto.DeriveUserKey(pin, salt)}
	u[name] = user
	return user, nil
}

// Login re-derives the key of name from pin and returns it if it matches.
func (u Users) Login(name, pin string) ([]byte, error) {
	user, ok := u[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", drm.ErrUnknownUser, name)
	}

	key := crypto.DeriveUserKey(pin, user.Salt)
	if !hmac.Equal(key, user.Key) {
		return nil, fmt.Errorf("%w: user %q", ErrBadPIN, name)
	}
	return key, nil
}

// LoadUsers reads a user table written by SaveUsers.
func LoadUsers(path string) (Users, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read user table: %v", drm.ErrInput, err)
	}

	users := Users{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: user table: %v", drm.ErrFormat, err)
	}
	for _, name := range users.Names() {
		user := users[name]
		if len(user.Salt) != crypto.UserSaltSize || len(user.Key) != crypto.UserKeySize {
			return nil, fmt.Errorf("%w: user %q has a malformed salt or key", drm.ErrFormat, name)
		}
	}
	return users, nil
}

// SaveUsers writes the user table as indented JSON, readable only by its owner.
func SaveUsers(path string, users Users) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
