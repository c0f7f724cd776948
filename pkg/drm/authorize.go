package drm

// Status is the outcome of checking a song header against a device.
type Status int

const (
	// StatusBadSignature means a header signature failed; the song must not
	// be played at all.
	StatusBadSignature Status = iota
	// StatusOwner means the current user owns the song.
	StatusOwner
	// StatusShared means the owner shared the song with the current user.
	StatusShared
	// StatusBadRegion means the song is valid but not licensed for any of
	// the device regions.
	StatusBadRegion
	// StatusBadUser means the song is valid but neither owned by nor shared
	// with the current user.
	StatusBadUser
)

func (s Status) String() string {
	switch s {
	case StatusOwner:
		return "owner"
	case StatusShared:
		return "shared"
	case StatusBadRegion:
		return "bad-region"
	case StatusBadUser:
		return "bad-user"
	default:
		return "bad-signature"
	}
}

// FullPlayback reports whether the whole song may be played. Songs with a bad
// region or user are limited to PreviewLength; bad signatures play nothing.
func (s Status) FullPlayback() bool {
	return s == StatusOwner || s == StatusShared
}

// UserKeys resolves provisioned user names to their signing keys.
type UserKeys interface {
	UserKey(name string) ([]byte, bool)
}

// Device describes the player a song is checked against.
type Device struct {
	// Regions are the region codes provisioned on the device.
	Regions []uint32

	// User is the logged in user, or empty.
	User string

	// Users holds every provisioned user.
	Users UserKeys
}

func (d Device) hasRegion(code uint32) bool {
	for _, r := range d.Regions {
		if r == code {
			return true
		}
	}
	return false
}

// Authorize checks a header the way a player does before playback: the
// authority signature, then the regions, then the owner signature, then the
// current user's relation to the song.
func Authorize(h *Header, authorityKey []byte, d Device) Status {
	if err := h.VerifyAuthority(authorityKey); err != nil {
		return StatusBadSignature
	}

	allowed := false
	for _, code := range h.RegionCodes() {
		if d.hasRegion(code) {
			allowed = true
			break
		}
	}
	if !allowed {
		return StatusBadRegion
	}

	if d.Users == nil {
		return StatusBadUser
	}
	ownerKey, ok := d.Users.UserKey(h.Owner.String())
	if !ok {
		return StatusBadUser
	}
	if err := h.VerifyOwner(ownerKey); err != nil {
		return StatusBadSignature
	}

	if d.User == "" {
		return StatusBadUser
	}
	if _, ok := d.Users.UserKey(d.User); !ok {
		return StatusBadUser
	}
	if d.User == h.Owner.String() {
		return StatusOwner
	}
	for _, u := range h.SharedWith() {
		if u == d.User {
			return StatusShared
		}
	}

	return StatusBadUser
}
