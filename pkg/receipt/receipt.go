// Package receipt defines the YAML sidecar written next to every protected song.
// The container itself does not record the unpadded body length; the receipt
// does, together with where the session key was stored.
package receipt

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

const (
	// Version is the receipt format version.
	Version = "1"

	// Suffix is appended to the container path to name its receipt.
	Suffix = ".receipt.yaml"
)

// Receipt describes a protected song.
type Receipt struct {
	Version string `yaml:"version"`

	SongID  string   `yaml:"song_id"`
	Owner   string   `yaml:"owner"`
	Regions []string `yaml:"regions,omitempty"`

	Layout Layout `yaml:"layout"`

	Key KeyRef `yaml:"key"`

	CreatedAt time.Time `yaml:"created_at"`
}

// Layout records the segment layout and the exact body length.
type Layout struct {
	Segments         uint32 `yaml:"segments"`
	FirstSegmentSize uint32 `yaml:"first_segment_size"`

	// BodyLength is the number of source bytes after the prefix. Pass it to
	// the unprotect pipeline to strip the terminal padding.
	BodyLength int64 `yaml:"body_length"`

	PaddedLength  int64 `yaml:"padded_length"`
	ContainerSize int64 `yaml:"container_size"`
}

// KeyRef locates the session key.
type KeyRef struct {
	// Backend is the key store backend name.
	Backend string `yaml:"backend"`

	// Locator is backend specific: a file path, a redis key, or empty.
	Locator string `yaml:"locator,omitempty"`
}

// New creates a receipt from a protect result.
func New(res *drm.Result, owner string, regions []string, key KeyRef) *Receipt {
	return &Receipt{
		Version: Version,
		SongID:  res.SongID.String(),
		Owner:   owner,
		Regions: regions,
		Layout: Layout{
			Segments:         res.Segments,
			FirstSegmentSize: res.FirstSegmentSize,
			BodyLength:       res.BodyLength,
			PaddedLength:     res.PaddedLength,
			ContainerSize:    res.ContainerSize,
		},
		Key:       key,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// Path returns the receipt path for a container path.
func Path(container string) string {
	return container + Suffix
}

// ToYAML serializes the receipt.
func (r *Receipt) ToYAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// FromYAML deserializes a receipt and checks its version.
func FromYAML(data []byte) (*Receipt, error) {
	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: receipt: %v", drm.ErrFormat, err)
	}
	if r.Version != Version {
		return nil, fmt.Errorf("%w: unsupported receipt version %q", drm.ErrFormat, r.Version)
	}
	if r.Layout.BodyLength < 0 {
		return nil, fmt.Errorf("%w: negative body length", drm.ErrFormat)
	}
	return &r, nil
}

// ID parses the receipt's song id.
func (r *Receipt) ID() (drm.SongID, error) {
	return drm.ParseSongID(r.SongID)
}

// Matches reports whether the receipt was written for the song h describes
// and its body length fits the header's segment layout.
func (r *Receipt) Matches(h *drm.Header) bool {
	return r.SongID == h.SongID.String() &&
		r.Layout.Segments == h.NrSegments &&
		r.Layout.FirstSegmentSize == h.FirstSegmentSize &&
		drm.CheckBodyLength(h, r.Layout.BodyLength) == nil
}

// Save writes the receipt to path.
func (r *Receipt) Save(path string) error {
	data, err := r.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a receipt from path.
func Load(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read receipt: %v", drm.ErrInput, err)
	}
	return FromYAML(data)
}
