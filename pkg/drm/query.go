package drm

import (
	"strconv"
	"time"
)

// SongInfo is the human readable summary of a header.
type SongInfo struct {
	SongID           string   `yaml:"song_id"`
	Owner            string   `yaml:"owner"`
	Regions          []string `yaml:"regions"`
	SharedUsers      []string `yaml:"shared_users,omitempty"`
	Segments         uint32   `yaml:"segments"`
	FirstSegmentSize uint32   `yaml:"first_segment_size"`
	Len250ms         uint32   `yaml:"len_250ms"`

	// MaxDuration is an upper bound: the terminal segment may be shorter
	// than the others.
	MaxDuration string `yaml:"max_duration,omitempty"`
}

// Describe summarizes a header, resolving region codes through regions.
// Codes missing from the table are shown as numbers.
func Describe(h *Header, regions RegionTable) *SongInfo {
	info := &SongInfo{
		SongID:           h.SongID.String(),
		Owner:            h.Owner.String(),
		SharedUsers:      h.SharedWith(),
		Segments:         h.NrSegments,
		FirstSegmentSize: h.FirstSegmentSize,
		Len250ms:         h.Len250ms,
	}

	for _, code := range h.RegionCodes() {
		name, ok := regions.Name(code)
		if !ok {
			name = strconv.FormatUint(uint64(code), 10)
		}
		info.Regions = append(info.Regions, name)
	}

	if h.Len250ms > 0 {
		body := int64(h.NrSegments) * int64(h.FirstSegmentSize)
		quarters := body / int64(h.Len250ms)
		info.MaxDuration = (time.Duration(quarters) * 250 * time.Millisecond).String()
	}

	return info
}
