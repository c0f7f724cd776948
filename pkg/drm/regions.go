package drm

import (
	"fmt"
	"sort"
)

// RegionTable maps region display names to their numeric codes.
// Code 0 is reserved as the end-of-list marker and never names a region.
type RegionTable map[string]uint32

// Encode converts region names to the fixed header slots. Unused slots are 0.
func (t RegionTable) Encode(names []string) ([MaxRegions]uint32, error) {
	var codes [MaxRegions]uint32

	if len(names) > MaxRegions {
		return codes, fmt.Errorf("%w: %d requested, at most %d", ErrTooManyRegions, len(names), MaxRegions)
	}

	for i, name := range names {
		code, ok := t[name]
		if !ok {
			return codes, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
		}
		if code == 0 {
			return codes, fmt.Errorf("%w: %q uses the reserved code 0", ErrUnknownRegion, name)
		}
		codes[i] = code
	}

	return codes, nil
}

// Name returns the display name for code.
func (t RegionTable) Name(code uint32) (string, bool) {
	for _, name := range t.Names() {
		if t[name] == code {
			return name, true
		}
	}
	return "", false
}

// Names returns the region names in the table, sorted.
func (t RegionTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
