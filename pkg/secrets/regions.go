// Package secrets loads and saves the region and user tables shared by the
// packaging tools and the players.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

// LoadRegions reads a JSON object mapping region names to codes.
func LoadRegions(path string) (drm.RegionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read region table: %v", drm.ErrInput, err)
	}
	return ParseRegions(data)
}

// ParseRegions decodes a region table. Code 0 is reserved and rejected, as are
// two names sharing a code.
func ParseRegions(data []byte) (drm.RegionTable, error) {
	var table drm.RegionTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: region table: %v", drm.ErrFormat, err)
	}

	seen := make(map[uint32]string, len(table))
	for _, name := range table.Names() {
		code := table[name]
		if code == 0 {
			return nil, fmt.Errorf("%w: region %q uses the reserved code 0", drm.ErrFormat, name)
		}
		if other, ok := seen[code]; ok {
			return nil, fmt.Errorf("%w: regions %q and %q share code %d", drm.ErrFormat, other, name, code)
		}
		seen[code] = name
	}

	return table, nil
}

// SaveRegions writes a region table as indented JSON.
func SaveRegions(path string, table drm.RegionTable) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
