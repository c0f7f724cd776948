package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/drm"
)

type queryOutput struct {
	drm.SongInfo `yaml:",inline"`

	// Status is set when the song is checked against a user.
	Status string `yaml:"status,omitempty"`
}

func runQuery(ctx context.Context, args []string) error {
	flags, configPath := newFlagSet("query")
	in := flags.String("in", "", "Protected container (required)")
	user := flags.String("user", "", "Check the song against this user")
	pin := flags.String("pin", "", "PIN of -user")
	deviceRegions := flags.String("device-regions", "", "Comma separated regions of the checking device (all known regions if empty)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "in"); err != nil {
		return err
	}

	e, err := loadEnv(*configPath)
	if err != nil {
		return err
	}

	f, err := openInput(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := drm.ParseHeader(f)
	if err != nil {
		return err
	}

	regions, err := e.regions()
	if err != nil {
		return err
	}

	out := queryOutput{SongInfo: *drm.Describe(h, regions)}

	if *user != "" {
		users, err := e.users()
		if err != nil {
			return err
		}
		if _, err := users.Login(*user, *pin); err != nil {
			return err
		}
		authorityKey, err := e.authorityKey()
		if err != nil {
			return err
		}

		names := splitList(*deviceRegions)
		if len(names) == 0 {
			names = regions.Names()
		}
		device := drm.Device{User: *user, Users: users}
		for _, name := range names {
			code, ok := regions[name]
			if !ok {
				return fmt.Errorf("%w: %q", drm.ErrUnknownRegion, name)
			}
			device.Regions = append(device.Regions, code)
		}

		out.Status = drm.Authorize(h, authorityKey, device).String()
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(out)
}
