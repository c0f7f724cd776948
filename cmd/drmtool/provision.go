package main

import (
	"context"

	"github.com/CactiLab/2020-ectf-rit-system/pkg/secrets"
)

func runProvision(_ context.Context, args []string) error {
	flags, configPath := newFlagSet("provision")
	name := flags.String("name", "", "User name, at most 16 bytes (required)")
	pin := flags.String("pin", "", "User PIN (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := requireFlags(flags, "name", "pin"); err != nil {
		return err
	}

	e, err := loadEnv(*configPath)
	if err != nil {
		return err
	}

	path := e.config.Path(e.config.UsersFile)
	users := secrets.Users{}
	if fileExists(path) {
		if users, err = secrets.LoadUsers(path); err != nil {
			return err
		}
	}

	if _, exists := users[*name]; exists {
		e.log.Warnf("replacing existing user %q", *name)
	}
	if _, err := users.Provision(*name, *pin); err != nil {
		return err
	}
	if err := secrets.SaveUsers(path, users); err != nil {
		return err
	}

	e.log.Infof("provisioned %q in %s (%d users)", *name, path, len(users))
	return nil
}
