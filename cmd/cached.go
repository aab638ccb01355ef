// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/choria-io/filedist/model"
)

type cachedCommand struct {
	path string
	env  string
}

func registerCachedCommand(app *fisk.Application) {
	cmd := &cachedCommand{}

	cached := app.Command("cached", "Shows where a file is cached locally").Action(cmd.cachedAction)
	cached.Arg("path", "Virtual path or local file to look up").Required().StringVar(&cmd.path)
	cached.Flag("environment", "Environment to look in").Default(model.DefaultEnvironment).StringVar(&cmd.env)
}

func (c *cachedCommand) cachedAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	hit := fc.IsCached(c.path, c.env)
	if hit == "" {
		return fmt.Errorf("%s is not cached", c.path)
	}

	fmt.Println(hit)

	return nil
}
