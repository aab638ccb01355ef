// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/choria-io/filedist/model"
)

type hashCommand struct {
	path string
	env  string
}

func registerHashCommand(app *fisk.Application) {
	cmd := &hashCommand{}

	hash := app.Command("hash", "Shows the content digest of a file").Action(cmd.hashAction)
	hash.Arg("path", "Virtual path or local file to digest").Required().StringVar(&cmd.path)
	hash.Flag("environment", "Environment to resolve virtual paths in").Default(model.DefaultEnvironment).StringVar(&cmd.env)
}

func (c *hashCommand) hashAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	rec, err := fc.HashFile(ctx, c.path, c.env)
	if err != nil {
		return err
	}

	if rec == nil {
		return fmt.Errorf("%w: %s", model.ErrFileNotFound, c.path)
	}

	fmt.Printf("%s:%s\n", rec.HashType, rec.Sum)

	return nil
}
