// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/choria-io/fisk"
)

type masterCommand struct{}

func registerMasterCommand(app *fisk.Application) {
	cmd := &masterCommand{}

	master := app.Command("master", "Queries the file distribution authority")

	master.Command("opts", "Shows the authority's configuration data").Action(cmd.optsAction)
	master.Command("nodes", "Shows this minion's external nodes classification").Action(cmd.nodesAction)
}

func (c *masterCommand) optsAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	opts, err := fc.MasterOpts(ctx)
	if err != nil {
		return err
	}

	return printYaml(opts)
}

func (c *masterCommand) nodesAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	nodes, err := fc.ExtNodes(ctx)
	if err != nil {
		return err
	}

	return printYaml(nodes)
}
