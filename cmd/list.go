// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/choria-io/fisk"

	"github.com/choria-io/filedist/model"
)

type listCommand struct {
	env string
}

func registerListCommand(app *fisk.Application) {
	cmd := &listCommand{}

	list := app.Command("list", "Lists files the file server and local caches hold")

	files := list.Command("files", "Lists all files served for an environment").Default().Action(cmd.filesAction)
	files.Flag("environment", "Environment to list").Default(model.DefaultEnvironment).StringVar(&cmd.env)

	dirs := list.Command("dirs", "Lists all directories served for an environment").Action(cmd.dirsAction)
	dirs.Flag("environment", "Environment to list").Default(model.DefaultEnvironment).StringVar(&cmd.env)

	empty := list.Command("empty", "Lists served directories holding no content").Action(cmd.emptyAction)
	empty.Flag("environment", "Environment to list").Default(model.DefaultEnvironment).StringVar(&cmd.env)

	states := list.Command("states", "Lists all state modules served for an environment").Action(cmd.statesAction)
	states.Flag("environment", "Environment to list").Default(model.DefaultEnvironment).StringVar(&cmd.env)

	local := list.Command("local", "Lists files held in the minion caches").Action(cmd.localAction)
	local.Flag("environment", "Environment to list").Default(model.DefaultEnvironment).StringVar(&cmd.env)
}

func (c *listCommand) filesAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	files, err := fc.FileList(ctx, c.env)
	if err != nil {
		return err
	}

	printList(files)

	return nil
}

func (c *listCommand) dirsAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	dirs, err := fc.DirList(ctx, c.env)
	if err != nil {
		return err
	}

	printList(dirs)

	return nil
}

func (c *listCommand) emptyAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	dirs, err := fc.FileListEmptyDirs(ctx, c.env)
	if err != nil {
		return err
	}

	printList(dirs)

	return nil
}

func (c *listCommand) statesAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	states, err := fc.ListStates(ctx, c.env)
	if err != nil {
		return err
	}

	printList(states)

	return nil
}

func (c *listCommand) localAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	files, err := fc.FileLocalList(c.env)
	if err != nil {
		return err
	}

	printList(files)

	return nil
}
