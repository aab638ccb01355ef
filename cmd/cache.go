// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/choria-io/fisk"

	"github.com/choria-io/filedist/model"
)

type cacheCommand struct {
	paths        []string
	path         string
	env          string
	includeEmpty bool
}

func registerCacheCommand(app *fisk.Application) {
	cmd := &cacheCommand{}

	cache := app.Command("cache", "Downloads files into the minion cache")

	file := cache.Command("file", "Caches one or more files from the file server").Action(cmd.fileAction)
	file.Arg("path", "Virtual paths or URLs to cache").Required().StringsVar(&cmd.paths)
	file.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)

	dir := cache.Command("dir", "Caches all files below a virtual directory").Action(cmd.dirAction)
	dir.Arg("path", "Virtual directory to cache").Required().StringVar(&cmd.path)
	dir.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)
	dir.Flag("empty-dirs", "Also recreate empty directories").UnNegatableBoolVar(&cmd.includeEmpty)

	master := cache.Command("master", "Caches every file the file server holds").Action(cmd.masterAction)
	master.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)

	local := cache.Command("local", "Copies a local file into the localfiles cache").Action(cmd.localAction)
	local.Arg("path", "Local file to cache").Required().ExistingFileVar(&cmd.path)
}

func (c *cacheCommand) fileAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	cached, err := fc.CacheFiles(ctx, c.paths, c.env)
	if err != nil {
		return err
	}

	printList(cached)

	return nil
}

func (c *cacheCommand) dirAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	cached, err := fc.CacheDir(ctx, c.path, c.env, c.includeEmpty)
	if err != nil {
		return err
	}

	printList(cached)

	return nil
}

func (c *cacheCommand) masterAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	cached, err := fc.CacheMaster(ctx, c.env)
	if err != nil {
		return err
	}

	printList(cached)

	return nil
}

func (c *cacheCommand) localAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	dest, err := fc.CacheLocalFile(ctx, c.path)
	if err != nil {
		return err
	}

	printList([]string{dest})

	return nil
}
