// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	"github.com/choria-io/filedist/model"
)

type getCommand struct {
	path     string
	dest     string
	env      string
	engine   string
	params   string
	makeDirs bool
	gzip     bool
}

func registerGetCommand(app *fisk.Application) {
	cmd := &getCommand{}

	get := app.Command("get", "Fetches files, directories and templates")

	file := get.Command("file", "Fetches a single file from the file server").Action(cmd.fileAction)
	file.Arg("path", "Virtual path to fetch").Required().StringVar(&cmd.path)
	file.Arg("dest", "Destination path, defaults to the minion cache").StringVar(&cmd.dest)
	file.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)
	file.Flag("mkdirs", "Create missing destination directories").UnNegatableBoolVar(&cmd.makeDirs)
	file.Flag("gzip", "Request gzip compressed transfer").Default("true").BoolVar(&cmd.gzip)

	dir := get.Command("dir", "Recursively fetches a virtual directory").Action(cmd.dirAction)
	dir.Arg("path", "Virtual directory to fetch").Required().StringVar(&cmd.path)
	dir.Arg("dest", "Destination directory").Required().StringVar(&cmd.dest)
	dir.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)
	dir.Flag("gzip", "Request gzip compressed transfer").Default("true").BoolVar(&cmd.gzip)

	url := get.Command("url", "Fetches a file from any supported URL").Action(cmd.urlAction)
	url.Arg("url", "URL to fetch").Required().StringVar(&cmd.path)
	url.Arg("dest", "Destination path, defaults to the external files cache").StringVar(&cmd.dest)
	url.Flag("environment", "Environment to cache under").Default(model.DefaultEnvironment).StringVar(&cmd.env)
	url.Flag("mkdirs", "Create missing destination directories").UnNegatableBoolVar(&cmd.makeDirs)

	tpl := get.Command("template", "Fetches a file and renders it through a template engine").Action(cmd.templateAction)
	tpl.Arg("path", "Virtual path of the template source").Required().StringVar(&cmd.path)
	tpl.Arg("dest", "Destination path, defaults to the external files cache").StringVar(&cmd.dest)
	tpl.Flag("engine", "Template engine to render with").Default("jet").StringVar(&cmd.engine)
	tpl.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)
	tpl.Flag("mkdirs", "Create missing destination directories").UnNegatableBoolVar(&cmd.makeDirs)
	tpl.Flag("params", "Template parameters as YAML or JSON").StringVar(&cmd.params)

	state := get.Command("state", "Fetches a state module by dotted name").Action(cmd.stateAction)
	state.Arg("sls", "Dotted state module name").Required().StringVar(&cmd.path)
	state.Flag("environment", "Environment to fetch from").Default(model.DefaultEnvironment).StringVar(&cmd.env)
}

func (c *getCommand) fileAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	dest, err := fc.GetFile(ctx, c.path, c.dest, c.makeDirs, c.env, c.gzip)
	if err != nil {
		return err
	}

	if dest == "" {
		return fmt.Errorf("%w: %s", model.ErrFileNotFound, c.path)
	}

	fmt.Println(dest)

	return nil
}

func (c *getCommand) dirAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	got, err := fc.GetDir(ctx, c.path, c.dest, c.env, c.gzip)
	if err != nil {
		return err
	}

	printList(got)

	return nil
}

func (c *getCommand) urlAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	dest, err := fc.GetURL(ctx, c.path, c.dest, c.makeDirs, c.env)
	if err != nil {
		return err
	}

	if dest == "" {
		return fmt.Errorf("%w: %s", model.ErrFileNotFound, c.path)
	}

	fmt.Println(dest)

	return nil
}

func (c *getCommand) templateAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	params := map[string]any{}
	if c.params != "" {
		err = yaml.Unmarshal([]byte(c.params), &params)
		if err != nil {
			return err
		}
	}

	dest, err := fc.GetTemplate(ctx, c.path, c.dest, c.engine, c.makeDirs, c.env, params)
	if err != nil {
		return err
	}

	if dest == "" {
		return fmt.Errorf("could not render %s", c.path)
	}

	fmt.Println(dest)

	return nil
}

func (c *getCommand) stateAction(_ *fisk.ParseContext) error {
	fc, _, _, err := newFileClient()
	if err != nil {
		return err
	}

	ref, err := fc.GetState(ctx, c.path, c.env)
	if err != nil {
		return err
	}

	if ref == nil {
		return fmt.Errorf("%w: %s", model.ErrFileNotFound, c.path)
	}

	return printYaml(ref)
}
