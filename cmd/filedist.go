// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/choria-io/appbuilder/builder"
	"github.com/choria-io/appbuilder/commands/exec"
	"github.com/choria-io/appbuilder/commands/parent"
	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/fisk"
)

var (
	ctx     context.Context
	debug   bool
	info    bool
	cfgFile string
	Version = "development"
)

func main() {
	app := fisk.New("filedist", "Choria File Distribution Client")
	app.Version(Version)
	app.Author("https://choria.io")

	app.Flag("debug", "Enable debug logging").UnNegatableBoolVar(&debug)
	app.Flag("info", "Enable info logging").UnNegatableBoolVar(&info)
	app.Flag("config", "Configuration file to use").Envar("FILEDIST_CONFIG").StringVar(&cfgFile)

	registerCacheCommand(app)
	registerGetCommand(app)
	registerListCommand(app)
	registerHashCommand(app)
	registerCachedCommand(app)
	registerMasterCommand(app)

	ctx, _ = signal.NotifyContext(context.Background(), os.Interrupt)
	err := extendCli(app)
	if err != nil {
		log.Fatalf("Could not load CLI extensions: %s", err)
	}

	app.MustParseWithUsage(os.Args[1:])
}

func extendCli(app *fisk.Application) error {
	var path string
	var userFile = filepath.Join(xdg.ConfigHome, "choria", "filedist", "cli-extension.yaml")
	var systemFile = "/etc/choria/filedist/cli-extension.yaml"

	if xdg.ConfigHome != "" {
		os.MkdirAll(filepath.Dir(userFile), 0755)
	}

	os.MkdirAll(filepath.Dir(systemFile), 0755)

	if iu.FileExists(userFile) {
		path = userFile
	} else if iu.FileExists(systemFile) {
		path = systemFile
	}

	if path == "" {
		return nil
	}

	def, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	parent.MustRegister()
	exec.MustRegister()

	ext := app.Command("plugin", "External CLI plugin commands").Alias("ext")

	return builder.MountAsCommand(ctx, ext, def, nil)
}
