// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/SladkyCitron/slogcolor"
	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/choria-io/filedist/client"
	"github.com/choria-io/filedist/config"
	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/filedist/metrics"
	"github.com/choria-io/filedist/model"
)

// loadConfig reads the configuration from the --config flag or the first of
// the user and system configuration files, defaults apply when none exist
func loadConfig() (*config.Config, error) {
	path := cfgFile

	if path == "" {
		userFile := filepath.Join(xdg.ConfigHome, "choria", "filedist", "filedist.yaml")
		systemFile := "/etc/choria/filedist/filedist.yaml"

		if iu.FileExists(userFile) {
			path = userFile
		} else if iu.FileExists(systemFile) {
			path = systemFile
		}
	}

	if path == "" {
		return config.NewDefaultConfig(), nil
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	switch {
	case debug:
		cfg.LogLevel = "debug"
	case info:
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// newFileClient creates the configured client with logging and metrics wired up
func newFileClient() (model.FileClient, *config.Config, model.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	log := newLogger(cfg)

	metrics.RegisterMetrics()
	metrics.ListenAndServe(cfg.MonitorPort, log)

	fc, err := client.NewClient(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	return fc, cfg, log, nil
}

// newLogger builds the logger the configuration asks for, a rotated logrus
// file logger when log_file is set otherwise slog on the terminal
func newLogger(cfg *config.Config) model.Logger {
	if cfg.LogFile != "" {
		log := logrus.New()
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 5,
			Compress:   true,
		})
		log.SetFormatter(&logrus.JSONFormatter{})

		switch cfg.LogLevel {
		case "debug":
			log.SetLevel(logrus.DebugLevel)
		case "info":
			log.SetLevel(logrus.InfoLevel)
		case "error":
			log.SetLevel(logrus.ErrorLevel)
		default:
			log.SetLevel(logrus.WarnLevel)
		}

		return client.NewLogrusLogger(logrus.NewEntry(log))
	}

	var level slog.Level

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	if iu.IsTerminal() {
		return client.NewSlogLogger(slog.New(slogcolor.NewHandler(os.Stderr, &slogcolor.Options{Level: level})))
	}

	return client.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// printList writes one entry per line
func printList(items []string) {
	for _, item := range items {
		fmt.Println(item)
	}
}

// printYaml renders data as YAML on stdout
func printYaml(data any) error {
	y, err := yaml.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Print(string(y))

	return nil
}
