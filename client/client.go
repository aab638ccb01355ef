// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package client fetches files, directory trees and metadata from the
// distribution authority or from local file roots, caching them beneath the
// minion cache root and optionally transforming them through a template engine
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/choria-io/filedist/cache"
	"github.com/choria-io/filedist/config"
	"github.com/choria-io/filedist/digest"
	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/filedist/metrics"
	"github.com/choria-io/filedist/model"
	"github.com/choria-io/filedist/paths"
)

// stateSuffix marks files that are state modules
const stateSuffix = ".sls"

// NewClient creates the client implementation selected by the configuration
func NewClient(cfg *config.Config, log model.Logger) (model.FileClient, error) {
	switch cfg.FileClient {
	case "local":
		return NewLocalClient(cfg, log)
	default:
		return NewRemoteClient(cfg, nil, log)
	}
}

// fetchLister is the per implementation surface the shared operations build
// on, satisfied by both the local and the remote client
type fetchLister interface {
	GetFile(ctx context.Context, path string, dest string, makeDirs bool, env string, gz bool) (string, error)
	FileList(ctx context.Context, env string) ([]string, error)
	FileListEmptyDirs(ctx context.Context, env string) ([]string, error)
}

// client carries the operations shared between the local and remote clients
type client struct {
	cfg   *config.Config
	cache *cache.Store
	log   model.Logger
	fl    fetchLister
}

// CacheFile pulls a file down from the file server and stores it in the
// minion file cache
func (c *client) CacheFile(ctx context.Context, path string, env string) (string, error) {
	return c.GetURL(ctx, path, "", true, env)
}

// CacheFiles downloads a list of files and stores them in the minion file
// cache, a single comma separated string is also accepted
func (c *client) CacheFiles(ctx context.Context, pathList []string, env string) ([]string, error) {
	if len(pathList) == 1 && strings.Contains(pathList[0], ",") {
		pathList = strings.Split(pathList[0], ",")
	}

	var ret []string

	for _, path := range pathList {
		dest, err := c.CacheFile(ctx, path, env)
		if err != nil {
			return ret, err
		}
		ret = append(ret, dest)
	}

	return ret, nil
}

// CacheMaster downloads and caches every file the authority serves for env
func (c *client) CacheMaster(ctx context.Context, env string) ([]string, error) {
	files, err := c.fl.FileList(ctx, env)
	if err != nil {
		if errors.Is(err, model.ErrRequestTimeout) {
			c.log.Warn("Could not list files to cache", "environment", env, "error", err)
			return nil, nil
		}
		return nil, err
	}

	var ret []string

	for _, path := range files {
		dest, err := c.CacheFile(ctx, paths.Scheme+path, env)
		if err != nil {
			return ret, err
		}
		ret = append(ret, dest)
	}

	return ret, nil
}

// CacheDir downloads all files beneath a virtual directory into the minion
// cache, optionally recreating empty directories
func (c *client) CacheDir(ctx context.Context, path string, env string, includeEmpty bool) ([]string, error) {
	relative, err := paths.StripScheme(path)
	if err != nil {
		return nil, err
	}

	// the authority generates listings with POSIX separators, match on a /
	// terminated prefix so dist://foo cannot select foobar/
	if !strings.HasSuffix(relative, "/") {
		relative = relative + "/"
	}

	c.log.Info("Caching directory", "path", relative, "environment", env)

	files, err := c.fl.FileList(ctx, env)
	if err != nil {
		if errors.Is(err, model.ErrRequestTimeout) {
			c.log.Warn("Could not list files to cache", "environment", env, "error", err)
			return nil, nil
		}
		return nil, err
	}

	var ret []string

	for _, fn := range files {
		if strings.TrimSpace(fn) == "" || !strings.HasPrefix(fn, relative) {
			continue
		}

		dest, err := c.CacheFile(ctx, paths.Scheme+fn, env)
		if err != nil {
			return ret, err
		}
		if dest != "" {
			ret = append(ret, dest)
		}
	}

	if includeEmpty {
		empty, err := c.fl.FileListEmptyDirs(ctx, env)
		if err != nil && !errors.Is(err, model.ErrRequestTimeout) {
			return ret, err
		}

		root := c.cache.FilesRoot(env)
		for _, fn := range empty {
			if !strings.HasPrefix(fn, relative) {
				continue
			}

			dir := filepath.Join(root, fn)
			if !iu.IsDirectory(dir) {
				err = os.MkdirAll(dir, 0755)
				if err != nil {
					return ret, err
				}
			}
			ret = append(ret, dir)
		}
	}

	return ret, nil
}

// CacheLocalFile copies a file from the minion filesystem into the localfiles cache
func (c *client) CacheLocalFile(ctx context.Context, path string) (string, error) {
	if !iu.IsFile(path) {
		return "", fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
	}

	dest, err := c.cache.LocalFileDestination(path)
	if err != nil {
		return "", err
	}

	err = iu.CopyFile(path, dest)
	if err != nil {
		return "", err
	}

	return dest, nil
}

// FileLocalList lists files in the local minion files and localfiles caches
func (c *client) FileLocalList(env string) ([]string, error) {
	return c.cache.List(env)
}

// IsCached returns the full path to a file if it is cached locally on the
// minion otherwise an empty string
func (c *client) IsCached(path string, env string) string {
	hit := c.cache.IsCached(path, env)
	if hit != "" {
		metrics.CacheHitCount.WithLabelValues(env).Inc()
	}

	return hit
}

// ListStates returns the dotted names of all state modules served for env
func (c *client) ListStates(ctx context.Context, env string) ([]string, error) {
	files, err := c.fl.FileList(ctx, env)
	if err != nil {
		if errors.Is(err, model.ErrRequestTimeout) {
			c.log.Warn("Could not list state modules", "environment", env, "error", err)
			return nil, nil
		}
		return nil, err
	}

	var states []string

	for _, path := range files {
		if !strings.HasSuffix(path, stateSuffix) {
			continue
		}

		if strings.HasSuffix(path, "/init"+stateSuffix) {
			states = append(states, strings.ReplaceAll(path[:len(path)-len("/init"+stateSuffix)], "/", "."))
		} else {
			states = append(states, strings.ReplaceAll(path[:len(path)-len(stateSuffix)], "/", "."))
		}
	}

	return states, nil
}

// GetState fetches a state module from the file server and stores it in the
// minion cache, returning where it was stored
func (c *client) GetState(ctx context.Context, sls string, env string) (*model.StateRef, error) {
	sls = strings.ReplaceAll(sls, ".", "/")

	for _, source := range []string{paths.Scheme + sls + stateSuffix, paths.Scheme + sls + "/init" + stateSuffix} {
		dest, err := c.CacheFile(ctx, source, env)
		if err != nil {
			return nil, err
		}
		if dest != "" {
			return &model.StateRef{Source: source, Dest: dest}, nil
		}
	}

	return nil, nil
}

// GetDir recursively fetches a virtual directory from the file server into dest
func (c *client) GetDir(ctx context.Context, path string, dest string, env string, gz bool) ([]string, error) {
	relative, err := paths.StripScheme(path)
	if err != nil {
		return nil, err
	}
	relative = strings.TrimRight(relative, "/")

	// everything before the bottom level directory is stripped when deriving
	// the destination relative path, the bottom level directory itself is kept
	prefix := ""
	if idx := strings.LastIndex(relative, "/"); idx >= 0 {
		prefix = relative[:idx]
	}

	files, err := c.fl.FileList(ctx, env)
	if err != nil {
		if errors.Is(err, model.ErrRequestTimeout) {
			c.log.Warn("Could not list files to fetch", "environment", env, "error", err)
			return nil, nil
		}
		return nil, err
	}

	var ret []string

	for _, fn := range files {
		if !strings.HasPrefix(fn, relative) {
			continue
		}
		// dist://foo must not select foo.sh or foobar/baz, only foo/...
		if len(fn) <= len(relative) || fn[len(relative)] != '/' {
			continue
		}

		minionRel := strings.TrimLeft(fn[len(prefix):], "/")
		got, err := c.fl.GetFile(ctx, paths.Scheme+fn, filepath.Join(dest, minionRel), true, env, gz)
		if err != nil {
			return ret, err
		}
		if got != "" {
			ret = append(ret, got)
		}
	}

	empty, err := c.fl.FileListEmptyDirs(ctx, env)
	if err != nil && !errors.Is(err, model.ErrRequestTimeout) {
		return ret, err
	}

	for _, fn := range empty {
		if !strings.HasPrefix(fn, relative) {
			continue
		}
		if len(fn) <= len(relative) || fn[len(relative)] != '/' {
			continue
		}

		minionRel := strings.TrimLeft(fn[len(prefix):], "/")
		dir := filepath.Join(dest, minionRel)
		if !iu.IsDirectory(dir) {
			err = os.MkdirAll(dir, 0755)
			if err != nil {
				return ret, err
			}
		}
		ret = append(ret, dir)
	}

	sort.Strings(ret)

	return ret, nil
}

// hashAdHocFile digests a plain local file outside any root with the fixed
// default algorithm
func (c *client) hashAdHocFile(path string) (*model.DigestRecord, error) {
	if !iu.IsFile(path) {
		c.log.Warn("File is not present to generate hash", "path", path)
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
	}

	return digest.HashFile(path, digest.DefaultHashType)
}
