// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/karrick/godirwalk"
	"github.com/kballard/go-shellquote"

	"github.com/choria-io/filedist/cache"
	"github.com/choria-io/filedist/config"
	"github.com/choria-io/filedist/digest"
	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/filedist/model"
	"github.com/choria-io/filedist/paths"
)

// LocalClient resolves virtual paths against the locally configured file
// roots, no authority is involved
type LocalClient struct {
	*client
}

var _ model.FileClient = (*LocalClient)(nil)

// NewLocalClient creates a client backed by the configured file roots
func NewLocalClient(cfg *config.Config, log model.Logger) (*LocalClient, error) {
	log = log.With("client", "local")

	c := &LocalClient{client: &client{
		cfg:   cfg,
		cache: cache.NewStore(cfg.CacheDir, log),
		log:   log,
	}}
	c.client.fl = c

	return c, nil
}

// findFile locates an environment relative path in the configured roots,
// roots are searched in declaration order and the first match wins
func (c *LocalClient) findFile(path string, env string) string {
	roots, ok := c.cfg.FileRoots[env]
	if !ok {
		return ""
	}

	path = paths.Unescape(path)

	for _, root := range roots {
		full := filepath.Join(root, path)
		if iu.IsFile(full) {
			return full
		}
	}

	return ""
}

// GetFile returns the location of a file in the file roots. No copy is made,
// callers receive a direct reference into the root tree. Destination and
// compression settings are ignored for local files.
func (c *LocalClient) GetFile(_ context.Context, path string, _ string, _ bool, env string, _ bool) (string, error) {
	relative, err := paths.StripScheme(path)
	if err != nil {
		return "", err
	}

	return c.findFile(relative, env), nil
}

// FileList returns all files in the roots for env as root relative POSIX
// paths. Overlapping roots yield duplicate entries, that pass through is
// intentional.
func (c *LocalClient) FileList(_ context.Context, env string) ([]string, error) {
	ret := []string{}

	for _, root := range c.cfg.FileRoots[env] {
		err := walkRoot(root, func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			ret = append(ret, filepath.ToSlash(rel))

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// DirList returns all directories in the roots for env
func (c *LocalClient) DirList(_ context.Context, env string) ([]string, error) {
	ret := []string{}

	for _, root := range c.cfg.FileRoots[env] {
		err := walkRoot(root, func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			ret = append(ret, filepath.ToSlash(rel))

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// FileListEmptyDirs returns directories in the roots for env that hold
// neither files nor subdirectories
func (c *LocalClient) FileListEmptyDirs(_ context.Context, env string) ([]string, error) {
	ret := []string{}

	for _, root := range c.cfg.FileRoots[env] {
		err := walkRoot(root, func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}

			entries, err := godirwalk.ReadDirnames(path, nil)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			ret = append(ret, filepath.ToSlash(rel))

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// walkRoot walks a file root following symbolic links, a missing root is
// treated as empty
func walkRoot(root string, cb godirwalk.WalkFunc) error {
	if !iu.IsDirectory(root) {
		return nil
	}

	return godirwalk.Walk(root, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Unsorted:            true,
		Callback:            cb,
	})
}

// HashFile digests a file. Virtual paths resolve through the roots with the
// configured algorithm and yield a soft empty result when unmatched, other
// paths are digested in place with the default algorithm.
func (c *LocalClient) HashFile(_ context.Context, path string, env string) (*model.DigestRecord, error) {
	relative, err := paths.StripScheme(path)
	if err != nil {
		return c.hashAdHocFile(path)
	}

	full := c.findFile(relative, env)
	if full == "" {
		return nil, nil
	}

	return digest.HashFile(full, c.cfg.HashType)
}

// ListEnv returns a list of the files in the file server's specified environment
func (c *LocalClient) ListEnv(ctx context.Context, env string) ([]string, error) {
	return c.FileList(ctx, env)
}

// MasterOpts returns the local configuration as the master opts data
func (c *LocalClient) MasterOpts(_ context.Context) (map[string]any, error) {
	return c.cfg.ToMap()
}

// ExtNodes runs the configured external nodes command with the minion
// identity and returns the classification data it reports
func (c *LocalClient) ExtNodes(ctx context.Context) (map[string][]string, error) {
	ret := map[string][]string{}

	if c.cfg.ExternalNodes == "" {
		return ret, nil
	}

	words, err := shellquote.Split(c.cfg.ExternalNodes)
	if err != nil {
		return nil, err
	}

	_, err = exec.LookPath(words[0])
	if err != nil {
		c.log.Error("Specified external nodes controller is not available", "command", words[0])
		return ret, nil
	}

	out, err := exec.CommandContext(ctx, words[0], append(words[1:], c.cfg.ID)...).Output()
	if err != nil {
		return nil, err
	}

	ndata := map[string]any{}
	err = yaml.Unmarshal(out, &ndata)
	if err != nil {
		return nil, err
	}

	env := model.DefaultEnvironment
	if e, ok := ndata["environment"].(string); ok {
		env = e
	}

	switch classes := ndata["classes"].(type) {
	case map[string]any:
		var names []string
		for k := range classes {
			names = append(names, k)
		}
		sort.Strings(names)
		ret[env] = names
	case []any:
		var names []string
		for _, v := range classes {
			if s, ok := v.(string); ok {
				names = append(names, s)
			}
		}
		ret[env] = names
	}

	return ret, nil
}
