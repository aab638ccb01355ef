// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package cache owns the on disk layout of the minion file caches. All
// fetched content lands beneath a single cache root:
//
//	<root>/files/<environment>/<relative path>    authority fetched files
//	<root>/localfiles/<relative path>             explicitly cached local files
//	<root>/extrn_files/<environment>/<host>/...   foreign URL cache
//
// No other component writes beneath the cache root.
package cache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/filedist/model"
	"github.com/choria-io/filedist/paths"
)

const (
	filesDir      = "files"
	localFilesDir = "localfiles"
	externalDir   = "extrn_files"

	// cache directories are created private to the minion user
	dirMode = 0700
)

// Store manages the cache directory tree below root
type Store struct {
	root string
	log  model.Logger
}

// NewStore creates a cache store rooted at root
func NewStore(root string, log model.Logger) *Store {
	return &Store{root: root, log: log.With("component", "cache")}
}

// Root returns the cache root directory
func (s *Store) Root() string {
	return s.root
}

// FilesRoot returns the directory authority fetched files for env live under
func (s *Store) FilesRoot(env string) string {
	return filepath.Join(s.root, filesDir, env)
}

// Destination resolves where a file fetched from the authority is cached and
// ensures its parent directory exists. Safe to call concurrently for disjoint
// paths, directory creation races resolve as success.
func (s *Store) Destination(env string, relative string) (string, error) {
	dest := filepath.Join(s.root, filesDir, env, relative)

	err := s.ensureParent(dest)
	if err != nil {
		return "", err
	}

	return dest, nil
}

// LocalFileDestination resolves where an explicitly cached local file is stored
func (s *Store) LocalFileDestination(relative string) (string, error) {
	dest := filepath.Join(s.root, localFilesDir, strings.TrimLeft(relative, "/"))

	err := s.ensureParent(dest)
	if err != nil {
		return "", err
	}

	return dest, nil
}

// ExternalDestination resolves where a file fetched from a foreign URL is cached
func (s *Store) ExternalDestination(env string, host string, urlPath string) (string, error) {
	dest := filepath.Join(s.root, externalDir, env, host, urlPath)

	err := s.ensureParent(dest)
	if err != nil {
		return "", err
	}

	return dest, nil
}

// ensureParent creates the parent directory of dest. A regular file squatting
// where the directory must go is removed first, the directory wins.
func (s *Store) ensureParent(dest string) error {
	destDir := filepath.Dir(dest)

	if iu.IsFile(destDir) {
		s.log.Debug("Removing stale file blocking cache directory", "path", destDir)
		err := os.Remove(destDir)
		if err != nil {
			return err
		}
	}

	return os.MkdirAll(destDir, dirMode)
}

// List returns every file held in the files cache for env and in the
// localfiles cache, as sorted absolute paths. Symbolic links are followed.
func (s *Store) List(env string) ([]string, error) {
	found := map[string]struct{}{}

	for _, root := range []string{s.FilesRoot(env), filepath.Join(s.root, localFilesDir)} {
		if !iu.IsDirectory(root) {
			continue
		}

		err := godirwalk.Walk(root, &godirwalk.Options{
			FollowSymbolicLinks: true,
			Unsorted:            true,
			Callback: func(path string, de *godirwalk.Dirent) error {
				if !de.IsDir() {
					found[path] = struct{}{}
				}
				return nil
			},
		})
		if err != nil {
			return nil, err
		}
	}

	res := make([]string, 0, len(found))
	for p := range found {
		res = append(res, p)
	}
	sort.Strings(res)

	return res, nil
}

// IsCached returns the cached location of a virtual or local path, the
// localfiles cache is consulted before the environment files cache. An
// uncached path yields an empty string, absence is a normal outcome.
func (s *Store) IsCached(path string, env string) string {
	relative := path
	if rel, err := paths.StripScheme(path); err == nil {
		relative = rel
	}
	relative = strings.TrimLeft(relative, "/")

	local := filepath.Join(s.root, localFilesDir, relative)
	if iu.FileExists(local) {
		return local
	}

	fetched := filepath.Join(s.root, filesDir, env, relative)
	if iu.FileExists(fetched) {
		return fetched
	}

	return ""
}
