// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"time"
)

// DefaultEnvironment is the environment operations act on when none is given
const DefaultEnvironment = "base"

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// DigestRecord describes the content hash of a file, Sum is hex encoded
type DigestRecord struct {
	HashType string `json:"hash_type" yaml:"hash_type"`
	Sum      string `json:"hsum" yaml:"hsum"`
}

// StateRef points at a cached state module and the virtual path it was fetched from
type StateRef struct {
	Source string `json:"source" yaml:"source"`
	Dest   string `json:"dest" yaml:"dest"`
}

// SecureChannel is the authenticated request/reply primitive used to reach the
// authority. Request sends one serialized payload and returns the serialized
// reply, retrying up to retries times with timeout applied per attempt. An
// exhausted budget is reported as ErrRequestTimeout.
type SecureChannel interface {
	Request(ctx context.Context, payload []byte, retries int, timeout time.Duration) ([]byte, error)
}

// FileClient is the uniform file distribution capability set implemented by
// both the local root backed client and the authority backed client.
//
// Absence is a soft outcome throughout: an unknown environment, an unmatched
// path or an uncached file yields an empty value and a nil error. Only scheme
// violations and unexpected I/O failures are returned as errors.
type FileClient interface {
	// GetFile copies a file from the file roots or the authority. dest may be
	// empty in which case the file lands in the minion cache. Returns
	// ErrDestinationUnavailable when dest's parent is missing and makeDirs is
	// false.
	GetFile(ctx context.Context, path string, dest string, makeDirs bool, env string, gz bool) (string, error)

	// CacheFile pulls a file down and stores it in the minion file cache
	CacheFile(ctx context.Context, path string, env string) (string, error)

	// CacheFiles caches a list of files, a single comma separated string is also accepted
	CacheFiles(ctx context.Context, paths []string, env string) ([]string, error)

	// CacheMaster caches every file the authority serves for env
	CacheMaster(ctx context.Context, env string) ([]string, error)

	// CacheDir caches all files beneath a virtual directory, optionally
	// recreating empty directories
	CacheDir(ctx context.Context, path string, env string, includeEmpty bool) ([]string, error)

	// CacheLocalFile copies a file from the minion filesystem into the localfiles cache
	CacheLocalFile(ctx context.Context, path string) (string, error)

	// GetDir recursively fetches a virtual directory into dest
	GetDir(ctx context.Context, path string, dest string, env string, gz bool) ([]string, error)

	// GetURL fetches a single file from a URL, dist:// URLs route through
	// GetFile, other schemes are cached under extrn_files
	GetURL(ctx context.Context, url string, dest string, makeDirs bool, env string) (string, error)

	// GetTemplate caches a file then renders it through the named template engine
	GetTemplate(ctx context.Context, url string, dest string, template string, makeDirs bool, env string, params map[string]any) (string, error)

	// GetState fetches a state module by dotted name and caches it
	GetState(ctx context.Context, sls string, env string) (*StateRef, error)

	// ListStates lists the dotted names of all state modules served for env
	ListStates(ctx context.Context, env string) ([]string, error)

	// FileList lists all files served for env as root relative POSIX paths
	FileList(ctx context.Context, env string) ([]string, error)

	// DirList lists all directories served for env
	DirList(ctx context.Context, env string) ([]string, error)

	// FileListEmptyDirs lists directories containing neither files nor subdirectories
	FileListEmptyDirs(ctx context.Context, env string) ([]string, error)

	// FileLocalList lists everything currently held in the minion caches for env
	FileLocalList(env string) ([]string, error)

	// IsCached returns the cached location of path or an empty string
	IsCached(path string, env string) string

	// HashFile returns the content digest of a virtual or ad hoc local path
	HashFile(ctx context.Context, path string, env string) (*DigestRecord, error)

	// ListEnv lists the files the file server holds for env
	ListEnv(ctx context.Context, env string) ([]string, error)

	// MasterOpts returns the authority's configuration data
	MasterOpts(ctx context.Context) (map[string]any, error)

	// ExtNodes returns classification data from the external nodes system
	ExtNodes(ctx context.Context) (map[string][]string, error)
}
