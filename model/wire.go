// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

// File server commands understood by the authority
const (
	ServeFileCommand     = "serve"
	FileListCommand      = "file_list"
	EmptyDirsListCommand = "file_list_emptydirs"
	DirListCommand       = "dir_list"
	FileHashCommand      = "file_hash"
	MasterOptsCommand    = "master_opts"
	ExtNodesCommand      = "ext_nodes"
)

// FetchRequest is one request against the authority's file server. Loc is the
// byte offset the next chunk should start at, it advances as chunks are
// written so a fetch can resume mid file within a single session.
type FetchRequest struct {
	Command  string `json:"cmd"`
	Path     string `json:"path,omitempty"`
	Env      string `json:"env,omitempty"`
	Loc      int64  `json:"loc"`
	Gzip     bool   `json:"gzip,omitempty"`
	MinionID string `json:"id,omitempty"`
}

// ServeReply is the authority's answer to a serve command. An empty Data
// terminates the fetch loop. Dest is the authority asserted cache relative
// path, used only when the caller supplied no destination. Hsum, when set,
// prompts an integrity check of the written file.
type ServeReply struct {
	Data     []byte `json:"data"`
	Dest     string `json:"dest"`
	Hsum     string `json:"hsum,omitempty"`
	HashType string `json:"hash_type,omitempty"`
	Gzip     bool   `json:"gzip,omitempty"`
}
