// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
)

var (
	// ErrUnsupportedPath indicates a path that does not carry the dist:// scheme was given where one is required
	ErrUnsupportedPath = errors.New("unsupported path")

	// ErrRequestTimeout indicates the authority did not answer within the retry and timeout budget
	ErrRequestTimeout = errors.New("request timed out")

	// ErrDestinationUnavailable indicates the destination parent directory is missing and directory creation was not requested
	ErrDestinationUnavailable = errors.New("destination directory does not exist")

	// ErrRemoteFetch indicates a failure fetching a foreign URL
	ErrRemoteFetch = errors.New("remote fetch failed")

	// ErrFileNotFound indicates a local file that should exist does not
	ErrFileNotFound = errors.New("file not found")

	// ErrUnknownTemplate indicates an unregistered template engine was requested
	ErrUnknownTemplate = errors.New("unknown template engine")

	// ErrRenderFailed indicates a template engine could not render its input
	ErrRenderFailed = errors.New("template render failed")

	// ErrUnknownHashType indicates a digest algorithm this client cannot compute
	ErrUnknownHashType = errors.New("unknown hash type")

	// ErrDuplicateEngine indicates a template engine name is already registered
	ErrDuplicateEngine = errors.New("template engine already exists")
)
