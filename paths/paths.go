// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves the dist:// virtual paths used to address files on
// the distribution authority
package paths

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/choria-io/filedist/model"
)

// Scheme is the virtual file scheme, paths below it are resolved against an
// environment rather than the local filesystem
const Scheme = "dist://"

// StripScheme validates that path is addressed to the authority and returns
// the environment relative remainder
func StripScheme(path string) (string, error) {
	if !strings.HasPrefix(path, Scheme) {
		return "", fmt.Errorf("%w: %s", model.ErrUnsupportedPath, path)
	}

	return path[len(Scheme):], nil
}

// HasScheme is true when path is addressed to the authority
func HasScheme(path string) bool {
	return strings.HasPrefix(path, Scheme)
}

// Unescape removes the single leading | escape marker earlier parsing stages
// use to protect paths, the marker carries no other meaning here
func Unescape(path string) string {
	return strings.TrimPrefix(path, "|")
}

// ClassifyURL parses any URL shaped string. Virtual paths parse with the
// dist scheme so callers can route them to the fetch path instead of generic
// URL retrieval.
func ClassifyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrUnsupportedPath, raw, err)
	}

	return u, nil
}

// StripCredentials returns u without any embedded userinfo, suitable for use
// in requests and log lines after the credentials were lifted out
func StripCredentials(u *url.URL) *url.URL {
	if u.User == nil {
		return u
	}

	clean := *u
	clean.User = nil

	return &clean
}
