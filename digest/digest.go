// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package digest computes content digests for cache integrity checks. The
// local default is the OCI canonical algorithm, the authority may assert
// legacy algorithms like md5 which are honored for interoperability.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	ocidigest "github.com/opencontainers/go-digest"

	"github.com/choria-io/filedist/model"
)

// DefaultHashType is used when neither configuration nor the authority names an algorithm
var DefaultHashType = string(ocidigest.Canonical)

// hasherFor resolves a named algorithm, preferring those the OCI digest
// registry knows, with fallbacks for legacy authority asserted types
func hasherFor(hashType string) (hash.Hash, error) {
	if a := ocidigest.Algorithm(hashType); a.Available() {
		return a.Hash(), nil
	}

	switch hashType {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	}

	return nil, fmt.Errorf("%w: %s", model.ErrUnknownHashType, hashType)
}

// HashFile computes the digest of the file at path with the named algorithm,
// an empty hashType selects the default
func HashFile(path string, hashType string) (*model.DigestRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return HashReader(f, hashType)
}

// HashReader computes the digest of everything readable from r
func HashReader(r io.Reader, hashType string) (*model.DigestRecord, error) {
	if hashType == "" {
		hashType = DefaultHashType
	}

	hasher, err := hasherFor(hashType)
	if err != nil {
		return nil, err
	}

	_, err = io.Copy(hasher, r)
	if err != nil {
		return nil, err
	}

	return &model.DigestRecord{HashType: hashType, Sum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// VerifyFile checks the file at path against an expected digest record
func VerifyFile(path string, expected *model.DigestRecord) (bool, error) {
	rec, err := HashFile(path, expected.HashType)
	if err != nil {
		return false, err
	}

	return rec.Sum == expected.Sum, nil
}
