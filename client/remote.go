// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"

	"github.com/choria-io/filedist/cache"
	"github.com/choria-io/filedist/config"
	"github.com/choria-io/filedist/digest"
	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/filedist/metrics"
	"github.com/choria-io/filedist/model"
	"github.com/choria-io/filedist/paths"
	"github.com/choria-io/filedist/transport"
)

// maxIntegrityAttempts bounds how often a file is refetched after the
// authority's integrity check fails, the final download is accepted even when
// unverified so callers always receive a path
const maxIntegrityAttempts = 3

// RemoteClient interacts with the authority's file server over the secure channel
type RemoteClient struct {
	*client

	channel model.SecureChannel
	retries int
	timeout time.Duration
}

var _ model.FileClient = (*RemoteClient)(nil)

// NewRemoteClient creates a client backed by the authority. A nil channel
// connects over NATS using the configured context and subject.
func NewRemoteClient(cfg *config.Config, channel model.SecureChannel, log model.Logger) (*RemoteClient, error) {
	log = log.With("client", "remote")

	if channel == nil {
		channel = transport.NewNatsChannel(cfg.NatsContext, cfg.MasterSubject, log)
	}

	c := &RemoteClient{
		client: &client{
			cfg:   cfg,
			cache: cache.NewStore(cfg.CacheDir, log),
			log:   log,
		},
		channel: channel,
		retries: cfg.RequestRetries,
		timeout: cfg.RequestTimeoutDuration(),
	}
	c.client.fl = c

	return c, nil
}

// request sends one serialized load to the authority and decodes the reply
// into result
func (c *RemoteClient) request(ctx context.Context, load *model.FetchRequest, result any) error {
	payload, err := json.Marshal(load)
	if err != nil {
		return err
	}

	reply, err := c.channel.Request(ctx, payload, c.retries, c.timeout)
	if err != nil {
		return err
	}

	return json.Unmarshal(reply, result)
}

// GetFile fetches a single file from the authority in chunks. When dest is
// empty the authority asserted path places the file in the minion cache.
// Transport timeouts abandon the fetch with an empty result, partial writes
// are left in place.
func (c *RemoteClient) GetFile(ctx context.Context, path string, dest string, makeDirs bool, env string, gz bool) (string, error) {
	relative, err := paths.StripScheme(path)
	if err != nil {
		return "", err
	}

	log := c.log.With("path", relative, "environment", env, "session", ksuid.New().String())
	log.Info("Fetching file from authority")

	timer := prometheus.NewTimer(metrics.FileFetchTime.WithLabelValues(env))
	defer timer.ObserveDuration()

	var fh *os.File
	closeFile := func() error {
		if fh == nil {
			return nil
		}
		err := fh.Close()
		fh = nil
		return err
	}
	defer closeFile()

	if dest != "" {
		destDir := filepath.Dir(dest)
		if !iu.IsDirectory(destDir) {
			if !makeDirs {
				return "", fmt.Errorf("%w: %s", model.ErrDestinationUnavailable, destDir)
			}

			err = os.MkdirAll(destDir, 0755)
			if err != nil {
				return "", err
			}
		}

		fh, err = os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return "", err
		}
	}

	load := &model.FetchRequest{
		Command:  model.ServeFileCommand,
		Path:     relative,
		Env:      env,
		Gzip:     gz,
		MinionID: c.cfg.ID,
	}

	attempts := 1
	var loc int64

	for {
		load.Loc = loc

		var reply model.ServeReply
		err = c.request(ctx, load, &reply)
		if err != nil {
			if errors.Is(err, model.ErrRequestTimeout) {
				metrics.FileFetchFailureCount.WithLabelValues(env).Inc()
				log.Warn("Abandoning fetch, authority did not answer", "error", err)
				return "", nil
			}
			return "", err
		}

		if len(reply.Data) == 0 {
			if fh == nil && reply.Dest != "" {
				// a zero byte file on the authority, materialize it in the cache
				dest, err = c.cache.Destination(env, reply.Dest)
				if err != nil {
					return "", err
				}

				fh, err = os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
				if err != nil {
					return "", err
				}
			}

			if reply.Hsum != "" && dest != "" {
				err = closeFile()
				if err != nil {
					return "", err
				}

				ok, err := digest.VerifyFile(dest, &model.DigestRecord{HashType: reply.HashType, Sum: reply.Hsum})
				if err != nil {
					return "", err
				}

				if !ok {
					if attempts < maxIntegrityAttempts {
						attempts++
						metrics.IntegrityRetryCount.WithLabelValues(env).Inc()
						log.Warn("Bad download of file, refetching", "attempt", attempts, "max", maxIntegrityAttempts)

						fh, err = os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
						if err != nil {
							return "", err
						}
						loc = 0

						continue
					}

					metrics.IntegrityAcceptedCount.WithLabelValues(env).Inc()
					log.Warn("Accepting unverified download, integrity retries exhausted", "attempts", attempts)
				}
			}

			break
		}

		if fh == nil {
			dest, err = c.cache.Destination(env, reply.Dest)
			if err != nil {
				return "", err
			}

			// a directory formerly cached at this path must make way for the file
			if iu.IsDirectory(dest) {
				err = os.RemoveAll(dest)
				if err != nil {
					return "", err
				}
			}

			fh, err = os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
			if err != nil {
				return "", err
			}
		}

		chunk := reply.Data
		if gz && reply.Gzip {
			chunk, err = uncompress(chunk)
			if err != nil {
				return "", err
			}
		}

		n, err := fh.Write(chunk)
		if err != nil {
			return "", err
		}
		loc += int64(n)
	}

	err = closeFile()
	if err != nil {
		return "", err
	}

	if dest != "" {
		metrics.FileFetchCount.WithLabelValues(env).Inc()
		log.Debug("Fetched file", "dest", dest, "bytes", loc)
	}

	return dest, nil
}

// uncompress expands one gzip compressed chunk
func uncompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// list issues a listing command and maps transport timeouts to
// model.ErrRequestTimeout so callers can tell unreachable from empty
func (c *RemoteClient) list(ctx context.Context, command string, env string) ([]string, error) {
	var res []string

	err := c.request(ctx, &model.FetchRequest{Command: command, Env: env}, &res)
	if err != nil {
		if errors.Is(err, model.ErrRequestTimeout) {
			c.log.Warn("Listing request timed out", "command", command, "environment", env)
		}
		return nil, err
	}

	return res, nil
}

// FileList lists the files the authority serves for env
func (c *RemoteClient) FileList(ctx context.Context, env string) ([]string, error) {
	return c.list(ctx, model.FileListCommand, env)
}

// DirList lists the directories the authority serves for env
func (c *RemoteClient) DirList(ctx context.Context, env string) ([]string, error) {
	return c.list(ctx, model.DirListCommand, env)
}

// FileListEmptyDirs lists the empty directories the authority serves for env
func (c *RemoteClient) FileListEmptyDirs(ctx context.Context, env string) ([]string, error) {
	return c.list(ctx, model.EmptyDirsListCommand, env)
}

// ListEnv returns a list of the files in the file server's specified environment
func (c *RemoteClient) ListEnv(ctx context.Context, env string) ([]string, error) {
	return c.list(ctx, model.FileListCommand, env)
}

// HashFile digests a file. Virtual paths are digested by the authority,
// other paths are digested in place with the default algorithm.
func (c *RemoteClient) HashFile(ctx context.Context, path string, env string) (*model.DigestRecord, error) {
	relative, err := paths.StripScheme(path)
	if err != nil {
		return c.hashAdHocFile(path)
	}

	var rec model.DigestRecord
	err = c.request(ctx, &model.FetchRequest{Command: model.FileHashCommand, Path: relative, Env: env}, &rec)
	if err != nil {
		return nil, err
	}

	if rec.Sum == "" {
		// the authority does not serve this path
		return nil, nil
	}

	return &rec, nil
}

// MasterOpts queries the authority for its configuration data
func (c *RemoteClient) MasterOpts(ctx context.Context) (map[string]any, error) {
	res := map[string]any{}

	err := c.request(ctx, &model.FetchRequest{Command: model.MasterOptsCommand}, &res)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// ExtNodes queries the authority's external nodes system for this minion's
// classification
func (c *RemoteClient) ExtNodes(ctx context.Context) (map[string][]string, error) {
	res := map[string][]string{}

	err := c.request(ctx, &model.FetchRequest{Command: model.ExtNodesCommand, MinionID: c.cfg.ID}, &res)
	if err != nil {
		return nil, err
	}

	return res, nil
}
