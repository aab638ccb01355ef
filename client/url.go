// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"

	iu "github.com/choria-io/filedist/internal/util"
	"github.com/choria-io/filedist/metrics"
	"github.com/choria-io/filedist/model"
	"github.com/choria-io/filedist/paths"
	"github.com/choria-io/filedist/templates"
)

// GetURL retrieves a single file addressed by any supported URL. Virtual
// dist:// paths fetch from the file server, http and https URLs download from
// the foreign server, file URLs and bare paths resolve on the local
// filesystem. When dest is empty fetched content lands in the appropriate
// cache while local paths are returned in place without caching.
func (c *client) GetURL(ctx context.Context, rawURL string, dest string, makeDirs bool, env string) (string, error) {
	if paths.HasScheme(rawURL) {
		return c.fl.GetFile(ctx, rawURL, dest, makeDirs, env, true)
	}

	u, err := paths.ClassifyURL(rawURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "", "file":
		src := u.Path
		if u.Scheme == "" {
			src = rawURL
		}

		if dest == "" {
			// a reference to an existing local file, nothing to cache
			return src, nil
		}

		err = c.prepareDestDir(dest, makeDirs)
		if err != nil {
			return "", err
		}

		err = iu.CopyFile(src, dest)
		if err != nil {
			return "", err
		}

		return dest, nil

	case "http", "https":
		return c.fetchHTTP(ctx, u, dest, makeDirs, env)

	default:
		return "", fmt.Errorf("%w: unsupported url scheme %q", model.ErrRemoteFetch, u.Scheme)
	}
}

// prepareDestDir ensures the parent directory of dest exists, creating it only
// when makeDirs allows
func (c *client) prepareDestDir(dest string, makeDirs bool) error {
	destDir := filepath.Dir(dest)
	if iu.IsDirectory(destDir) {
		return nil
	}

	if !makeDirs {
		return fmt.Errorf("%w: %s", model.ErrDestinationUnavailable, destDir)
	}

	return os.MkdirAll(destDir, 0755)
}

// fetchHTTP downloads u into dest, credentials embedded in the URL are lifted
// into a basic auth header and never sent as part of the request line
func (c *client) fetchHTTP(ctx context.Context, u *url.URL, dest string, makeDirs bool, env string) (string, error) {
	var err error

	if dest == "" {
		dest, err = c.cache.ExternalDestination(env, u.Host, u.Path)
		if err != nil {
			return "", err
		}
	} else {
		err = c.prepareDestDir(dest, makeDirs)
		if err != nil {
			return "", err
		}
	}

	clean := paths.StripCredentials(u)
	c.log.Info("Fetching URL", "url", clean.String(), "dest", dest)

	client := retryablehttp.NewClient()
	client.RetryMax = c.cfg.RequestRetries
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, clean.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrRemoteFetch, err)
	}

	if u.User != nil {
		pass, _ := u.User.Password()
		req.SetBasicAuth(u.User.Username(), pass)
	}

	resp, err := client.Do(req)
	if err != nil {
		metrics.URLFetchFailureCount.WithLabelValues(u.Scheme).Inc()
		return "", fmt.Errorf("%w: %v", model.ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.URLFetchFailureCount.WithLabelValues(u.Scheme).Inc()
		return "", fmt.Errorf("%w: %s: %s", model.ErrRemoteFetch, clean.String(), resp.Status)
	}

	fh, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(fh, resp.Body)
	if err != nil {
		fh.Close()
		return "", fmt.Errorf("%w: %v", model.ErrRemoteFetch, err)
	}

	err = fh.Close()
	if err != nil {
		return "", err
	}

	metrics.URLFetchCount.WithLabelValues(u.Scheme).Inc()

	return dest, nil
}

// GetTemplate caches a file from the file server and renders it through the
// named template engine, storing the result at dest or in the external files
// cache. Render failures are logged and yield an empty result.
func (c *client) GetTemplate(ctx context.Context, path string, dest string, engineName string, makeDirs bool, env string, params map[string]any) (string, error) {
	engine, ok := templates.Lookup(engineName)
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownTemplate, engineName)
	}

	sfn, err := c.CacheFile(ctx, path, env)
	if err != nil {
		return "", err
	}
	if sfn == "" {
		c.log.Warn("Could not cache template source", "path", path, "environment", env)
		return "", nil
	}

	scope := map[string]any{"environment": env}
	for k, v := range params {
		scope[k] = v
	}

	timer := prometheus.NewTimer(metrics.TemplateRenderTime.WithLabelValues(engineName))
	out, err := engine.Render(ctx, sfn, scope)
	timer.ObserveDuration()
	if err != nil {
		c.log.Error("Template rendering failed", "path", path, "engine", engineName, "error", err)
		return "", nil
	}

	if dest == "" {
		relative := path
		if rel, serr := paths.StripScheme(path); serr == nil {
			relative = rel
		}

		dest, err = c.cache.ExternalDestination(env, "rendered", relative)
		if err != nil {
			os.Remove(out)
			return "", err
		}
	} else {
		destDir := filepath.Dir(dest)
		if !iu.IsDirectory(destDir) {
			if !makeDirs {
				// no destination to move the rendered output to
				os.Remove(out)
				return "", nil
			}

			err = os.MkdirAll(destDir, 0755)
			if err != nil {
				os.Remove(out)
				return "", err
			}
		}
	}

	err = moveFile(out, dest)
	if err != nil {
		return "", err
	}

	return dest, nil
}

// moveFile renames src to dest, falling back to a copy when the rename
// crosses filesystems
func moveFile(src string, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	err = iu.CopyFile(src, dest)
	if err != nil {
		return err
	}

	return os.Remove(src)
}
