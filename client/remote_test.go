// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/choria-io/filedist/config"
	"github.com/choria-io/filedist/digest"
	"github.com/choria-io/filedist/model"
)

// fakeChannel answers file server requests from an in memory file tree the
// way the authority would, serving files in fixed size chunks
type fakeChannel struct {
	files     map[string][]byte
	chunkSize int
	corrupt   bool
	timeout   bool
	lists     map[string][]string
	restarts  int
	requests  int
}

func (f *fakeChannel) Request(_ context.Context, payload []byte, _ int, _ time.Duration) ([]byte, error) {
	f.requests++

	if f.timeout {
		return nil, fmt.Errorf("%w after 3 tries", model.ErrRequestTimeout)
	}

	var req model.FetchRequest
	err := json.Unmarshal(payload, &req)
	if err != nil {
		return nil, err
	}

	switch req.Command {
	case model.ServeFileCommand:
		return f.serve(&req)
	case model.FileListCommand, model.DirListCommand, model.EmptyDirsListCommand:
		return json.Marshal(f.lists[req.Command])
	case model.FileHashCommand:
		content, ok := f.files[req.Path]
		if !ok {
			return json.Marshal(&model.DigestRecord{})
		}
		rec, err := digest.HashReader(bytes.NewReader(content), "sha256")
		if err != nil {
			return nil, err
		}
		return json.Marshal(rec)
	case model.MasterOptsCommand:
		return json.Marshal(map[string]any{"hash_type": "sha256"})
	case model.ExtNodesCommand:
		return json.Marshal(map[string][]string{"base": {"web"}})
	default:
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
}

func (f *fakeChannel) serve(req *model.FetchRequest) ([]byte, error) {
	content, ok := f.files[req.Path]
	if !ok {
		return json.Marshal(&model.ServeReply{})
	}

	if req.Loc == 0 {
		f.restarts++
	}

	served := content
	if f.corrupt {
		served = bytes.ToUpper(content)
	}

	if req.Loc >= int64(len(served)) {
		rec, err := digest.HashReader(bytes.NewReader(content), "sha256")
		if err != nil {
			return nil, err
		}

		return json.Marshal(&model.ServeReply{Dest: req.Path, Hsum: rec.Sum, HashType: rec.HashType})
	}

	end := req.Loc + int64(f.chunkSize)
	if end > int64(len(served)) {
		end = int64(len(served))
	}

	chunk := served[req.Loc:end]
	if req.Gzip {
		buff := &bytes.Buffer{}
		gz := gzip.NewWriter(buff)
		_, err := gz.Write(chunk)
		if err != nil {
			return nil, err
		}
		err = gz.Close()
		if err != nil {
			return nil, err
		}

		return json.Marshal(&model.ServeReply{Data: buff.Bytes(), Dest: req.Path, Gzip: true})
	}

	return json.Marshal(&model.ServeReply{Data: chunk, Dest: req.Path})
}

var _ = Describe("RemoteClient", func() {
	var (
		cfg  *config.Config
		fake *fakeChannel
		fc   *RemoteClient
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		cfg = newTestConfig()
		fake = &fakeChannel{
			chunkSize: 4,
			files: map[string][]byte{
				"web/nginx.conf":  []byte("server { listen 80; }"),
				"web/sub/app.cfg": []byte("app = 1"),
				"empty.txt":       {},
			},
			lists: map[string][]string{
				model.FileListCommand:      {"web/nginx.conf", "web/sub/app.cfg", "webby/other.cfg", "empty.txt"},
				model.DirListCommand:       {".", "web", "web/sub", "webby"},
				model.EmptyDirsListCommand: {"web/emptydir"},
			},
		}

		var err error
		fc, err = NewRemoteClient(cfg, fake, testLogger())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("GetFile", func() {
		It("Should fetch a file in chunks into the cache", func() {
			dest, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(dest).To(Equal(filepath.Join(cfg.CacheDir, "files", "base", "web", "nginx.conf")))

			content, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("server { listen 80; }"))
		})

		It("Should honor an explicit destination", func() {
			dest := filepath.Join(GinkgoT().TempDir(), "nginx.conf")

			got, err := fc.GetFile(ctx, "dist://web/nginx.conf", dest, false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(dest))

			content, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("server { listen 80; }"))
		})

		It("Should refuse a destination with a missing parent unless directed", func() {
			dest := filepath.Join(GinkgoT().TempDir(), "deep", "nginx.conf")

			_, err := fc.GetFile(ctx, "dist://web/nginx.conf", dest, false, "base", false)
			Expect(err).To(MatchError(model.ErrDestinationUnavailable))

			got, err := fc.GetFile(ctx, "dist://web/nginx.conf", dest, true, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(dest))
		})

		It("Should materialize zero byte files", func() {
			dest, err := fc.GetFile(ctx, "dist://empty.txt", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(dest).To(Equal(filepath.Join(cfg.CacheDir, "files", "base", "empty.txt")))

			stat, err := os.Stat(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(stat.Size()).To(BeZero())
		})

		It("Should replace a cached directory squatting on the file path", func() {
			squatter := filepath.Join(cfg.CacheDir, "files", "base", "web", "nginx.conf")
			Expect(os.MkdirAll(squatter, 0700)).To(Succeed())

			dest, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())

			content, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("server { listen 80; }"))
		})

		It("Should retry corrupted downloads a bounded number of times then accept", func() {
			fake.corrupt = true

			dest, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.restarts).To(Equal(3))

			content, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("SERVER { LISTEN 80; }"))
		})

		It("Should support compressed transfers", func() {
			dest, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "base", true)
			Expect(err).NotTo(HaveOccurred())

			content, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("server { listen 80; }"))
		})

		It("Should abandon the fetch on transport timeouts", func() {
			fake.timeout = true

			dest, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(dest).To(Equal(""))
		})

		It("Should report absence with an empty path", func() {
			dest, err := fc.GetFile(ctx, "dist://nonexisting", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(dest).To(Equal(""))
		})

		It("Should reject paths without the scheme", func() {
			_, err := fc.GetFile(ctx, "/etc/passwd", "", false, "base", false)
			Expect(err).To(MatchError(model.ErrUnsupportedPath))
		})
	})

	Describe("Listings", func() {
		It("Should list files, directories and empty directories", func() {
			files, err := fc.FileList(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(Equal([]string{"web/nginx.conf", "web/sub/app.cfg", "webby/other.cfg", "empty.txt"}))

			dirs, err := fc.DirList(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(dirs).To(Equal([]string{".", "web", "web/sub", "webby"}))

			empty, err := fc.FileListEmptyDirs(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(empty).To(Equal([]string{"web/emptydir"}))
		})

		It("Should surface transport timeouts as typed errors", func() {
			fake.timeout = true

			_, err := fc.FileList(ctx, "base")
			Expect(err).To(MatchError(model.ErrRequestTimeout))
		})
	})

	Describe("HashFile", func() {
		It("Should digest served files on the authority", func() {
			rec, err := fc.HashFile(ctx, "dist://web/nginx.conf", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.HashType).To(Equal("sha256"))
			Expect(rec.Sum).To(HaveLen(64))
		})

		It("Should report unserved paths softly", func() {
			rec, err := fc.HashFile(ctx, "dist://nonexisting", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})
	})

	Describe("CacheDir", func() {
		It("Should only cache files below the named directory", func() {
			cached, err := fc.CacheDir(ctx, "dist://web", "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cached).To(Equal([]string{
				filepath.Join(cfg.CacheDir, "files", "base", "web", "nginx.conf"),
				filepath.Join(cfg.CacheDir, "files", "base", "web", "sub", "app.cfg"),
			}))

			content, err := os.ReadFile(cached[1])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("app = 1"))
		})

		It("Should recreate empty directories when asked", func() {
			cached, err := fc.CacheDir(ctx, "dist://web", "base", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(cached).To(ContainElement(filepath.Join(cfg.CacheDir, "files", "base", "web", "emptydir")))
			Expect(filepath.Join(cfg.CacheDir, "files", "base", "web", "emptydir")).To(BeADirectory())
		})

		It("Should return nothing when the listing times out", func() {
			fake.timeout = true

			cached, err := fc.CacheDir(ctx, "dist://web", "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(cached).To(BeEmpty())
		})
	})

	Describe("GetDir", func() {
		It("Should fetch the directory keeping its bottom level name", func() {
			dest := GinkgoT().TempDir()

			got, err := fc.GetDir(ctx, "dist://web", dest, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]string{
				filepath.Join(dest, "web", "emptydir"),
				filepath.Join(dest, "web", "nginx.conf"),
				filepath.Join(dest, "web", "sub", "app.cfg"),
			}))
			Expect(filepath.Join(dest, "web", "emptydir")).To(BeADirectory())
		})
	})

	Describe("CacheMaster", func() {
		It("Should cache everything the authority serves", func() {
			cached, err := fc.CacheMaster(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(cached).To(ContainElements(
				filepath.Join(cfg.CacheDir, "files", "base", "web", "nginx.conf"),
				filepath.Join(cfg.CacheDir, "files", "base", "empty.txt"),
			))
		})
	})

	Describe("MasterOpts", func() {
		It("Should return the authority configuration", func() {
			opts, err := fc.MasterOpts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts["hash_type"]).To(Equal("sha256"))
		})
	})

	Describe("ExtNodes", func() {
		It("Should return the authority classification", func() {
			nodes, err := fc.ExtNodes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(Equal(map[string][]string{"base": {"web"}}))
		})
	})
})
