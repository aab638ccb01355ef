// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/choria-io/filedist/config"
	"github.com/choria-io/filedist/model"
)

var _ = Describe("LocalClient", func() {
	var (
		cfg   *config.Config
		fc    *LocalClient
		root1 string
		root2 string
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		cfg = newTestConfig()
		cfg.FileClient = "local"

		root1 = GinkgoT().TempDir()
		root2 = GinkgoT().TempDir()
		cfg.FileRoots = map[string][]string{"base": {root1, root2}}

		writeTree(root1, map[string]string{
			"web/nginx.conf":  "server {}",
			"web/sub/app.cfg": "app",
			"top.sls":         "base: {}",
			"web/init.sls":    "nginx: {}",
			"db.sls":          "postgres: {}",
		})
		writeTree(root2, map[string]string{
			"web/nginx.conf": "shadowed",
			"only2.txt":      "second root",
		})
		Expect(os.MkdirAll(filepath.Join(root1, "emptydir"), 0755)).To(Succeed())

		var err error
		fc, err = NewLocalClient(cfg, testLogger())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("GetFile", func() {
		It("Should resolve files through the roots in order", func() {
			path, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(root1, "web/nginx.conf")))

			path, err = fc.GetFile(ctx, "dist://only2.txt", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(root2, "only2.txt")))
		})

		It("Should handle escaped paths", func() {
			path, err := fc.GetFile(ctx, "dist://|web/nginx.conf", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(root1, "web/nginx.conf")))
		})

		It("Should report absence with an empty path", func() {
			path, err := fc.GetFile(ctx, "dist://nonexisting", "", false, "base", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(""))
		})

		It("Should report absence for unknown environments", func() {
			path, err := fc.GetFile(ctx, "dist://web/nginx.conf", "", false, "dev", false)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(""))
		})

		It("Should reject paths without the scheme", func() {
			_, err := fc.GetFile(ctx, "/etc/passwd", "", false, "base", false)
			Expect(err).To(MatchError(model.ErrUnsupportedPath))
		})
	})

	Describe("FileList", func() {
		It("Should list files from all roots including duplicates", func() {
			files, err := fc.FileList(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(ConsistOf(
				"web/nginx.conf",
				"web/sub/app.cfg",
				"top.sls",
				"web/init.sls",
				"db.sls",
				"web/nginx.conf",
				"only2.txt",
			))
		})

		It("Should be empty for unknown environments", func() {
			files, err := fc.FileList(ctx, "dev")
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(BeEmpty())
		})
	})

	Describe("DirList", func() {
		It("Should list directories including the root", func() {
			dirs, err := fc.DirList(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(dirs).To(ContainElements(".", "web", "web/sub", "emptydir"))
		})
	})

	Describe("FileListEmptyDirs", func() {
		It("Should only list directories without content", func() {
			dirs, err := fc.FileListEmptyDirs(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(dirs).To(Equal([]string{"emptydir"}))
		})
	})

	Describe("HashFile", func() {
		It("Should digest files found in the roots", func() {
			rec, err := fc.HashFile(ctx, "dist://web/nginx.conf", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.HashType).To(Equal("sha256"))
			Expect(rec.Sum).To(HaveLen(64))
		})

		It("Should report unmatched virtual paths softly", func() {
			rec, err := fc.HashFile(ctx, "dist://nonexisting", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec).To(BeNil())
		})

		It("Should digest ad hoc local files", func() {
			rec, err := fc.HashFile(ctx, filepath.Join(root1, "top.sls"), "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.HashType).To(Equal("sha256"))
		})

		It("Should fail for missing ad hoc files", func() {
			_, err := fc.HashFile(ctx, "/nonexisting/file", "base")
			Expect(err).To(MatchError(model.ErrFileNotFound))
		})
	})

	Describe("ListStates", func() {
		It("Should map state files to dotted names", func() {
			states, err := fc.ListStates(ctx, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(states).To(ConsistOf("top", "web", "db"))
		})
	})

	Describe("GetState", func() {
		It("Should resolve plain state modules", func() {
			ref, err := fc.GetState(ctx, "db", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Source).To(Equal("dist://db.sls"))
			Expect(ref.Dest).To(Equal(filepath.Join(root1, "db.sls")))
		})

		It("Should fall back to init modules", func() {
			ref, err := fc.GetState(ctx, "web", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref.Source).To(Equal("dist://web/init.sls"))
			Expect(ref.Dest).To(Equal(filepath.Join(root1, "web/init.sls")))
		})

		It("Should report unknown states softly", func() {
			ref, err := fc.GetState(ctx, "nonexisting", "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(ref).To(BeNil())
		})
	})

	Describe("CacheLocalFile", func() {
		It("Should copy local files into the localfiles cache", func() {
			src := filepath.Join(root1, "web/nginx.conf")

			dest, err := fc.CacheLocalFile(ctx, src)
			Expect(err).NotTo(HaveOccurred())
			Expect(dest).To(Equal(filepath.Join(cfg.CacheDir, "localfiles", src)))

			content, err := os.ReadFile(dest)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("server {}"))

			Expect(fc.IsCached(src, "base")).To(Equal(dest))
		})

		It("Should fail for missing files", func() {
			_, err := fc.CacheLocalFile(ctx, "/nonexisting/file")
			Expect(err).To(MatchError(model.ErrFileNotFound))
		})
	})

	Describe("FileLocalList", func() {
		It("Should list cached files", func() {
			src := filepath.Join(root1, "web/nginx.conf")
			dest, err := fc.CacheLocalFile(ctx, src)
			Expect(err).NotTo(HaveOccurred())

			files, err := fc.FileLocalList("base")
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(Equal([]string{dest}))
		})
	})

	Describe("CacheFiles", func() {
		It("Should accept a comma separated list", func() {
			cached, err := fc.CacheFiles(ctx, []string{"dist://db.sls,dist://top.sls"}, "base")
			Expect(err).NotTo(HaveOccurred())
			Expect(cached).To(Equal([]string{
				filepath.Join(root1, "db.sls"),
				filepath.Join(root1, "top.sls"),
			}))
		})
	})

	Describe("MasterOpts", func() {
		It("Should return the local configuration", func() {
			opts, err := fc.MasterOpts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts["file_client"]).To(Equal("local"))
			Expect(opts["id"]).To(Equal("minion1.example.net"))
		})
	})

	Describe("ExtNodes", func() {
		writeController := func(body string) string {
			path := filepath.Join(GinkgoT().TempDir(), "classify.sh")
			Expect(os.WriteFile(path, []byte(body), 0755)).To(Succeed())
			return path
		}

		It("Should be empty when no controller is configured", func() {
			nodes, err := fc.ExtNodes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})

		It("Should classify using map shaped classes", func() {
			cfg.ExternalNodes = writeController("#!/bin/sh\necho 'environment: production'\necho 'classes:'\necho '  web: {}'\necho '  base: {}'\n")

			nodes, err := fc.ExtNodes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(Equal(map[string][]string{"production": {"base", "web"}}))
		})

		It("Should classify using list shaped classes", func() {
			cfg.ExternalNodes = writeController("#!/bin/sh\necho 'classes:'\necho '  - web'\necho '  - base'\n")

			nodes, err := fc.ExtNodes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(Equal(map[string][]string{"base": {"web", "base"}}))
		})

		It("Should tolerate a missing controller", func() {
			cfg.ExternalNodes = "/nonexisting/controller"

			nodes, err := fc.ExtNodes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})
	})
})
