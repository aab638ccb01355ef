// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/choria-io/filedist/model"
)

var (
	NameSpace = "choria"
	Subsystem = "filedist"

	// FileFetchTime is a summary of the time taken to fetch a file from the authority
	FileFetchTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "file_fetch_duration_seconds"),
		Help: "Time taken to fetch a file from the authority",
	}, []string{"environment"})

	// FileFetchCount counts files fetched from the authority
	FileFetchCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "file_fetch_count"),
		Help: "How many files were fetched from the authority",
	}, []string{"environment"})

	// FileFetchFailureCount counts fetches that were abandoned on transport timeouts
	FileFetchFailureCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "file_fetch_error_count"),
		Help: "How many fetches were abandoned due to transport failures",
	}, []string{"environment"})

	// IntegrityRetryCount counts integrity check failures that triggered a refetch
	IntegrityRetryCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "integrity_retry_count"),
		Help: "How many times a fetched file failed its integrity check and was refetched",
	}, []string{"environment"})

	// IntegrityAcceptedCount counts downloads accepted after exhausting integrity retries
	IntegrityAcceptedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "integrity_accepted_count"),
		Help: "How many unverified downloads were accepted after exhausting integrity retries",
	}, []string{"environment"})

	// CacheHitCount counts is_cached probes that found a cached file
	CacheHitCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "cache_hit_count"),
		Help: "How many cache probes found an already cached file",
	}, []string{"environment"})

	// URLFetchCount counts foreign URL fetches
	URLFetchCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "url_fetch_count"),
		Help: "How many foreign URLs were fetched",
	}, []string{"scheme"})

	// URLFetchFailureCount counts failed foreign URL fetches
	URLFetchFailureCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "url_fetch_error_count"),
		Help: "How many foreign URL fetches failed",
	}, []string{"scheme"})

	// TemplateRenderTime is a summary of the time taken to render templates
	TemplateRenderTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "template_render_duration_seconds"),
		Help: "Time taken to render a cached file through a template engine",
	}, []string{"engine"})
)

func RegisterMetrics() {
	prometheus.MustRegister(FileFetchTime)
	prometheus.MustRegister(FileFetchCount)
	prometheus.MustRegister(FileFetchFailureCount)
	prometheus.MustRegister(IntegrityRetryCount)
	prometheus.MustRegister(IntegrityAcceptedCount)
	prometheus.MustRegister(CacheHitCount)
	prometheus.MustRegister(URLFetchCount)
	prometheus.MustRegister(URLFetchFailureCount)
	prometheus.MustRegister(TemplateRenderTime)
}

func ListenAndServe(port int, log model.Logger) {
	if port <= 0 {
		return
	}

	go func() {
		log.Info("Starting monitoring server", "port", port)
		http.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
		if err != nil {
			log.Error("HTTP Listener failed", "error", err)
		}
	}()
}
