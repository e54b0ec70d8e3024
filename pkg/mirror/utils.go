// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultSite is the course site mirrored when Job.Site is empty.
const DefaultSite = "https://cahier-de-prepa.fr/mp2i-saintlouis/"

// applyDefaults fills empty fields of job and cfg.
func applyDefaults(job Job, cfg Settings) (Job, Settings) {
	def := DefaultSettings()
	job.Site = defaultString(job.Site, DefaultSite)
	job.Listing = defaultString(job.Listing, "docs?maths")
	job.OutputDir = defaultString(job.OutputDir, "cahier-de-prepa")
	cfg.Extension = defaultString(cfg.Extension, def.Extension)
	cfg.RecentHeading = defaultString(cfg.RecentHeading, def.RecentHeading)
	cfg.UserAgent = defaultString(cfg.UserAgent, def.UserAgent)
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return job, cfg
}

// siteURLs returns the base URL used for documents and the root listing URL.
func siteURLs(job Job) (base *url.URL, root *url.URL, err error) {
	site := job.Site
	if !strings.HasSuffix(site, "/") {
		site += "/"
	}
	base, err = url.Parse(site)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid site %q: %w", job.Site, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, nil, fmt.Errorf("invalid site %q: scheme must be http or https", job.Site)
	}
	root, err = base.Parse(job.Listing)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid listing %q: %w", job.Listing, err)
	}
	return base, root, nil
}

// backoff implements exponential backoff with jitter.
type backoff struct {
	next   time.Duration
	max    time.Duration
	mult   float64
	jitter time.Duration
}

// newRetry creates a new backoff instance from settings.
func newRetry(cfg Settings) *backoff {
	init := 400 * time.Millisecond
	max := 10 * time.Second
	if d, err := time.ParseDuration(defaultString(cfg.BackoffInitial, "400ms")); err == nil {
		init = d
	}
	if d, err := time.ParseDuration(defaultString(cfg.BackoffMax, "10s")); err == nil {
		max = d
	}
	return &backoff{next: init, max: max, mult: 1.6, jitter: 120 * time.Millisecond}
}

// Next returns the next backoff duration.
func (b *backoff) Next() time.Duration {
	d := b.next + time.Duration(int64(b.jitter)*int64(time.Now().UnixNano()%3)/2)
	b.next = time.Duration(float64(b.next) * b.mult)
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// sleepCtx waits for d or returns false if ctx is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// defaultString returns s if non-empty, otherwise def.
func defaultString(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}
