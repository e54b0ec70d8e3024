// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// progressReader wraps an io.Reader and emits progress events during reads.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	path       string
	emit       func(ProgressEvent)
	lastEmit   time.Time
	interval   time.Duration
}

func newProgressReader(r io.Reader, total int64, path string, emit func(ProgressEvent)) *progressReader {
	return &progressReader{
		reader:   r,
		total:    total,
		path:     path,
		emit:     emit,
		lastEmit: time.Now(),
		interval: 200 * time.Millisecond,
	}
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		if time.Since(pr.lastEmit) >= pr.interval || err == io.EOF {
			pr.emit(ProgressEvent{
				Event:      "file_progress",
				Path:       pr.path,
				Downloaded: pr.downloaded,
				Total:      pr.total,
			})
			pr.lastEmit = time.Now()
		}
	}
	return n, err
}

// walker carries the state of one run. Nothing in it is shared between runs.
type walker struct {
	sess    *Session
	job     Job
	cfg     Settings
	emit    func(ProgressEvent)
	summary *Summary
	plan    *Plan // set for dry runs only
}

func newWalker(sess *Session, job Job, cfg Settings, progress ProgressFunc) *walker {
	return &walker{
		sess:    sess,
		job:     job,
		cfg:     cfg,
		summary: &Summary{},
		emit: func(ev ProgressEvent) {
			if progress == nil {
				return
			}
			if ev.Time.IsZero() {
				ev.Time = time.Now()
			}
			progress(ev)
		},
	}
}

// Mirror walks the repository from the session's root listing and
// reproduces it under job.OutputDir.
//
// Folders are expanded depth-first in page order, before the documents of
// the same page. Failures of single pages or documents are recorded in
// the Summary and never stop the walk. The only error returned is the
// context's, together with the partial Summary.
func Mirror(ctx context.Context, sess *Session, job Job, cfg Settings, progress ProgressFunc) (*Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sess == nil {
		return nil, errors.New("mirror: nil session")
	}
	job, cfg = applyDefaults(job, cfg)

	w := newWalker(sess, job, cfg, progress)
	w.run(ctx)

	if err := ctx.Err(); err != nil {
		return w.summary, err
	}
	s := w.summary
	w.emit(ProgressEvent{
		Event: "done",
		Message: fmt.Sprintf("mirror complete (folders %d, downloaded %d, skipped %d, failed %d)",
			s.Folders, s.Saved, s.Skipped, s.Failed),
	})
	return s, nil
}

func (w *walker) run(ctx context.Context) {
	root := w.sess.Root()
	w.summary.Started = time.Now()
	w.emit(ProgressEvent{Event: "scan_start", URL: root.String(), Path: w.job.OutputDir})
	w.walk(ctx, root, w.job.OutputDir, ".", "")
	w.summary.Ended = time.Now()
}

// walk visits one listing page. dir is its local directory and rel the
// same path relative to the output root.
func (w *walker) walk(ctx context.Context, page *url.URL, dir, rel, name string) {
	if ctx.Err() != nil {
		return
	}
	res := NodeResult{Kind: KindFolder, Name: name, Path: rel, URL: page.String()}

	listing, err := w.fetchListing(ctx, page, rel)
	if err != nil {
		w.fail(ctx, res, err)
		return
	}

	if w.plan == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			w.fail(ctx, res, err)
			return
		}
	}
	res.State = StateExpanded
	w.summary.add(res)
	w.emit(ProgressEvent{Event: "folder", URL: res.URL, Path: rel,
		Message: fmt.Sprintf("%d folders, %d documents", len(listing.Folders), len(listing.Documents))})

	for _, f := range listing.Folders {
		if ctx.Err() != nil {
			return
		}
		seg := Sanitize(f.Name)
		childDir := filepath.Join(dir, seg)
		childRel := path.Join(rel, seg)
		child, err := page.Parse(f.Href)
		if err != nil {
			w.fail(ctx, NodeResult{Kind: KindFolder, Name: f.Name, Path: childRel, URL: f.Href}, err)
			continue
		}
		w.walk(ctx, child, childDir, childRel, f.Name)
	}

	for _, d := range listing.Documents {
		if ctx.Err() != nil {
			return
		}
		w.document(ctx, d, dir, rel)
	}
}

func (w *walker) fetchListing(ctx context.Context, page *url.URL, rel string) (*Listing, error) {
	resp, err := w.sess.get(ctx, page.String(), w.onRetry(rel))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return ParseListing(resp.Body, w.cfg.RecentHeading)
}

// document saves, skips or plans one document entry of the page at rel.
func (w *walker) document(ctx context.Context, d Node, dir, rel string) {
	fileName := Sanitize(d.Name) + w.cfg.Extension
	dst := filepath.Join(dir, fileName)
	res := NodeResult{Kind: KindDocument, Name: d.Name, Path: path.Join(rel, fileName), URL: d.Href}

	u, err := w.sess.base.Parse(d.Href)
	if err != nil {
		w.fail(ctx, res, &DownloadError{Path: res.Path, Err: err})
		return
	}
	res.URL = u.String()

	_, statErr := os.Stat(dst)
	exists := statErr == nil

	if w.plan != nil {
		w.plan.Items = append(w.plan.Items, PlanItem{Path: res.Path, Name: d.Name, URL: res.URL, Exists: exists})
		w.emit(ProgressEvent{Event: "plan_item", URL: res.URL, Path: res.Path})
		return
	}

	if w.job.Update && exists {
		res.State = StateSkipped
		w.summary.add(res)
		w.emit(ProgressEvent{Event: "file_done", URL: res.URL, Path: res.Path, Message: "skip (already present)"})
		return
	}

	w.emit(ProgressEvent{Event: "file_start", URL: res.URL, Path: res.Path})
	n, err := w.download(ctx, res.URL, dst, res.Path)
	if err != nil {
		w.fail(ctx, res, &DownloadError{Path: res.Path, Err: err})
		return
	}
	res.State = StateSaved
	res.Bytes = n
	w.summary.add(res)
	w.emit(ProgressEvent{Event: "file_done", URL: res.URL, Path: res.Path, Total: n})
}

// download streams rawURL to dst.part and renames it onto dst once complete.
func (w *walker) download(ctx context.Context, rawURL, dst, rel string) (int64, error) {
	resp, err := w.sess.get(ctx, rawURL, w.onRetry(rel))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	pr := newProgressReader(resp.Body, total, rel, w.emit)
	n, err := io.Copy(out, pr)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return n, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return n, err
	}
	return n, nil
}

// fail records a failed node. Nothing is recorded once the run is canceled.
func (w *walker) fail(ctx context.Context, res NodeResult, err error) {
	if ctx.Err() != nil {
		return
	}
	res.State = StateFailed
	res.Err = err.Error()
	w.summary.add(res)
	if w.plan != nil && res.Kind == KindFolder {
		w.plan.Failed = append(w.plan.Failed, res)
	}
	w.emit(ProgressEvent{Level: "error", Event: "error", URL: res.URL, Path: res.Path, Message: err.Error()})
}

func (w *walker) onRetry(rel string) func(int, error) {
	return func(attempt int, err error) {
		w.emit(ProgressEvent{Level: "warn", Event: "retry", Path: rel, Attempt: attempt, Message: err.Error()})
	}
}
