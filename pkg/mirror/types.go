// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import "time"

// Job defines what to mirror.
//
// Site is the repository base URL; document links on every listing page
// are resolved against it. Listing is the root listing page, relative to
// Site. Both have defaults for the MP2I Saint-Louis course site.
//
// Example:
//
//	job := mirror.Job{
//	    Site:      "https://cahier-de-prepa.fr/mp2i-saintlouis/",
//	    Listing:   "docs?maths",
//	    OutputDir: "cahier-de-prepa",
//	    Update:    true,
//	}
type Job struct {
	// Site is the repository base URL. A trailing slash is added if missing.
	Site string

	// Listing is the root listing page, resolved against Site.
	// If empty, defaults to "docs?maths".
	Listing string

	// OutputDir is the local root of the mirror.
	// If empty, defaults to "cahier-de-prepa".
	OutputDir string

	// Update keeps documents that already exist locally instead of
	// downloading them again. No size or content check is made.
	Update bool
}

// Settings configures how pages and documents are fetched and stored.
type Settings struct {
	// Extension is appended to every sanitized document name.
	// If empty, defaults to ".pdf".
	Extension string

	// RecentHeading is the exact text of the <h3> that starts the
	// "recently added documents" section. Everything from that heading on
	// is ignored. If empty, defaults to "Documents récents".
	RecentHeading string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single request, including reading the body.
	// Accepts duration strings: "30s", "2m". Empty means no timeout.
	Timeout string

	// Retries is the number of extra attempts for transport errors and
	// 429/5xx responses. Zero means a single attempt per request.
	Retries int

	// BackoffInitial is the delay before the first retry.
	// If empty, defaults to "400ms".
	BackoffInitial string

	// BackoffMax caps the delay between retries.
	// If empty, defaults to "10s".
	BackoffMax string
}

// Credentials are the form values posted to the login page.
type Credentials struct {
	Login    string
	Password string
}

// ProgressEvent represents a progress update during a mirror run.
//
// The Event field indicates the type of event:
//   - "scan_start": the walk has begun at the root listing
//   - "folder": a listing page was fetched and its directory created
//   - "plan_item": a document was found during a dry run
//   - "file_start": download of a document has started
//   - "file_progress": periodic progress update during download
//   - "file_done": document written, or skipped (Message starts with "skip")
//   - "retry": a request is being retried
//   - "error": a page or document failed; the walk continues
//   - "done": the walk is over, Message holds the counts
type ProgressEvent struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Event   string    `json:"event"`
	URL     string    `json:"url,omitempty"`
	Path    string    `json:"path,omitempty"`
	Total   int64     `json:"total,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	Message string    `json:"message,omitempty"`

	// Downloaded is the cumulative bytes written for the current document.
	Downloaded int64 `json:"downloaded,omitempty"`
}

// ProgressFunc is a callback for receiving progress events.
// The walk is sequential, so calls never overlap.
type ProgressFunc func(ProgressEvent)

// NodeKind tells folders and documents apart.
type NodeKind string

const (
	KindFolder   NodeKind = "folder"
	KindDocument NodeKind = "document"
)

// Node is one entry of a listing page, as found in the markup.
type Node struct {
	Kind NodeKind
	Name string // raw display text, not sanitized
	Href string // raw link, not resolved
}

// NodeState is the terminal state of a visited node.
type NodeState string

const (
	StateExpanded NodeState = "expanded" // folder listed and directory created
	StateSaved    NodeState = "saved"    // document downloaded and written
	StateSkipped  NodeState = "skipped"  // document already present in update mode
	StateFailed   NodeState = "failed"
)

// NodeResult records what happened to one folder or document.
type NodeResult struct {
	Kind  NodeKind  `json:"kind" yaml:"kind"`
	Name  string    `json:"name" yaml:"name"`
	Path  string    `json:"path" yaml:"path"`
	URL   string    `json:"url" yaml:"url"`
	State NodeState `json:"state" yaml:"state"`
	Err   string    `json:"error,omitempty" yaml:"error,omitempty"`
	Bytes int64     `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

// Summary collects the results of a run in visit order.
type Summary struct {
	Started time.Time    `json:"started" yaml:"started"`
	Ended   time.Time    `json:"ended" yaml:"ended"`
	Folders int          `json:"folders" yaml:"folders"`
	Saved   int          `json:"saved" yaml:"saved"`
	Skipped int          `json:"skipped" yaml:"skipped"`
	Failed  int          `json:"failed" yaml:"failed"`
	Bytes   int64        `json:"bytes" yaml:"bytes"`
	Results []NodeResult `json:"results" yaml:"results"`
}

func (s *Summary) add(r NodeResult) {
	switch r.State {
	case StateExpanded:
		s.Folders++
	case StateSaved:
		s.Saved++
		s.Bytes += r.Bytes
	case StateSkipped:
		s.Skipped++
	case StateFailed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// FailedResults returns only the failed nodes, in visit order.
func (s *Summary) FailedResults() []NodeResult {
	var out []NodeResult
	for _, r := range s.Results {
		if r.State == StateFailed {
			out = append(out, r)
		}
	}
	return out
}

// DefaultJob returns the Job for the MP2I Saint-Louis maths documents.
func DefaultJob() Job {
	return Job{
		Site:      DefaultSite,
		Listing:   "docs?maths",
		OutputDir: "cahier-de-prepa",
	}
}

// DefaultSettings returns Settings with sensible defaults filled in.
func DefaultSettings() Settings {
	return Settings{
		Extension:      ".pdf",
		RecentHeading:  "Documents récents",
		UserAgent:      "prepamirror/1",
		Timeout:        "60s",
		Retries:        0,
		BackoffInitial: "400ms",
		BackoffMax:     "10s",
	}
}
