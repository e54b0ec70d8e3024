// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bodaay/prepamirror/pkg/mirror"
)

func TestLiveRenderer_PlainOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	lr := NewRenderer(&out, &errOut, false)
	h := lr.Handler()

	h(mirror.ProgressEvent{Event: "scan_start", URL: "https://example.com/docs?maths", Path: "cahier-de-prepa"})
	h(mirror.ProgressEvent{Event: "folder", Path: "Chapitre 1", Message: "0 folders, 2 documents"})
	h(mirror.ProgressEvent{Event: "file_start", Path: "Chapitre 1/Cours.pdf"})
	h(mirror.ProgressEvent{Event: "file_progress", Path: "Chapitre 1/Cours.pdf", Downloaded: 10, Total: 2048})
	h(mirror.ProgressEvent{Event: "file_done", Path: "Chapitre 1/Cours.pdf", Total: 2048})
	h(mirror.ProgressEvent{Event: "file_done", Path: "Chapitre 1/TD.pdf", Message: "skip (already present)"})
	h(mirror.ProgressEvent{Event: "error", Path: ".", Message: "GET https://example.com/: 500"})
	h(mirror.ProgressEvent{Event: "done", Message: "mirror complete"})
	lr.Close()

	got := out.String()
	for _, want := range []string{
		"Mirroring https://example.com/docs?maths into cahier-de-prepa",
		"Chapitre 1 (0 folders, 2 documents)",
		"ok   Chapitre 1/Cours.pdf 2.0 KiB",
		"skip Chapitre 1/TD.pdf",
		"mirror complete in 00:00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("stdout missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("non-interactive output contains ANSI escapes: %q", got)
	}
	if e := errOut.String(); !strings.Contains(e, "fail (root): GET https://example.com/: 500") {
		t.Errorf("unexpected stderr %q", e)
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1024:        "1.0 KiB",
		5 * 1 << 20: "5.0 MiB",
	}
	for n, want := range tests {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestEllipsizeMiddle(t *testing.T) {
	if got := ellipsizeMiddle("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := ellipsizeMiddle("Chapitre 12/Exercices corrigés.pdf", 13)
	if got != "Chapi...s.pdf" {
		t.Errorf("got %q", got)
	}
}

func TestFmtDuration(t *testing.T) {
	if got := fmtDuration(90 * time.Second); got != "01:30" {
		t.Errorf("got %q", got)
	}
	if got := fmtDuration(2*time.Hour + 5*time.Second); got != "02:00:05" {
		t.Errorf("got %q", got)
	}
}
