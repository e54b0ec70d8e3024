// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/bodaay/prepamirror/pkg/mirror"
)

const barTemplate = `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{speed . }}`

// LiveRenderer prints one coloured status line per folder and document
// and, on an interactive terminal, a byte progress bar for the document
// being downloaded.
type LiveRenderer struct {
	mu          sync.Mutex
	out         io.Writer
	errOut      io.Writer
	interactive bool
	start       time.Time

	bar     *pb.ProgressBar
	barPath string

	ok, skip, fail, warn, dim func(a ...interface{}) string
}

// NewLiveRenderer creates a renderer writing to stdout and stderr.
func NewLiveRenderer() *LiveRenderer {
	return NewRenderer(os.Stdout, os.Stderr, isInteractive())
}

// NewRenderer creates a renderer on the given writers. Progress bars and
// colours are only used when interactive is true.
func NewRenderer(out, errOut io.Writer, interactive bool) *LiveRenderer {
	paint := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if !interactive || os.Getenv("NO_COLOR") != "" || !ansiOkay() {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c.SprintFunc()
	}
	return &LiveRenderer{
		out:         out,
		errOut:      errOut,
		interactive: interactive,
		start:       time.Now(),
		ok:          paint(color.FgGreen),
		skip:        paint(color.FgBlue),
		fail:        paint(color.FgRed, color.Bold),
		warn:        paint(color.FgYellow),
		dim:         paint(color.Faint),
	}
}

// Handler returns a ProgressFunc that renders events.
func (lr *LiveRenderer) Handler() mirror.ProgressFunc {
	return func(ev mirror.ProgressEvent) {
		lr.mu.Lock()
		defer lr.mu.Unlock()
		lr.apply(ev)
	}
}

// Close stops any running progress bar.
func (lr *LiveRenderer) Close() {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.stopBar()
}

func (lr *LiveRenderer) apply(ev mirror.ProgressEvent) {
	switch ev.Event {
	case "scan_start":
		fmt.Fprintf(lr.out, "Mirroring %s into %s\n", ev.URL, ev.Path)
	case "folder":
		fmt.Fprintf(lr.out, "%s %s %s\n", lr.dim("dir "), ev.Path, lr.dim("("+ev.Message+")"))
	case "plan_item":
		fmt.Fprintf(lr.out, "  %s\n", ev.Path)
	case "file_start":
		lr.startBar(ev.Path)
	case "file_progress":
		if lr.bar != nil && lr.barPath == ev.Path {
			if ev.Total > 0 {
				lr.bar.SetTotal(ev.Total)
			}
			lr.bar.SetCurrent(ev.Downloaded)
		}
	case "file_done":
		lr.stopBar()
		if strings.HasPrefix(ev.Message, "skip") {
			fmt.Fprintf(lr.out, "%s %s\n", lr.skip("skip"), ev.Path)
		} else {
			fmt.Fprintf(lr.out, "%s %s %s\n", lr.ok("ok  "), ev.Path, lr.dim(humanBytes(ev.Total)))
		}
	case "retry":
		fmt.Fprintf(lr.errOut, "%s %s (attempt %d): %s\n", lr.warn("retry"), ev.Path, ev.Attempt, ev.Message)
	case "error":
		lr.stopBar()
		fmt.Fprintf(lr.errOut, "%s %s: %s\n", lr.fail("fail"), displayPath(ev.Path), ev.Message)
	case "done":
		lr.stopBar()
		fmt.Fprintf(lr.out, "%s in %s\n", ev.Message, fmtDuration(time.Since(lr.start)))
	}
}

func (lr *LiveRenderer) startBar(path string) {
	lr.stopBar()
	if !lr.interactive {
		return
	}
	w, _ := termSize()
	bar := pb.New64(0)
	bar.SetTemplateString(barTemplate)
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", ellipsizeMiddle(path, w/3))
	bar.SetWriter(lr.out)
	bar.SetMaxWidth(w)
	bar.Start()
	lr.bar, lr.barPath = bar, path
}

func (lr *LiveRenderer) stopBar() {
	if lr.bar == nil {
		return
	}
	lr.bar.Finish()
	lr.bar, lr.barPath = nil, ""
}

func displayPath(p string) string {
	if p == "." || p == "" {
		return "(root)"
	}
	return p
}

func ellipsizeMiddle(s string, w int) string {
	if w <= 3 || utf8.RuneCountInString(s) <= w {
		return s
	}
	runes := []rune(s)
	half := (w - 3) / 2
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit && exp < 6 {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func termSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return 100, 30
	}
	return w, h
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func ansiOkay() bool {
	return strings.ToLower(os.Getenv("TERM")) != "dumb"
}
