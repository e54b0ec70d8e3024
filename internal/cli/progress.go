// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bodaay/prepamirror/pkg/mirror"
)

// cliProgress returns a minimal text handler: failures and the final count.
func cliProgress(out, errOut io.Writer) mirror.ProgressFunc {
	return func(ev mirror.ProgressEvent) {
		switch ev.Event {
		case "error":
			fmt.Fprintf(errOut, "error: %s: %s\n", ev.Path, ev.Message)
		case "done":
			fmt.Fprintln(out, ev.Message)
		}
	}
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) mirror.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev mirror.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}

// logProgress logs every event before passing it on to next.
func logProgress(log *zap.Logger, next mirror.ProgressFunc) mirror.ProgressFunc {
	return func(ev mirror.ProgressEvent) {
		lvl := eventLevel(ev)
		if ce := log.Check(lvl, ev.Event); ce != nil {
			fields := []zap.Field{zap.String("path", ev.Path)}
			if ev.URL != "" {
				fields = append(fields, zap.String("url", ev.URL))
			}
			if ev.Total > 0 {
				fields = append(fields, zap.Int64("total", ev.Total))
			}
			if ev.Downloaded > 0 {
				fields = append(fields, zap.Int64("downloaded", ev.Downloaded))
			}
			if ev.Attempt > 0 {
				fields = append(fields, zap.Int("attempt", ev.Attempt))
			}
			if ev.Message != "" {
				fields = append(fields, zap.String("message", ev.Message))
			}
			ce.Write(fields...)
		}
		if next != nil {
			next(ev)
		}
	}
}

func eventLevel(ev mirror.ProgressEvent) zapcore.Level {
	switch ev.Level {
	case "error", "warn":
		return zapcore.WarnLevel
	}
	switch ev.Event {
	case "folder", "file_done", "done":
		return zapcore.InfoLevel
	case "retry", "error":
		return zapcore.WarnLevel
	default:
		if strings.HasPrefix(ev.Event, "file_") || ev.Event == "scan_start" || ev.Event == "plan_item" {
			return zapcore.DebugLevel
		}
		return zapcore.InfoLevel
	}
}
