// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "prepamirror.log")
	if err := Init(Config{Level: "info", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Debug("hidden")
	L().Info("saved", String("path", "Cours.pdf"), Int64("bytes", 42))
	if err := Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	t.Cleanup(func() { Init(Config{}) })

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), b)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "saved" || entry["path"] != "Cours.pdf" || entry["bytes"] != float64(42) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestInit_Verbose(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "debug", Verbose: true, Console: zapcore.AddSync(&buf)}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { Init(Config{}) })

	L().Debug("listing fetched", String("url", "https://example.com/docs?maths"))
	SetLevel("warn")
	L().Info("dropped")

	out := buf.String()
	if !strings.Contains(out, "listing fetched") || !strings.Contains(out, "docs?maths") {
		t.Errorf("missing debug line in %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("info line logged after SetLevel(warn): %q", out)
	}
}

func TestInit_Disabled(t *testing.T) {
	if err := Init(Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if L().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected a no-op logger")
	}
}
