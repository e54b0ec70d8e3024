// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const (
	testLogin    = "alice"
	testPassword = "s3cret"
	sessionValue = "logged-in"
)

// fakeSite serves listing pages and documents under /site/, behind a
// cookie set by a successful login POST on the root listing.
type fakeSite struct {
	ts *httptest.Server

	mu     sync.Mutex
	pages  map[string]string // "/site/docs?maths" -> html
	docs   map[string]string // "/site/download?id=1" -> body
	status map[string][]int  // statuses served before the real content
	hits   map[string]int
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	s := &fakeSite{
		pages:  map[string]string{},
		docs:   map[string]string{},
		status: map[string][]int{},
		hits:   map[string]int{},
	}
	s.ts = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.ts.Close)
	return s
}

func (s *fakeSite) serve(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("login") != testLogin || r.PostForm.Get("motdepasse") != testPassword {
			http.Error(w, "wrong credentials", http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "CDP_SESSION", Value: sessionValue, Path: "/"})
		fmt.Fprint(w, "<html><body>welcome</body></html>")
		return
	}

	s.mu.Lock()
	s.hits[key]++
	var forced int
	if q := s.status[key]; len(q) > 0 {
		forced, s.status[key] = q[0], q[1:]
	}
	page, isPage := s.pages[key]
	doc, isDoc := s.docs[key]
	s.mu.Unlock()

	if c, err := r.Cookie("CDP_SESSION"); err != nil || c.Value != sessionValue {
		http.Error(w, "not logged in", http.StatusForbidden)
		return
	}
	if forced != 0 {
		http.Error(w, http.StatusText(forced), forced)
		return
	}
	switch {
	case isPage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	case isDoc:
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, doc)
	default:
		http.NotFound(w, r)
	}
}

func (s *fakeSite) page(key string, rows ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = listingHTML(rows...)
}

func (s *fakeSite) rawPage(key, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[key] = html
}

func (s *fakeSite) doc(key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = body
}

func (s *fakeSite) failWith(key string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[key] = append(s.status[key], statuses...)
}

func (s *fakeSite) hitCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *fakeSite) job(outputDir string) Job {
	return Job{Site: s.ts.URL + "/site/", Listing: "docs?maths", OutputDir: outputDir}
}

func testSettings() Settings {
	cfg := DefaultSettings()
	cfg.Timeout = "5s"
	cfg.BackoffInitial = "1ms"
	cfg.BackoffMax = "2ms"
	return cfg
}

func listingHTML(rows ...string) string {
	return "<html><head><title>Documents</title></head><body><nav><a href=\"docs?maths\">maths</a></nav><section>" +
		strings.Join(rows, "\n") + "</section></body></html>"
}

func folderRow(name, href string) string {
	return fmt.Sprintf(`<p class="rep"><span class="nom">%s</span> <a href="%s">ouvrir</a></p>`, name, href)
}

func docRow(name, href string) string {
	return fmt.Sprintf(`<p class="doc"><span class="nom">%s</span> <a href="%s">télécharger</a></p>`, name, href)
}

func recentHeading() string {
	return "<h3>Documents récents</h3>"
}

// snapshot returns every regular file under root keyed by slash path.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			out[rel+"/"] = ""
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot %s: %v", root, err)
	}
	return out
}

func login(t *testing.T, job Job, cfg Settings) *Session {
	t.Helper()
	sess, err := Authenticate(testContext(t), job, cfg, Credentials{Login: testLogin, Password: testPassword})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return sess
}
