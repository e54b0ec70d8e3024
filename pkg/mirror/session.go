// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Session is the authenticated HTTP context shared by a whole run.
//
// It carries the cookie jar filled by Authenticate and is reused for every
// listing and document request. The walker only borrows it.
type Session struct {
	httpc *http.Client
	base  *url.URL
	root  *url.URL
	cfg   Settings
}

// NewSession builds a session without logging in.
func NewSession(job Job, cfg Settings) (*Session, error) {
	job, cfg = applyDefaults(job, cfg)
	base, root, err := siteURLs(job)
	if err != nil {
		return nil, err
	}
	var timeout time.Duration
	if cfg.Timeout != "" {
		timeout, err = time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
	}
	httpc, err := buildHTTPClient(timeout)
	if err != nil {
		return nil, err
	}
	return &Session{httpc: httpc, base: base, root: root, cfg: cfg}, nil
}

// Authenticate logs in once and returns the session to use for the run.
//
// The login form is posted to the root listing page with the fields
// "login" and "motdepasse". Any 2xx response counts as success; otherwise
// the returned error matches ErrAuthFailed.
func Authenticate(ctx context.Context, job Job, cfg Settings, creds Credentials) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if creds.Login == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}
	s, err := NewSession(job, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.login(ctx, creds); err != nil {
		return nil, &AuthError{Login: creds.Login, Err: err}
	}
	return s, nil
}

// Base returns the URL documents are resolved against.
func (s *Session) Base() *url.URL {
	u := *s.base
	return &u
}

// Root returns the root listing URL.
func (s *Session) Root() *url.URL {
	u := *s.root
	return &u
}

func (s *Session) login(ctx context.Context, creds Credentials) error {
	form := url.Values{}
	form.Set("login", creds.Login)
	form.Set("motdepasse", creds.Password)
	body := form.Encode()

	resp, err := s.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.root.String(), strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// get issues a GET and returns the response only for a 2xx status.
// The caller closes the body.
func (s *Session) get(ctx context.Context, rawURL string, onRetry func(attempt int, err error)) (*http.Response, error) {
	return s.send(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	}, onRetry)
}

// send runs a request with the configured retries. Only transport errors
// and retryable statuses are retried.
func (s *Session) send(ctx context.Context, newReq func() (*http.Request, error), onRetry func(attempt int, err error)) (*http.Response, error) {
	retry := newRetry(s.cfg)
	var lastErr error

	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		addHeaders(req, s.cfg.UserAgent)

		resp, err := s.httpc.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			resp.Body.Close()
			lastErr = &HTTPError{Method: req.Method, StatusCode: resp.StatusCode, Status: resp.Status, URL: req.URL.String()}
		default:
			return resp, nil
		}

		var httpErr *HTTPError
		if errors.As(lastErr, &httpErr) && !httpErr.IsRetryable() {
			return nil, lastErr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < s.cfg.Retries {
			if onRetry != nil {
				onRetry(attempt+1, lastErr)
			}
			if d := retry.Next(); !sleepCtx(ctx, d) {
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// buildHTTPClient creates an HTTP client with a cookie jar and sensible defaults.
func buildHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Jar: jar, Timeout: timeout}, nil
}

// addHeaders sets the user agent on a request.
func addHeaders(req *http.Request, userAgent string) {
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
}
