// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"errors"
	"fmt"
)

// Common errors returned by the library.
var (
	// ErrAuthFailed is returned by Authenticate when the login request does not succeed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrListingNotFound is returned by ParseListing when the page has no listing container.
	ErrListingNotFound = errors.New("listing section not found")

	// ErrUnauthorized is matched by HTTPError for 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized: session is not logged in or lacks access")

	// ErrNotFound is matched by HTTPError for 404 responses.
	ErrNotFound = errors.New("page or document not found")

	// ErrMissingCredentials is returned when no login or password is available.
	ErrMissingCredentials = errors.New("missing login or password")
)

// HTTPError is a non-success response from the site.
type HTTPError struct {
	Method     string
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

// IsRetryable returns true if the request might succeed on retry.
func (e *HTTPError) IsRetryable() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Is implements errors.Is for common error comparisons.
func (e *HTTPError) Is(target error) bool {
	switch e.StatusCode {
	case 401, 403:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	default:
		return false
	}
}

// AuthError wraps the reason a login attempt was rejected.
type AuthError struct {
	Login string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login as %q failed: %v", e.Login, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports AuthError as ErrAuthFailed.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

// DownloadError wraps an error with file context.
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
