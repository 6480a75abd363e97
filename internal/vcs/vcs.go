// Package vcs publishes reports to pull and merge requests.
package vcs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/scan-io-git/scanio-lint/internal/report"
)

// DefaultMaxRetries bounds retries of a single API call.
const DefaultMaxRetries = 3

// retry runs op with exponential backoff until it succeeds, returns a permanent
// error, or retries run out.
func retry(ctx context.Context, maxRetries uint64, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(op, b)
}

// classify marks client errors as permanent. Rate limits and server errors are retried.
func classify(status int, err error) error {
	if err == nil {
		return nil
	}
	if status != 0 && status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

// body prefixes a message with a marker for its level.
func body(a report.Annotation) string {
	if a.Level == report.LevelFail {
		return ":no_entry_sign: " + a.Message
	}
	return ":warning: " + a.Message
}

// detachedBody is used when an annotation cannot be placed on its line.
func detachedBody(a report.Annotation) string {
	if !a.Anchored() {
		return body(a)
	}
	return fmt.Sprintf("%s\n\n`%s:%d`", body(a), a.File, a.Line)
}
