package memerr

import "strings"

// transientMarkers are substrings (lower-cased, matched against the error's
// message) that classify a native error as transient: the same operation is
// expected to succeed on retry. Matched against SQLite busy/locked errors,
// common network errors, and explicit "temporarily unavailable"/"rate
// limit" phrasing.
var transientMarkers = []string{
	"sqlite_busy",
	"sqlite_locked",
	"database is locked",
	"econnreset",
	"etimedout",
	"econnrefused",
	"connection reset",
	"temporarily unavailable",
	"rate limit",
	"context deadline exceeded",
}

// permanentMarkers classify a native error as permanent: retrying cannot
// help, so a retry loop should give up immediately even if otherwise
// configured to retry.
var permanentMarkers = []string{
	"unauthorized",
	"invalid api key",
	"forbidden",
	"access denied",
}

// IsTransient classifies a raw (non-*Error) cause using the same
// transient-vs-permanent rules. A nil error is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsPermanent classifies a raw cause as permanent (do not retry).
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
