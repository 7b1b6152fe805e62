package media

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidURL is returned for anything that is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid video url")
	// ErrNoOutput is returned when yt-dlp exits cleanly without producing a file.
	ErrNoOutput = errors.New("yt-dlp produced no output file")
)

// ErrorClass represents whether an error should be retried or not.
type ErrorClass int

const (
	// ErrorClassRetryable indicates the operation should be retried (transient errors).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the operation should not be retried (permanent errors).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	serverErrorPatterns = []string{
		"500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
	}
	authPatterns = []string{
		"subscriber-only", "only available to subscribers", "must be logged into",
		"login required", "authentication required", "sign in to confirm",
		"401", "403", "access denied", "unauthorized", "private video",
	}
	notFoundPatterns = []string{
		"404", "not found", "deleted", "no longer available", "does not exist",
		"no video formats found", "unable to extract", "requested format is not available",
		"there's no video in this post",
	}
	invalidInputPatterns = []string{
		"invalid url", "malformed url", "invalid video id", "unsupported url", "is not a valid url",
	}
	drmPatterns = []string{
		"drm protected", "protected content", "encrypted content",
	}
	networkPatterns = []string{
		"connection reset", "connection refused", "connection timed out", "timeout",
		"temporary failure in name resolution", "no route to host", "network unreachable",
		"dns", "eof", "broken pipe",
	}
	rateLimitPatterns = []string{
		"429", "too many requests", "rate limit", "throttled",
	}
	incompletePatterns = []string{
		"partial content", "fragment", "incomplete download",
	}
)

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// ClassifyDownloadError classifies yt-dlp failures into retryable vs fatal.
//
// Fatal: auth walls, missing/removed content, unsupported or malformed URLs,
// DRM, and ErrInvalidURL/ErrNoOutput.
// Retryable: network errors, 5xx, rate limiting, incomplete fragments.
// Anything unrecognized is treated as retryable.
func ClassifyDownloadError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrNoOutput) {
		return ErrorClassFatal
	}

	lower := strings.ToLower(err.Error())

	// yt-dlp echoes the URL, which may itself contain digits like "500".
	if containsAny(lower, invalidInputPatterns) {
		return ErrorClassFatal
	}
	// 5xx before the content checks so "service unavailable" is not read as "video unavailable".
	if containsAny(lower, serverErrorPatterns) {
		return ErrorClassRetryable
	}
	if containsAny(lower, authPatterns) {
		return ErrorClassFatal
	}
	if (strings.Contains(lower, "video") && strings.Contains(lower, "unavailable")) ||
		(strings.Contains(lower, "video") && strings.Contains(lower, "not available")) ||
		containsAny(lower, notFoundPatterns) {
		return ErrorClassFatal
	}
	if containsAny(lower, drmPatterns) {
		return ErrorClassFatal
	}
	if containsAny(lower, networkPatterns) || containsAny(lower, rateLimitPatterns) || containsAny(lower, incompletePatterns) {
		return ErrorClassRetryable
	}
	return ErrorClassRetryable
}

// IsRetryableError checks if an error should trigger retry logic.
func IsRetryableError(err error) bool {
	return ClassifyDownloadError(err) == ErrorClassRetryable
}

// IsFatalError checks if an error should not be retried.
func IsFatalError(err error) bool {
	return ClassifyDownloadError(err) == ErrorClassFatal
}
