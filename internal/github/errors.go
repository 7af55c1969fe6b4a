package github

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v41/github"
)

var (
	// ErrInvalidRepository is returned for repository identifiers not in "owner/repo" form.
	ErrInvalidRepository = errors.New("invalid repository format")

	// ErrUnavailable marks data the token is not allowed to read or that does not exist.
	ErrUnavailable = errors.New("github data unavailable")
)

// statusCode extracts the HTTP status of a go-github error, or 0.
func statusCode(err error) int {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	return 0
}

// IsUnavailable reports whether err means the data cannot be read with the
// current token (permission denied, not found or gone).
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	switch statusCode(err) {
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// isRetryable reports whether a call failed for reasons that go away with time.
func isRetryable(err error) bool {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	return statusCode(err) >= http.StatusInternalServerError
}
