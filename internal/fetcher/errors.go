package fetcher

import (
	"context"
	"errors"
	"net/http"

	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/google/go-github/v57/github"
)

// StatusCode returns the HTTP status carried by a go-github error, or 0
func StatusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

// IsNotFound checks if the error indicates a resource was not found
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsEmptyRepository checks for GitHub's 409 answer on a repository without commits
func IsEmptyRepository(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsServerError checks if retries were exhausted on a 5xx response
func IsServerError(err error) bool {
	return StatusCode(err) >= http.StatusInternalServerError
}

// IsFatal reports errors that must abort the whole crawl rather than skip a
// single repository or commit.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var rateErr *tokens.RateLimitError
	return errors.Is(err, tokens.ErrAllTokensDisabled) ||
		errors.As(err, &rateErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
