package services

import (
	"errors"
	"fmt"
)

// ErrTargetNotFound is returned when the user or organization does not exist
var ErrTargetNotFound = errors.New("target user or organization not found")

// UnitError wraps the failure of a single commit detail fetch. The crawl
// logs it and moves on.
type UnitError struct {
	Repository string
	SHA        string
	Err        error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("commit %s in %s: %v", e.SHA, e.Repository, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// PageError reports a repository listing page that could not be fetched.
// The walk moves on to the next page.
type PageError struct {
	Target string
	Page   int
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("repositories of %s, page %d: %v", e.Target, e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
