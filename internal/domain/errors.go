package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("invalid report request")
	ErrUpstream        = errors.New("upstream request failed")
	ErrArchiveDisabled = errors.New("report archive is disabled")
	ErrReportNotFound  = errors.New("archived report not found")
)

const (
	StageFetchChanges   = "fetch changes"
	StageResolveTickets = "resolve tickets"
)

// ValidationError carries the field-level reasons a request was rejected.
// Err is usually a validation.Errors map keyed by JSON field name.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidation.Error(), e.Err)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UpstreamError aborts a report: a change source or the primary ticket batch failed.
type UpstreamError struct {
	Stage string
	Repo  string // empty when the stage is not repository scoped
	Err   error
}

func (e *UpstreamError) Error() string {
	if e.Repo != "" {
		return fmt.Sprintf("%s for %s: %v", e.Stage, e.Repo, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
