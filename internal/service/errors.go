package service

import (
	"fmt"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id string) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrResultsNotFound(id string) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "results")
}

func NewErrItemNotFound(index int) *ErrResourceNotFound {
	return NewErrResourceNotFound(fmt.Sprintf("%d", index), "item")
}

// ErrNoResultsBound is returned when the session never observed a completed job, or was reset.
type ErrNoResultsBound struct {
	error
}

func NewErrNoResultsBound() *ErrNoResultsBound {
	return &ErrNoResultsBound{fmt.Errorf("no results available for this session")}
}

type ErrNoValidFiles struct {
	error
}

func NewErrNoValidFiles(allowed []string) *ErrNoValidFiles {
	return &ErrNoValidFiles{fmt.Errorf("no valid files uploaded, allowed extensions: %v", allowed)}
}

type ErrCollaboratorUnavailable struct {
	error
}

func NewErrSummarizerUnavailable() *ErrCollaboratorUnavailable {
	return &ErrCollaboratorUnavailable{fmt.Errorf("summarizer is not configured")}
}

func NewErrFeedbackUnavailable() *ErrCollaboratorUnavailable {
	return &ErrCollaboratorUnavailable{fmt.Errorf("feedback is not configured")}
}

type ErrUnsupportedExportFormat struct {
	error
}

func NewErrUnsupportedExportFormat(format string) *ErrUnsupportedExportFormat {
	return &ErrUnsupportedExportFormat{fmt.Errorf("unsupported export format %q", format)}
}

func NewErrInterviewerUnavailable() *ErrCollaboratorUnavailable {
	return &ErrCollaboratorUnavailable{fmt.Errorf("interview questions generator is not configured")}
}
