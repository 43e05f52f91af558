package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/paths"
	"github.com/goliatone/go-publishing/internal/versions"
)

// Text codes attached to command errors.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeVersionConflict = "VERSION_CONFLICT"
	CodePathConflict    = "PATH_CONFLICT"
	CodeNotFound        = "NOT_FOUND"
	CodeUnprocessable   = "UNPROCESSABLE"
	CodeContextCanceled = "COMMAND_CONTEXT_CANCELED"
	CodeContextTimeout  = "COMMAND_CONTEXT_TIMEOUT"
	CodeContextError    = "COMMAND_CONTEXT_ERROR"
	CodeExecutionFailed = "COMMAND_EXECUTION_FAILED"
)

// TextCode returns the text code of a classified error, or "".
func TextCode(err error) string {
	var classified *goerrors.Error
	if errors.As(err, &classified) {
		return classified.TextCode
	}
	return ""
}

func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(CodeValidation)
}

func wrapContextError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution cancelled").
			WithTextCode(CodeContextCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution deadline exceeded").
			WithTextCode(CodeContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
			WithTextCode(CodeContextError)
	}
}

// wrapExecuteError classifies lifecycle failures so callers can branch on
// the text code without importing every domain package.
func wrapExecuteError(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, paths.ErrInvalidPath),
		errors.Is(err, paths.ErrPublishingAppRequired):
		return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithTextCode(CodeValidation)
	case errors.Is(err, versions.ErrVersionConflict):
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(CodeVersionConflict)
	case errors.Is(err, paths.ErrOwnershipConflict):
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(CodePathConflict)
	case errors.Is(err, domain.ErrNotFound):
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(CodeNotFound)
	case errors.Is(err, domain.ErrUnprocessable):
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(CodeUnprocessable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return wrapContextError(err)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
			WithTextCode(CodeExecutionFailed)
	}
}
